package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sindarin-lang/snc/internal/pkgfile"
)

const packageFileName = "package.yaml"

func newPkgCmd() *cobra.Command {
	pkgCmd := &cobra.Command{
		Use:   "pkg",
		Short: "Manage the package manifest (package.yaml)",
	}
	pkgCmd.AddCommand(newPkgInitCmd())
	pkgCmd.AddCommand(newPkgAddCmd())
	pkgCmd.AddCommand(newPkgListCmd())
	return pkgCmd
}

func newPkgInitCmd() *cobra.Command {
	var name, version, author, license string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new package.yaml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := &pkgfile.Manifest{Name: name, Version: version, Author: author, License: license}
			if err := m.Save(packageFileName); err != nil {
				return errors.Wrap(err, "snc pkg init")
			}
			fmt.Printf("wrote %s\n", packageFileName)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "untitled", "package name")
	cmd.Flags().StringVar(&version, "version", "0.1.0", "package version")
	cmd.Flags().StringVar(&author, "author", "", "package author")
	cmd.Flags().StringVar(&license, "license", "", "package license")
	return cmd
}

func newPkgAddCmd() *cobra.Command {
	var tag, branch string
	cmd := &cobra.Command{
		Use:   "add <git-url>",
		Short: "Add (or update) a dependency in package.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pkgfile.Load(packageFileName)
			if err != nil {
				return errors.Wrap(err, "snc pkg add")
			}

			rawURL := args[0]
			baseURL, ref, hasRef := pkgfile.ParseURLRef(rawURL)
			if hasRef && tag == "" && branch == "" {
				tag = ref
			}
			name, ok := pkgfile.ExtractName(baseURL)
			if !ok {
				return errors.Errorf("snc pkg add: could not derive a package name from %q", rawURL)
			}

			m.AddDependency(pkgfile.Dependency{Name: name, GitURL: baseURL, Tag: tag, Branch: branch})
			if err := m.Save(packageFileName); err != nil {
				return errors.Wrap(err, "snc pkg add")
			}
			fmt.Printf("added %s (%s)\n", name, baseURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "pin to a specific tag")
	cmd.Flags().StringVar(&branch, "branch", "", "pin to a specific branch")
	return cmd
}

func newPkgListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pkgfile.Load(packageFileName)
			if err != nil {
				return errors.Wrap(err, "snc pkg list")
			}
			if len(m.Dependencies) == 0 {
				fmt.Println("no dependencies declared")
				return nil
			}
			for _, dep := range m.Dependencies {
				fmt.Printf("%s\t%s\t%s\n", dep.Name, dep.GitURL, dep.Ref())
			}
			return nil
		},
	}
}
