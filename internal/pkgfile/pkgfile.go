// Package pkgfile implements the YAML-backed package manifest named in
// spec.md §6 ("Package file"): git-URL dependency parsing, name
// extraction, and load/save of the manifest itself, grounded on the
// original implementation's package_tests.c (url/ref/name parsing
// rules) since no source for package.c survived the distillation.
package pkgfile

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Dependency is one declared dependency, matching spec.md §6's
// Dependency{Name, GitURL, Tag, Branch}. Tag and Branch are alternative
// refs; nothing stops both being set, and Ref then returns Tag.
type Dependency struct {
	Name   string `yaml:"name"`
	GitURL string `yaml:"git_url"`
	Tag    string `yaml:"tag,omitempty"`
	Branch string `yaml:"branch,omitempty"`
}

// Ref returns whichever of Tag/Branch is set, preferring Tag.
func (d Dependency) Ref() string {
	if d.Tag != "" {
		return d.Tag
	}
	return d.Branch
}

// Manifest is the package file itself, spec.md §6's
// Manifest{Name, Version, Author, Description, License, Dependencies}.
type Manifest struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Author       string       `yaml:"author,omitempty"`
	Description  string       `yaml:"description,omitempty"`
	License      string       `yaml:"license,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`
}

// Load parses a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "pkgfile: read %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "pkgfile: parse %s", path)
	}
	return &m, nil
}

// Save writes m to path as YAML, matching the original's
// package_yaml_write contract (round-trips through Load).
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "pkgfile: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "pkgfile: write %s", path)
	}
	return nil
}

// AddDependency appends dep, or replaces the existing entry with the
// same Name — the original's package_yaml_add_dependency behaves as an
// upsert (test_yaml_update_dependency keeps dependency_count at 1).
func (m *Manifest) AddDependency(dep Dependency) {
	for i, existing := range m.Dependencies {
		if existing.Name == dep.Name {
			m.Dependencies[i] = dep
			return
		}
	}
	m.Dependencies = append(m.Dependencies, dep)
}

// ParseURLRef splits a dependency git URL into its base clone URL and
// an optional trailing `@ref` (tag or branch name), grounded on
// package_tests.c's test_parse_url_ref_* cases. The split point is the
// "@" immediately following the last ".git" in the URL, not the first
// "@" in the string — an ssh URL's "user@host" "@" must never be
// mistaken for the ref separator.
func ParseURLRef(url string) (baseURL, ref string, hasRef bool) {
	gitIdx := strings.LastIndex(url, ".git")
	if gitIdx == -1 {
		return url, "", false
	}
	afterGit := gitIdx + len(".git")
	rest := url[afterGit:]
	if !strings.HasPrefix(rest, "@") || len(rest) == 1 {
		return url, "", false
	}
	return url[:afterGit], rest[1:], true
}

// ExtractName derives a dependency's package name from its git URL: the
// final path segment, with a trailing ".git" stripped, grounded on
// package_tests.c's test_extract_name_* cases (https, ssh, no-extension,
// and nested-group paths all reduce to the same rule).
func ExtractName(url string) (string, bool) {
	base, _, _ := ParseURLRef(url)
	segments := strings.Split(base, "/")
	last := segments[len(segments)-1]
	last = strings.TrimSuffix(last, ".git")
	if last == "" {
		return "", false
	}
	return last, true
}

// Fetcher clones or updates one dependency on disk; the CLI supplies
// the real git invocation, this package only sequences the calls.
type Fetcher func(ctx context.Context, dep Dependency) error

// ResolveDependencies fetches every declared dependency concurrently via
// errgroup (ambient-stack concurrency named in SPEC_FULL.md, distinct
// from the emitted program's thread model), stopping at the first error.
func (m *Manifest) ResolveDependencies(ctx context.Context, fetch Fetcher) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, dep := range m.Dependencies {
		dep := dep
		g.Go(func() error {
			if err := fetch(gctx, dep); err != nil {
				return errors.Wrapf(err, "pkgfile: fetch %s", dep.Name)
			}
			return nil
		})
	}
	return g.Wait()
}
