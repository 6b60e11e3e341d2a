package pkgfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTestFetch = errors.New("fetch failed")

func TestParseURLRefWithTag(t *testing.T) {
	base, ref, has := ParseURLRef("https://github.com/user/repo.git@v1.0.0")
	require.True(t, has)
	require.Equal(t, "https://github.com/user/repo.git", base)
	require.Equal(t, "v1.0.0", ref)
}

func TestParseURLRefWithBranch(t *testing.T) {
	base, ref, has := ParseURLRef("https://github.com/user/repo.git@main")
	require.True(t, has)
	require.Equal(t, "https://github.com/user/repo.git", base)
	require.Equal(t, "main", ref)
}

func TestParseURLRefNoRef(t *testing.T) {
	base, ref, has := ParseURLRef("https://github.com/user/repo.git")
	require.False(t, has)
	require.Equal(t, "https://github.com/user/repo.git", base)
	require.Equal(t, "", ref)
}

func TestParseURLRefSSHWithTag(t *testing.T) {
	base, ref, has := ParseURLRef("git@github.com:user/repo.git@v2.0")
	require.True(t, has)
	require.Equal(t, "git@github.com:user/repo.git", base)
	require.Equal(t, "v2.0", ref)
}

func TestParseURLRefSSHNoRef(t *testing.T) {
	base, _, has := ParseURLRef("git@github.com:user/repo.git")
	require.False(t, has)
	require.Equal(t, "git@github.com:user/repo.git", base)
}

func TestExtractNameHTTPS(t *testing.T) {
	name, ok := ExtractName("https://github.com/user/my-library.git")
	require.True(t, ok)
	require.Equal(t, "my-library", name)
}

func TestExtractNameSSH(t *testing.T) {
	name, ok := ExtractName("git@github.com:org/sn-utils.git")
	require.True(t, ok)
	require.Equal(t, "sn-utils", name)
}

func TestExtractNameNoGitExtension(t *testing.T) {
	name, ok := ExtractName("https://github.com/user/repo")
	require.True(t, ok)
	require.Equal(t, "repo", name)
}

func TestExtractNameNestedPath(t *testing.T) {
	name, ok := ExtractName("https://gitlab.com/group/subgroup/project.git")
	require.True(t, ok)
	require.Equal(t, "project", name)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.yaml")
	m := &Manifest{Name: "test-project", Version: "1.0.0", Author: "Test Author",
		Description: "A test project", License: "MIT"}
	require.NoError(t, m.Save(path))

	parsed, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "test-project", parsed.Name)
	require.Equal(t, "1.0.0", parsed.Version)
	require.Equal(t, "Test Author", parsed.Author)
	require.Empty(t, parsed.Dependencies)
}

func TestSaveAndLoadWithDependencies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.yaml")
	m := &Manifest{Name: "my-app", Version: "2.0.0"}
	m.AddDependency(Dependency{Name: "utils", GitURL: "https://github.com/user/utils.git", Tag: "v1.2.0"})
	m.AddDependency(Dependency{Name: "http", GitURL: "git@github.com:org/http.git", Branch: "main"})
	require.NoError(t, m.Save(path))

	parsed, err := Load(path)
	require.NoError(t, err)
	require.Len(t, parsed.Dependencies, 2)
	require.Equal(t, "utils", parsed.Dependencies[0].Name)
	require.Equal(t, "v1.2.0", parsed.Dependencies[0].Tag)
	require.Equal(t, "main", parsed.Dependencies[1].Branch)
}

func TestAddDependencyUpdatesExistingByName(t *testing.T) {
	m := &Manifest{Name: "test-app"}
	m.AddDependency(Dependency{Name: "lib", GitURL: "https://github.com/old/lib.git", Tag: "v1.0"})
	m.AddDependency(Dependency{Name: "lib", GitURL: "https://github.com/new/lib.git", Tag: "v2.0"})

	require.Len(t, m.Dependencies, 1)
	require.Equal(t, "https://github.com/new/lib.git", m.Dependencies[0].GitURL)
	require.Equal(t, "v2.0", m.Dependencies[0].Tag)
}

func TestResolveDependenciesFetchesAllConcurrently(t *testing.T) {
	m := &Manifest{Name: "app"}
	m.AddDependency(Dependency{Name: "a", GitURL: "https://github.com/x/a.git"})
	m.AddDependency(Dependency{Name: "b", GitURL: "https://github.com/x/b.git"})

	seen := make(chan string, 2)
	err := m.ResolveDependencies(context.Background(), func(_ context.Context, dep Dependency) error {
		seen <- dep.Name
		return nil
	})
	require.NoError(t, err)
	close(seen)
	var got []string
	for name := range seen {
		got = append(got, name)
	}
	require.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestResolveDependenciesStopsOnFirstError(t *testing.T) {
	m := &Manifest{Name: "app"}
	m.AddDependency(Dependency{Name: "broken", GitURL: "https://github.com/x/broken.git"})

	err := m.ResolveDependencies(context.Background(), func(_ context.Context, dep Dependency) error {
		return errTestFetch
	})
	require.ErrorIs(t, err, errTestFetch)
}
