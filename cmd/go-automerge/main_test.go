package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/automerge"
	"github.com/sourcegraph/go-automerge/vcs/gogit"
	vcstesting "github.com/sourcegraph/go-automerge/vcs/testing"
)

type testRepo struct {
	dir          string
	ours, theirs vcs.CommitID
	clean, dirty vcs.CommitID
}

// newTestRepo creates a repository with two merge commits of the same
// parents: "clean" records the mechanical merge and "dirty" also edits
// the conflicting file.
func newTestRepo(t *testing.T) *testRepo {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	r, err := gogit.Open(dir)
	require.NoError(t, err)

	f := func(path, data string) vcstesting.File { return vcstesting.File{Path: path, Data: data} }
	base := vcstesting.Commit(t, r, "base", []vcstesting.File{f("f", "1\n2\n3\n"), f("g", "g\n")})
	ours := vcstesting.Commit(t, r, "ours", []vcstesting.File{f("f", "one\n2\n3\n"), f("g", "g\n")}, base)
	theirs := vcstesting.Commit(t, r, "theirs", []vcstesting.File{f("f", "1\n2\n3\n"), f("g", "G\n")}, base)
	clean := vcstesting.Commit(t, r, "clean merge", []vcstesting.File{f("f", "one\n2\n3\n"), f("g", "G\n")}, ours, theirs)
	dirty := vcstesting.Commit(t, r, "dirty merge", []vcstesting.File{f("f", "one\n2\n3\nfour\n"), f("g", "G\n")}, ours, theirs)

	require.NoError(t, r.UpdateRef(vcs.RefUpdate{Name: "refs/heads/clean", ID: vcs.ObjectID(clean), Force: true}))
	require.NoError(t, r.UpdateRef(vcs.RefUpdate{Name: "refs/heads/dirty", ID: vcs.ObjectID(dirty), Force: true}))
	return &testRepo{dir: dir, ours: ours, theirs: theirs, clean: clean, dirty: dirty}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestKey(t *testing.T) {
	out, err := run(t, "key", "c556aa409427eed1322744a02ad23066f51040fb")
	require.NoError(t, err)
	assert.Equal(t, "refs/cache-automerge/c5/56aa409427eed1322744a02ad23066f51040fb\n", out)

	_, err = run(t, "key", "HEAD")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	repo := newTestRepo(t)

	out, err := run(t, "-C", repo.dir, "merge", "clean", string(repo.dirty))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, out)
	assert.True(t, strings.HasPrefix(lines[0], string(repo.clean)+" "), lines[0])
	assert.NotContains(t, lines[0], "cached")

	out, err = run(t, "-C", repo.dir, "merge", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "(cached)")

	r, err := gogit.Open(repo.dir)
	require.NoError(t, err)
	name, err := automerge.CacheKey(repo.clean)
	require.NoError(t, err)
	_, err = r.Ref(name)
	assert.NoError(t, err)
}

func TestMerge_noSave(t *testing.T) {
	repo := newTestRepo(t)
	_, err := run(t, "-C", repo.dir, "--save=false", "merge", "clean")
	require.NoError(t, err)

	r, err := gogit.Open(repo.dir)
	require.NoError(t, err)
	name, _ := automerge.CacheKey(repo.clean)
	_, err = r.Ref(name)
	assert.Error(t, err)
}

func TestMerge_errors(t *testing.T) {
	repo := newTestRepo(t)
	_, err := run(t, "-C", repo.dir, "merge", "clean", "no-such-branch", string(repo.ours))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")

	_, err = run(t, "-C", repo.dir, "--strategy", "octopus", "merge", "clean")
	assert.Error(t, err)

	_, err = run(t, "-C", repo.dir, "merge", "--jobs", "0", "clean")
	assert.Error(t, err)
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestMerge_writeError(t *testing.T) {
	repo := newTestRepo(t)
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	cmd.SetOut(errWriter{})
	cmd.SetArgs([]string{"-C", repo.dir, "--save=false", "merge", "clean"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestMerge_strategyFromEnv(t *testing.T) {
	repo := newTestRepo(t)
	t.Setenv("AUTOMERGE_STRATEGY", "theirs")
	_, err := run(t, "-C", repo.dir, "--save=false", "show", "dirty")
	require.NoError(t, err)

	t.Setenv("AUTOMERGE_STRATEGY", "nope")
	_, err = run(t, "-C", repo.dir, "show", "dirty")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(repo.dir, configName+".yaml"), []byte("strategy: nope\n"), 0644))
	_, err := run(t, "-C", repo.dir, "show", "dirty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	// Flags win over the config file.
	_, err = run(t, "-C", repo.dir, "--strategy", "ours", "--save=false", "show", "dirty")
	assert.NoError(t, err)
}

func TestShow(t *testing.T) {
	repo := newTestRepo(t)
	out, err := run(t, "-C", repo.dir, "show", "dirty")
	require.NoError(t, err)
	assert.Contains(t, out, "\tdirty merge\n")
	assert.Contains(t, out, "0 conflicts")
	assert.Contains(t, out, "\tf\n")
	assert.Contains(t, out, "\tg\n")
}

func TestDiff(t *testing.T) {
	repo := newTestRepo(t)

	out, err := run(t, "-C", repo.dir, "diff", "clean")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run(t, "-C", repo.dir, "diff", "dirty")
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/f")
	assert.Contains(t, out, "+++ b/f")
	assert.Contains(t, out, "+four\n")
	assert.NotContains(t, out, "a/g")
}

func TestHunk(t *testing.T) {
	h := hunk("a\nb\n", "a\nc\nd")
	require.NotNil(t, h)
	assert.Equal(t, " a\n-b\n+c\n+d\n", string(h.Body))
	assert.EqualValues(t, 1, h.OrigStartLine)
	assert.EqualValues(t, 2, h.OrigLines)
	assert.EqualValues(t, 3, h.NewLines)

	assert.Nil(t, hunk("same\n", "same\n"))

	added := hunk("", "x\n")
	assert.EqualValues(t, 0, added.OrigStartLine)
	assert.EqualValues(t, 1, added.NewStartLine)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		_, err := newLogger("debug", format)
		assert.NoError(t, err, format)
	}
	_, err := newLogger("loud", "json")
	assert.Error(t, err)
	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}
