package gogit_test

import (
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/gogit"
	vcstesting "github.com/sourcegraph/go-automerge/vcs/testing"
)

const (
	emptyTree = vcs.ObjectID("4b825dc642cb6eb9a060e54bf8d69288fbee4904")
	helloBlob = vcs.ObjectID("ce013625030ba8dba906f756967f9e9ca394464a") // "hello\n"
)

func TestInserter_invisibleUntilFlush(t *testing.T) {
	r := gogit.NewMemory()
	ins := r.NewInserter()
	defer ins.Close()

	id, err := ins.WriteBlob([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, helloBlob, id)

	_, err = r.ReadBlob(id)
	assert.True(t, errors.Is(err, vcs.ErrObjectNotFound), "got %v before flush", err)

	require.NoError(t, ins.Flush())
	data, err := r.ReadBlob(id)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestInserter_closeDiscards(t *testing.T) {
	r := gogit.NewMemory()
	ins := r.NewInserter()
	id, err := ins.WriteBlob([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	_, err = r.ReadBlob(id)
	assert.True(t, errors.Is(err, vcs.ErrObjectNotFound))
	assert.Error(t, ins.Flush())
	_, err = ins.WriteBlob([]byte("x"))
	assert.Error(t, err)
}

func TestInserter_WriteTree(t *testing.T) {
	r := gogit.NewMemory()
	ins := r.NewInserter()
	defer ins.Close()

	empty, err := ins.WriteTree(nil)
	require.NoError(t, err)
	assert.Equal(t, emptyTree, empty)

	blob, err := ins.WriteBlob([]byte("hello\n"))
	require.NoError(t, err)
	entries := []vcs.TreeEntry{
		{Path: "a/b", Mode: vcs.ModeRegular, ID: blob},
		{Path: "a.txt", Mode: vcs.ModeRegular, ID: blob},
		{Path: "dir/sub/run", Mode: vcs.ModeExecutable, ID: blob},
		{Path: "link", Mode: vcs.ModeSymlink, ID: blob},
	}
	id, err := ins.WriteTree(entries)
	require.NoError(t, err)
	require.NoError(t, ins.Flush())

	tree, err := r.GetTree(id)
	require.NoError(t, err)
	assert.Equal(t, id, tree.ID)
	assert.Equal(t, []vcs.TreeEntry{
		{Path: "a.txt", Mode: vcs.ModeRegular, ID: blob},
		{Path: "a/b", Mode: vcs.ModeRegular, ID: blob},
		{Path: "dir/sub/run", Mode: vcs.ModeExecutable, ID: blob},
		{Path: "link", Mode: vcs.ModeSymlink, ID: blob},
	}, tree.Entries)

	// The same entries in another order give the same tree.
	again, err := ins.WriteTree([]vcs.TreeEntry{entries[3], entries[2], entries[1], entries[0]})
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestInserter_WriteTree_invalid(t *testing.T) {
	tests := map[string][]vcs.TreeEntry{
		"duplicate":     {{Path: "a", Mode: vcs.ModeRegular, ID: helloBlob}, {Path: "a", Mode: vcs.ModeRegular, ID: helloBlob}},
		"file then dir": {{Path: "a", Mode: vcs.ModeRegular, ID: helloBlob}, {Path: "a/b", Mode: vcs.ModeRegular, ID: helloBlob}},
		"dir then file": {{Path: "a/b", Mode: vcs.ModeRegular, ID: helloBlob}, {Path: "a", Mode: vcs.ModeRegular, ID: helloBlob}},
		"absolute":      {{Path: "/a", Mode: vcs.ModeRegular, ID: helloBlob}},
		"parent":        {{Path: "../a", Mode: vcs.ModeRegular, ID: helloBlob}},
		"double slash":  {{Path: "a//b", Mode: vcs.ModeRegular, ID: helloBlob}},
		"empty path":    {{Path: "", Mode: vcs.ModeRegular, ID: helloBlob}},
		"bad object ID": {{Path: "a", Mode: vcs.ModeRegular, ID: "xyz"}},
	}
	r := gogit.NewMemory()
	for label, entries := range tests {
		ins := r.NewInserter()
		if _, err := ins.WriteTree(entries); err == nil {
			t.Errorf("%s: got nil error, want error", label)
		}
		ins.Close()
	}
}

func TestRepository_GetCommit(t *testing.T) {
	r := gogit.NewMemory()
	root := vcstesting.Commit(t, r, "root\n\nbody", []vcstesting.File{{Path: "f", Data: "hello\n"}})
	child := vcstesting.Commit(t, r, "child", nil, root)

	c, err := r.GetCommit(child)
	require.NoError(t, err)
	assert.Equal(t, child, c.ID)
	assert.Equal(t, []vcs.CommitID{root}, c.Parents)
	assert.Equal(t, emptyTree, c.Tree)
	assert.Equal(t, vcstesting.Signature.Name, c.Author.Name)
	assert.True(t, vcstesting.Signature.Date.Equal(c.Author.Date))

	c, err = r.GetCommit(root)
	require.NoError(t, err)
	assert.Equal(t, "root", c.Subject())
	assert.Empty(t, c.Parents)

	_, err = r.GetCommit("0123456789012345678901234567890123456789")
	assert.True(t, errors.Is(err, vcs.ErrCommitNotFound), "got %v", err)

	_, err = r.GetCommit("nope")
	assert.Error(t, err)
}

func TestRepository_MergeBase(t *testing.T) {
	r := gogit.NewMemory()
	root := vcstesting.Commit(t, r, "root", []vcstesting.File{{Path: "f", Data: "a\n"}})
	a := vcstesting.Commit(t, r, "a", []vcstesting.File{{Path: "f", Data: "b\n"}}, root)
	b := vcstesting.Commit(t, r, "b", []vcstesting.File{{Path: "f", Data: "c\n"}}, root)
	other := vcstesting.Commit(t, r, "unrelated", []vcstesting.File{{Path: "g", Data: "x\n"}})

	base, err := r.MergeBase(a, b)
	require.NoError(t, err)
	assert.Equal(t, root, base)

	base, err = r.MergeBase(a, other)
	require.NoError(t, err)
	assert.Equal(t, vcs.CommitID(""), base)
}

func TestRepository_refs(t *testing.T) {
	r := gogit.NewMemory()
	c1 := vcstesting.Commit(t, r, "one", nil)
	c2 := vcstesting.Commit(t, r, "two", nil, c1)
	id1, id2 := vcs.ObjectID(c1), vcs.ObjectID(c2)
	const name = "refs/heads/master"

	_, err := r.Ref(name)
	assert.True(t, errors.Is(err, vcs.ErrRefNotFound), "got %v", err)

	require.NoError(t, r.UpdateRef(vcs.RefUpdate{Name: name, ID: id1}))
	got, err := r.Ref(name)
	require.NoError(t, err)
	assert.Equal(t, id1, got)

	// Creating an existing ref fails.
	err = r.UpdateRef(vcs.RefUpdate{Name: name, ID: id2})
	assert.True(t, errors.Is(err, vcs.ErrRefChanged), "got %v", err)

	// So does a compare-and-swap against the wrong old value.
	err = r.UpdateRef(vcs.RefUpdate{Name: name, ID: id2, Old: id2})
	assert.True(t, errors.Is(err, vcs.ErrRefChanged), "got %v", err)

	require.NoError(t, r.UpdateRef(vcs.RefUpdate{Name: name, ID: id2, Old: id1}))
	require.NoError(t, r.UpdateRef(vcs.RefUpdate{Name: name, ID: id1, Force: true}))
	got, err = r.Ref(name)
	require.NoError(t, err)
	assert.Equal(t, id1, got)

	rev, err := r.ResolveRevision("master")
	require.NoError(t, err)
	assert.Equal(t, c1, rev)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	s, err := vcs.Open("git", dir)
	require.NoError(t, err)
	repo, ok := s.(*gogit.Repository)
	require.True(t, ok, "got %T", s)

	id := vcstesting.Commit(t, repo, "on disk", []vcstesting.File{{Path: "f", Data: "hello\n"}})
	reopened, err := gogit.Open(dir)
	require.NoError(t, err)
	c, err := reopened.GetCommit(id)
	require.NoError(t, err)

	tree, err := reopened.GetTree(c.Tree)
	require.NoError(t, err)
	assert.Equal(t, []vcs.TreeEntry{{Path: "f", Mode: vcs.ModeRegular, ID: helloBlob}}, tree.Entries)
}
