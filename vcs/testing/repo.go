package testing

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/go-automerge/vcs"
)

// A Committer is a store that can also write commit objects, such as
// *gogit.Repository.
type Committer interface {
	vcs.Store
	CommitTree(tree vcs.ObjectID, parents []vcs.CommitID, message string, sig vcs.Signature) (vcs.CommitID, error)
}

// File is a file to commit. A zero Mode means vcs.ModeRegular.
type File struct {
	Path string
	Data string
	Mode vcs.FileMode
}

// Signature is the author and committer of every commit made by
// Commit.
var Signature = vcs.Signature{
	Name:  "a",
	Email: "a@a.com",
	Date:  time.Date(2014, 6, 1, 12, 0, 0, 0, time.UTC),
}

// Commit writes files as a tree and commits it with the given parents,
// failing the test on any error.
func Commit(t testing.TB, c Committer, message string, files []File, parents ...vcs.CommitID) vcs.CommitID {
	t.Helper()
	ins := c.NewInserter()
	defer ins.Close()

	entries := make([]vcs.TreeEntry, 0, len(files))
	for _, f := range files {
		id, err := ins.WriteBlob([]byte(f.Data))
		if err != nil {
			t.Fatalf("write blob %s: %s", f.Path, err)
		}
		mode := f.Mode
		if mode == 0 {
			mode = vcs.ModeRegular
		}
		entries = append(entries, vcs.TreeEntry{Path: f.Path, Mode: mode, ID: id})
	}
	tree, err := ins.WriteTree(entries)
	if err != nil {
		t.Fatalf("write tree: %s", err)
	}
	if err := ins.Flush(); err != nil {
		t.Fatalf("flush: %s", err)
	}
	id, err := c.CommitTree(tree, parents, message, Signature)
	if err != nil {
		t.Fatalf("commit: %s", err)
	}
	return id
}

// GetCommit reads a commit, failing the test on error.
func GetCommit(t testing.TB, r vcs.ObjectReader, id vcs.CommitID) *vcs.Commit {
	t.Helper()
	c, err := r.GetCommit(id)
	if err != nil {
		t.Fatalf("GetCommit(%s): %s", id, err)
	}
	return c
}

// CountingStore wraps a store and counts the writes made through it.
type CountingStore struct {
	vcs.Store

	blobs, trees, flushes, refUpdates int64
}

func NewCountingStore(s vcs.Store) *CountingStore { return &CountingStore{Store: s} }

func (s *CountingStore) NewInserter() vcs.Inserter {
	return countingInserter{Inserter: s.Store.NewInserter(), s: s}
}

func (s *CountingStore) UpdateRef(u vcs.RefUpdate) error {
	atomic.AddInt64(&s.refUpdates, 1)
	return s.Store.UpdateRef(u)
}

// Writes returns the number of objects written and flushes and ref
// updates made since the store was created.
func (s *CountingStore) Writes() int64 {
	return atomic.LoadInt64(&s.blobs) + atomic.LoadInt64(&s.trees) + atomic.LoadInt64(&s.flushes) + atomic.LoadInt64(&s.refUpdates)
}

func (s *CountingStore) Blobs() int64      { return atomic.LoadInt64(&s.blobs) }
func (s *CountingStore) Trees() int64      { return atomic.LoadInt64(&s.trees) }
func (s *CountingStore) Flushes() int64    { return atomic.LoadInt64(&s.flushes) }
func (s *CountingStore) RefUpdates() int64 { return atomic.LoadInt64(&s.refUpdates) }

type countingInserter struct {
	vcs.Inserter
	s *CountingStore
}

func (i countingInserter) WriteBlob(data []byte) (vcs.ObjectID, error) {
	atomic.AddInt64(&i.s.blobs, 1)
	return i.Inserter.WriteBlob(data)
}

func (i countingInserter) WriteTree(entries []vcs.TreeEntry) (vcs.ObjectID, error) {
	atomic.AddInt64(&i.s.trees, 1)
	return i.Inserter.WriteTree(entries)
}

func (i countingInserter) Flush() error {
	atomic.AddInt64(&i.s.flushes, 1)
	return i.Inserter.Flush()
}
