package testing

import (
	"github.com/sourcegraph/go-automerge/vcs"
)

// MockStore is a vcs.Store whose methods call the corresponding func
// fields. Calling a method whose field is nil panics.
type MockStore struct {
	GetCommit_   func(vcs.CommitID) (*vcs.Commit, error)
	GetTree_     func(vcs.ObjectID) (*vcs.Tree, error)
	ReadBlob_    func(vcs.ObjectID) ([]byte, error)
	MergeBase_   func(a, b vcs.CommitID) (vcs.CommitID, error)
	NewInserter_ func() vcs.Inserter

	Ref_       func(name string) (vcs.ObjectID, error)
	UpdateRef_ func(vcs.RefUpdate) error
}

var _ vcs.Store = MockStore{}

func (s MockStore) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	return s.GetCommit_(id)
}

func (s MockStore) GetTree(id vcs.ObjectID) (*vcs.Tree, error) {
	return s.GetTree_(id)
}

func (s MockStore) ReadBlob(id vcs.ObjectID) ([]byte, error) {
	return s.ReadBlob_(id)
}

func (s MockStore) MergeBase(a, b vcs.CommitID) (vcs.CommitID, error) {
	return s.MergeBase_(a, b)
}

func (s MockStore) NewInserter() vcs.Inserter {
	return s.NewInserter_()
}

func (s MockStore) Ref(name string) (vcs.ObjectID, error) {
	return s.Ref_(name)
}

func (s MockStore) UpdateRef(u vcs.RefUpdate) error {
	return s.UpdateRef_(u)
}

type MockInserter struct {
	WriteBlob_ func(data []byte) (vcs.ObjectID, error)
	WriteTree_ func(entries []vcs.TreeEntry) (vcs.ObjectID, error)
	Flush_     func() error
	Close_     func() error
}

var _ vcs.Inserter = MockInserter{}

func (i MockInserter) WriteBlob(data []byte) (vcs.ObjectID, error) {
	return i.WriteBlob_(data)
}

func (i MockInserter) WriteTree(entries []vcs.TreeEntry) (vcs.ObjectID, error) {
	return i.WriteTree_(entries)
}

func (i MockInserter) Flush() error {
	return i.Flush_()
}

func (i MockInserter) Close() error {
	if i.Close_ == nil {
		return nil
	}
	return i.Close_()
}
