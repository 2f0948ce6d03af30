package vcs

import "github.com/pkg/errors"

var (
	ErrCommitNotFound = errors.New("commit not found")
	ErrObjectNotFound = errors.New("object not found")
	ErrRefNotFound    = errors.New("ref not found")
	ErrRefChanged     = errors.New("ref changed concurrently")
)

// An ObjectReader reads immutable objects by ID.
type ObjectReader interface {
	// GetCommit returns the commit with the given ID, or an error
	// wrapping ErrCommitNotFound.
	GetCommit(CommitID) (*Commit, error)

	// GetTree returns the recursively flattened tree with the given
	// ID, or an error wrapping ErrObjectNotFound.
	GetTree(ObjectID) (*Tree, error)

	// ReadBlob returns the contents of a blob.
	ReadBlob(ObjectID) ([]byte, error)
}

// An ObjectWriter writes new objects. Objects written through an
// ObjectWriter belong to whoever owns the underlying Inserter and are
// not guaranteed to be readable until that Inserter is flushed.
type ObjectWriter interface {
	WriteBlob(data []byte) (ObjectID, error)

	// WriteTree writes a tree from a flat list of slash-separated
	// paths, creating intermediate subtrees as needed. It returns the
	// ID of the root tree.
	WriteTree(entries []TreeEntry) (ObjectID, error)
}

// An Inserter is an insertion transaction against an object store.
type Inserter interface {
	ObjectWriter

	// Flush makes every object written so far durable and resolvable
	// by other readers.
	Flush() error

	// Close releases the transaction. Objects written since the last
	// Flush are discarded.
	Close() error
}

// An ObjectStore is a content-addressable store of blobs, trees and
// commits.
type ObjectStore interface {
	ObjectReader
	Merger

	// NewInserter opens a new, private insertion transaction.
	NewInserter() Inserter
}

// RefUpdate describes a single ref update.
type RefUpdate struct {
	Name string
	ID   ObjectID

	// Old is the expected current value when Force is false. An empty
	// Old means the ref must not exist yet.
	Old ObjectID

	// Force skips the compare-and-swap check against Old.
	Force bool

	// DisableRefLog suppresses reflog entries for this update.
	DisableRefLog bool
}

// A RefStore holds named, mutable bindings to object IDs.
type RefStore interface {
	// Ref returns the object ID the named ref points to, or an error
	// wrapping ErrRefNotFound.
	Ref(name string) (ObjectID, error)

	// UpdateRef atomically replaces a single binding.
	UpdateRef(RefUpdate) error
}

// A Store is an object store that also holds refs.
type Store interface {
	ObjectStore
	RefStore
}
