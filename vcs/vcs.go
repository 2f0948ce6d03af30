package vcs

import (
	"sync"

	"github.com/pkg/errors"
)

// An Opener opens the store in dir.
type Opener func(dir string) (Store, error)

var (
	openersMu sync.RWMutex
	openers   = make(map[string]Opener)
)

// RegisterOpener registers a func to open stores of the given backend
// type. Backend packages call it from init; a later registration for
// the same type replaces the earlier one.
func RegisterOpener(vcsType string, f Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[vcsType] = f
}

// Open opens the store in dir using the opener registered for vcsType.
func Open(vcsType, dir string) (Store, error) {
	openersMu.RLock()
	open, present := openers[vcsType]
	openersMu.RUnlock()
	if !present {
		return nil, errors.Errorf("unknown VCS type %q (is its backend package imported?)", vcsType)
	}
	return open(dir)
}

// A RevisionResolver resolves revision specifiers (branch names, tags,
// abbreviated IDs, etc.) to commit IDs.
type RevisionResolver interface {
	ResolveRevision(spec string) (CommitID, error)
}
