package automerge

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sourcegraph/go-automerge/vcs"
)

// RefPrefix is the ref namespace that holds cached automerge trees.
const RefPrefix = "refs/cache-automerge/"

var ErrInvalidCommitID = errors.New("invalid commit ID")

// CacheKey returns the ref that caches the automerge tree of the given
// merge commit. The ID is split after its first two hex digits, the same
// fan-out git uses for loose objects.
func CacheKey(id vcs.CommitID) (string, error) {
	if !vcs.ValidHash(string(id)) {
		return "", errors.Wrapf(ErrInvalidCommitID, "%q", id)
	}
	return RefPrefix + string(id[:2]) + "/" + string(id[2:]), nil
}

// A Cache maps merge commits to previously synthesized trees.
type Cache interface {
	// Lookup returns the cached tree for a merge commit. ok is false if
	// there is none.
	Lookup(vcs.CommitID) (tree vcs.ObjectID, ok bool, err error)

	// Publish records tree as the automerge tree of a merge commit,
	// replacing any earlier binding.
	Publish(vcs.CommitID, vcs.ObjectID) error
}

// RefCache is a Cache backed by the refs of a store, so entries are
// shared by every process using the repository.
type RefCache struct {
	Refs vcs.RefStore
}

var _ Cache = (*RefCache)(nil)

func (c *RefCache) Lookup(id vcs.CommitID) (vcs.ObjectID, bool, error) {
	name, err := CacheKey(id)
	if err != nil {
		return "", false, err
	}
	tree, err := c.Refs.Ref(name)
	if errors.Is(err, vcs.ErrRefNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if tree.IsZero() {
		return "", false, nil
	}
	return tree, true, nil
}

// Publish overwrites the cache ref unconditionally. Writers racing on
// the same commit compute the same tree, so the last one may win.
func (c *RefCache) Publish(id vcs.CommitID, tree vcs.ObjectID) error {
	name, err := CacheKey(id)
	if err != nil {
		return err
	}
	return c.Refs.UpdateRef(vcs.RefUpdate{
		Name:          name,
		ID:            tree,
		Force:         true,
		DisableRefLog: true,
	})
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[vcs.CommitID]vcs.ObjectID
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[vcs.CommitID]vcs.ObjectID)}
}

func (c *MemoryCache) Lookup(id vcs.CommitID) (vcs.ObjectID, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tree, ok := c.entries[id]
	return tree, ok, nil
}

func (c *MemoryCache) Publish(id vcs.CommitID, tree vcs.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = tree
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
