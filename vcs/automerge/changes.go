package automerge

import (
	"github.com/sourcegraph/go-automerge/vcs"
)

type ChangeType int

const (
	Added ChangeType = iota + 1
	Deleted
	Modified
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	}
	return "unknown"
}

// A Change is a path that differs between two trees. Old is nil for
// added paths and New is nil for deleted ones.
type Change struct {
	Path     string
	Type     ChangeType
	Old, New *vcs.TreeEntry
}

// Changes lists the paths that differ between from and to, sorted by
// path. A mode change alone counts as a modification.
func Changes(from, to *vcs.Tree) []Change {
	var changes []Change
	a, b := from.Entries, to.Entries
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i].Path < b[j].Path):
			old := a[i]
			changes = append(changes, Change{Path: old.Path, Type: Deleted, Old: &old})
			i++
		case i >= len(a) || b[j].Path < a[i].Path:
			nw := b[j]
			changes = append(changes, Change{Path: nw.Path, Type: Added, New: &nw})
			j++
		default:
			old, nw := a[i], b[j]
			if old.Mode != nw.Mode || old.ID != nw.ID {
				changes = append(changes, Change{Path: old.Path, Type: Modified, Old: &old, New: &nw})
			}
			i++
			j++
		}
	}
	return changes
}

// CommitChanges returns the changes a merge commit makes on top of its
// automerge tree: an empty list means the commit is exactly the
// mechanical merge of its parents.
func (a *Automerger) CommitChanges(c *vcs.Commit, strategy vcs.MergeStrategy, persist bool) ([]Change, *Result, error) {
	res, err := a.Synthesize(c, strategy, persist)
	if err != nil {
		return nil, nil, err
	}
	tree, err := a.Store.GetTree(c.Tree)
	if err != nil {
		return nil, nil, err
	}
	return Changes(res.Tree, tree), res, nil
}
