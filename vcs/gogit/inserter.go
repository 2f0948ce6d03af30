package gogit

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/pkg/errors"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/internal"
)

var errInserterClosed = errors.New("inserter is closed")

// inserter buffers encoded objects in memory and hands them to the
// storer on Flush.
type inserter struct {
	s       storer.EncodedObjectStorer
	pending []plumbing.EncodedObject
	seen    map[plumbing.Hash]struct{}
	closed  bool
}

func newInserter(s storer.EncodedObjectStorer) *inserter {
	return &inserter{s: s, seen: make(map[plumbing.Hash]struct{})}
}

func (ins *inserter) add(obj *plumbing.MemoryObject) plumbing.Hash {
	h := obj.Hash()
	if _, dup := ins.seen[h]; !dup {
		ins.seen[h] = struct{}{}
		ins.pending = append(ins.pending, obj)
	}
	return h
}

func (ins *inserter) WriteBlob(data []byte) (vcs.ObjectID, error) {
	if ins.closed {
		return "", errInserterClosed
	}
	obj := &plumbing.MemoryObject{}
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))
	w, err := obj.Writer()
	if err != nil {
		return "", errors.Wrap(err, "write blob")
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", errors.Wrap(err, "write blob")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "write blob")
	}
	return vcs.ObjectID(ins.add(obj).String()), nil
}

func (ins *inserter) WriteTree(entries []vcs.TreeEntry) (vcs.ObjectID, error) {
	if ins.closed {
		return "", errInserterClosed
	}
	root := newTreeNode()
	for _, e := range entries {
		if err := root.insert(e); err != nil {
			return "", err
		}
	}
	h, err := ins.writeNode(root)
	if err != nil {
		return "", err
	}
	return vcs.ObjectID(h.String()), nil
}

func (ins *inserter) writeNode(n *treeNode) (plumbing.Hash, error) {
	t := &object.Tree{Entries: make([]object.TreeEntry, 0, len(n.files)+len(n.dirs))}
	for _, e := range n.files {
		t.Entries = append(t.Entries, e)
	}
	for name, child := range n.dirs {
		h, err := ins.writeNode(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		t.Entries = append(t.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h})
	}
	sort.Sort(gitOrder(t.Entries))

	obj := &plumbing.MemoryObject{}
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, errors.Wrap(err, "encode tree")
	}
	return ins.add(obj), nil
}

func (ins *inserter) Flush() error {
	if ins.closed {
		return errInserterClosed
	}
	for i, obj := range ins.pending {
		if _, err := ins.s.SetEncodedObject(obj); err != nil {
			ins.pending = ins.pending[i:]
			return errors.Wrapf(err, "flush object %s", obj.Hash())
		}
	}
	ins.pending = nil
	return nil
}

func (ins *inserter) Close() error {
	ins.closed = true
	ins.pending = nil
	return nil
}

type treeNode struct {
	files map[string]object.TreeEntry
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{files: make(map[string]object.TreeEntry), dirs: make(map[string]*treeNode)}
}

func (n *treeNode) insert(e vcs.TreeEntry) error {
	if !internal.ValidTreePath(e.Path) {
		return errors.Errorf("invalid tree path %q", e.Path)
	}
	h, err := hash(string(e.ID))
	if err != nil {
		return errors.Wrapf(err, "tree path %q", e.Path)
	}

	parts := strings.Split(e.Path, "/")
	for i, dir := range parts[:len(parts)-1] {
		if _, isFile := n.files[dir]; isFile {
			return errors.Errorf("tree path %q: %q is both a file and a directory", e.Path, strings.Join(parts[:i+1], "/"))
		}
		child, ok := n.dirs[dir]
		if !ok {
			child = newTreeNode()
			n.dirs[dir] = child
		}
		n = child
	}

	name := parts[len(parts)-1]
	if _, dup := n.files[name]; dup {
		return errors.Errorf("duplicate tree path %q", e.Path)
	}
	if _, isDir := n.dirs[name]; isDir {
		return errors.Errorf("tree path %q is both a file and a directory", e.Path)
	}
	n.files[name] = object.TreeEntry{Name: name, Mode: filemode.FileMode(e.Mode), Hash: h}
	return nil
}

// gitOrder sorts tree entries the way git does: subtree names compare
// as if they ended in '/'.
type gitOrder []object.TreeEntry

func (p gitOrder) Len() int      { return len(p) }
func (p gitOrder) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p gitOrder) Less(i, j int) bool {
	return sortName(p[i]) < sortName(p[j])
}

func sortName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
