// Package gogit implements vcs.Store on top of go-git, a pure-Go git
// implementation.
package gogit

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"

	"github.com/sourcegraph/go-automerge/vcs"
)

func init() {
	vcs.RegisterOpener("git", func(dir string) (vcs.Store, error) {
		return Open(dir)
	})
}

// Repository is a git repository accessed through go-git.
type Repository struct {
	repo *git.Repository
	s    storage.Storer
	desc string
}

var (
	_ vcs.Store            = (*Repository)(nil)
	_ vcs.RevisionResolver = (*Repository)(nil)
)

func (r *Repository) String() string {
	return fmt.Sprintf("git (go-git) repo at %s", r.desc)
}

// Open opens the git repository containing dir.
func Open(dir string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "open git repository %s", dir)
	}
	return &Repository{repo: repo, s: repo.Storer, desc: dir}, nil
}

// NewMemory returns an empty, bare repository held in memory.
func NewMemory() *Repository {
	s := memory.NewStorage()
	repo, err := git.Init(s, nil)
	if err != nil {
		// Init only fails on a storage that is already initialized.
		panic(err)
	}
	return &Repository{repo: repo, s: s, desc: "memory"}
}

func hash(id string) (plumbing.Hash, error) {
	if !plumbing.IsHash(id) {
		return plumbing.ZeroHash, errors.Errorf("invalid object ID %q", id)
	}
	return plumbing.NewHash(id), nil
}

// ResolveRevision returns the commit that the given revision specifier
// resolves to.
func (r *Repository) ResolveRevision(spec string) (vcs.CommitID, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(spec))
	if err == plumbing.ErrReferenceNotFound {
		return "", errors.Wrapf(vcs.ErrRefNotFound, "resolve %q", spec)
	}
	if err != nil {
		return "", errors.Wrapf(err, "resolve %q", spec)
	}
	return vcs.CommitID(h.String()), nil
}

func (r *Repository) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	h, err := hash(string(id))
	if err != nil {
		return nil, err
	}
	c, err := object.GetCommit(r.s, h)
	if err == plumbing.ErrObjectNotFound {
		return nil, errors.Wrapf(vcs.ErrCommitNotFound, "commit %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read commit %s", id)
	}
	return makeCommit(c), nil
}

func makeCommit(c *object.Commit) *vcs.Commit {
	var parents []vcs.CommitID
	for _, p := range c.ParentHashes {
		parents = append(parents, vcs.CommitID(p.String()))
	}
	return &vcs.Commit{
		ID:        vcs.CommitID(c.Hash.String()),
		Tree:      vcs.ObjectID(c.TreeHash.String()),
		Author:    vcs.Signature{Name: c.Author.Name, Email: c.Author.Email, Date: c.Author.When},
		Committer: &vcs.Signature{Name: c.Committer.Name, Email: c.Committer.Email, Date: c.Committer.When},
		Message:   c.Message,
		Parents:   parents,
	}
}

func (r *Repository) GetTree(id vcs.ObjectID) (*vcs.Tree, error) {
	h, err := hash(string(id))
	if err != nil {
		return nil, err
	}
	t, err := object.GetTree(r.s, h)
	if err == plumbing.ErrObjectNotFound {
		return nil, errors.Wrapf(vcs.ErrObjectNotFound, "tree %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read tree %s", id)
	}

	tree := &vcs.Tree{ID: id}
	w := object.NewTreeWalker(t, true, nil)
	defer w.Close()
	for {
		name, e, err := w.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "walk tree %s", id)
		}
		if e.Mode == filemode.Dir {
			continue
		}
		tree.Entries = append(tree.Entries, vcs.TreeEntry{
			Path: name,
			Mode: vcs.FileMode(e.Mode),
			ID:   vcs.ObjectID(e.Hash.String()),
		})
	}
	// The walker yields git tree order, which sorts directories as if
	// they had a trailing slash.
	sort.Slice(tree.Entries, func(i, j int) bool { return tree.Entries[i].Path < tree.Entries[j].Path })
	return tree, nil
}

func (r *Repository) ReadBlob(id vcs.ObjectID) ([]byte, error) {
	h, err := hash(string(id))
	if err != nil {
		return nil, err
	}
	b, err := object.GetBlob(r.s, h)
	if err == plumbing.ErrObjectNotFound {
		return nil, errors.Wrapf(vcs.ErrObjectNotFound, "blob %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read blob %s", id)
	}
	rc, err := b.Reader()
	if err != nil {
		return nil, errors.Wrapf(err, "read blob %s", id)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, errors.Wrapf(err, "read blob %s", id)
	}
	return buf.Bytes(), nil
}

// MergeBase returns the best common ancestor of a and b. When there are
// several, the one with the lowest ID is returned so the choice is
// stable.
func (r *Repository) MergeBase(a, b vcs.CommitID) (vcs.CommitID, error) {
	ca, err := r.commitObject(a)
	if err != nil {
		return "", err
	}
	cb, err := r.commitObject(b)
	if err != nil {
		return "", err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", errors.Wrapf(err, "merge base of %s and %s", a, b)
	}
	if len(bases) == 0 {
		return "", nil
	}
	best := bases[0].Hash.String()
	for _, c := range bases[1:] {
		if h := c.Hash.String(); h < best {
			best = h
		}
	}
	return vcs.CommitID(best), nil
}

func (r *Repository) commitObject(id vcs.CommitID) (*object.Commit, error) {
	h, err := hash(string(id))
	if err != nil {
		return nil, err
	}
	c, err := object.GetCommit(r.s, h)
	if err == plumbing.ErrObjectNotFound {
		return nil, errors.Wrapf(vcs.ErrCommitNotFound, "commit %s", id)
	}
	return c, errors.Wrapf(err, "read commit %s", id)
}

// NewInserter opens a buffered insertion transaction. Nothing it
// writes reaches the repository's storage until Flush.
func (r *Repository) NewInserter() vcs.Inserter {
	return newInserter(r.s)
}

// CommitTree writes a commit object for tree. The commit is stored
// immediately.
func (r *Repository) CommitTree(tree vcs.ObjectID, parents []vcs.CommitID, message string, sig vcs.Signature) (vcs.CommitID, error) {
	th, err := hash(string(tree))
	if err != nil {
		return "", err
	}
	c := &object.Commit{
		Author:    object.Signature{Name: sig.Name, Email: sig.Email, When: sig.Date},
		Committer: object.Signature{Name: sig.Name, Email: sig.Email, When: sig.Date},
		Message:   message,
		TreeHash:  th,
	}
	for _, p := range parents {
		ph, err := hash(string(p))
		if err != nil {
			return "", err
		}
		c.ParentHashes = append(c.ParentHashes, ph)
	}

	obj := r.s.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return "", errors.Wrap(err, "encode commit")
	}
	h, err := r.s.SetEncodedObject(obj)
	if err != nil {
		return "", errors.Wrap(err, "store commit")
	}
	return vcs.CommitID(h.String()), nil
}

func (r *Repository) Ref(name string) (vcs.ObjectID, error) {
	ref, err := storer.ResolveReference(r.s, plumbing.ReferenceName(name))
	if err == plumbing.ErrReferenceNotFound {
		return "", errors.Wrapf(vcs.ErrRefNotFound, "ref %s", name)
	}
	if err != nil {
		return "", errors.Wrapf(err, "read ref %s", name)
	}
	return vcs.ObjectID(ref.Hash().String()), nil
}

// UpdateRef writes a loose ref. go-git keeps no reflogs, so
// DisableRefLog always holds.
func (r *Repository) UpdateRef(u vcs.RefUpdate) error {
	h, err := hash(string(u.ID))
	if err != nil {
		return err
	}
	name := plumbing.ReferenceName(u.Name)
	newRef := plumbing.NewHashReference(name, h)
	if u.Force {
		return errors.Wrapf(r.s.SetReference(newRef), "update ref %s", u.Name)
	}

	if u.Old == "" {
		if _, err := r.s.Reference(name); err == nil {
			return errors.Wrapf(vcs.ErrRefChanged, "update ref %s: already exists", u.Name)
		} else if err != plumbing.ErrReferenceNotFound {
			return errors.Wrapf(err, "update ref %s", u.Name)
		}
		return errors.Wrapf(r.s.SetReference(newRef), "update ref %s", u.Name)
	}

	oh, err := hash(string(u.Old))
	if err != nil {
		return err
	}
	err = r.s.CheckAndSetReference(newRef, plumbing.NewHashReference(name, oh))
	if err == storage.ErrReferenceHasChanged {
		return errors.Wrapf(vcs.ErrRefChanged, "update ref %s", u.Name)
	}
	return errors.Wrapf(err, "update ref %s", u.Name)
}
