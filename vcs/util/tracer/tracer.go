package tracer

import (
	"fmt"
	"time"

	"sourcegraph.com/sourcegraph/appdash"

	"github.com/sourcegraph/go-automerge/vcs"
)

func init() { appdash.RegisterEvent(GoVCS{}) }

// GoVCS records a store method invocation.
type GoVCS struct {
	Name, Args string

	StartTime time.Time
	EndTime   time.Time
}

// Schema returns the constant "GoVCS".
func (GoVCS) Schema() string { return "GoVCS" }

func (e GoVCS) Start() time.Time { return e.StartTime }
func (e GoVCS) End() time.Time   { return e.EndTime }

// Wrap wraps the given store, returning a store which emits tracing
// events.
func Wrap(s vcs.Store, rec *appdash.Recorder) vcs.Store {
	t := store{s: s, rec: rec}

	// Also wrap optional interfaces.
	if realResolver, isResolver := s.(vcs.RevisionResolver); isResolver {
		return struct {
			vcs.Store
			vcs.RevisionResolver
		}{t, resolver{r: realResolver, rec: rec}}
	}
	return t
}

type store struct {
	s   vcs.Store
	rec *appdash.Recorder
}

func (s store) event(name, args string, start time.Time) {
	s.rec.Child().Event(GoVCS{
		Name:      name,
		Args:      args,
		StartTime: start,
		EndTime:   time.Now(),
	})
}

func (s store) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	start := time.Now()
	c, err := s.s.GetCommit(id)
	s.event("vcs.ObjectReader.GetCommit", fmt.Sprintf("%#v", id), start)
	return c, err
}

func (s store) GetTree(id vcs.ObjectID) (*vcs.Tree, error) {
	start := time.Now()
	t, err := s.s.GetTree(id)
	s.event("vcs.ObjectReader.GetTree", fmt.Sprintf("%#v", id), start)
	return t, err
}

func (s store) ReadBlob(id vcs.ObjectID) ([]byte, error) {
	start := time.Now()
	b, err := s.s.ReadBlob(id)
	s.event("vcs.ObjectReader.ReadBlob", fmt.Sprintf("%#v", id), start)
	return b, err
}

func (s store) MergeBase(a, b vcs.CommitID) (vcs.CommitID, error) {
	start := time.Now()
	base, err := s.s.MergeBase(a, b)
	s.event("vcs.Merger.MergeBase", fmt.Sprintf("%#v, %#v", a, b), start)
	return base, err
}

func (s store) NewInserter() vcs.Inserter {
	return &inserter{ins: s.s.NewInserter(), rec: s.rec, start: time.Now()}
}

func (s store) Ref(name string) (vcs.ObjectID, error) {
	start := time.Now()
	id, err := s.s.Ref(name)
	s.event("vcs.RefStore.Ref", fmt.Sprintf("%#v", name), start)
	return id, err
}

func (s store) UpdateRef(u vcs.RefUpdate) error {
	start := time.Now()
	err := s.s.UpdateRef(u)
	s.event("vcs.RefStore.UpdateRef", fmt.Sprintf("%#v", u), start)
	return err
}

// inserter traces a whole transaction as one event, from NewInserter
// to Flush.
type inserter struct {
	ins    vcs.Inserter
	rec    *appdash.Recorder
	start  time.Time
	writes int
}

func (i *inserter) WriteBlob(data []byte) (vcs.ObjectID, error) {
	i.writes++
	return i.ins.WriteBlob(data)
}

func (i *inserter) WriteTree(entries []vcs.TreeEntry) (vcs.ObjectID, error) {
	i.writes++
	return i.ins.WriteTree(entries)
}

func (i *inserter) Flush() error {
	err := i.ins.Flush()
	i.rec.Child().Event(GoVCS{
		Name:      "vcs.Inserter.Flush",
		Args:      fmt.Sprintf("%d writes", i.writes),
		StartTime: i.start,
		EndTime:   time.Now(),
	})
	return err
}

func (i *inserter) Close() error { return i.ins.Close() }

// resolver implements the vcs.RevisionResolver interface.
type resolver struct {
	r   vcs.RevisionResolver
	rec *appdash.Recorder
}

func (r resolver) ResolveRevision(spec string) (vcs.CommitID, error) {
	start := time.Now()
	id, err := r.r.ResolveRevision(spec)
	r.rec.Child().Event(GoVCS{
		Name:      "vcs.RevisionResolver.ResolveRevision",
		Args:      fmt.Sprintf("%#v", spec),
		StartTime: start,
		EndTime:   time.Now(),
	})
	return id, err
}
