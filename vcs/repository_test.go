package vcs

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestValidHash(t *testing.T) {
	tests := map[string]struct {
		s    string
		want bool
	}{
		"sha1":      {s: "c556aa409427eed1322744a02ad23066f51040fb", want: true},
		"sha256":    {s: strings.Repeat("ab", 32), want: true},
		"empty":     {s: "", want: false},
		"short":     {s: "c556aa4", want: false},
		"uppercase": {s: "C556AA409427EED1322744A02AD23066F51040FB", want: false},
		"non-hex":   {s: "g556aa409427eed1322744a02ad23066f51040fb", want: false},
		"41 chars":  {s: "c556aa409427eed1322744a02ad23066f51040fb0", want: false},
	}
	for label, test := range tests {
		if got := ValidHash(test.s); got != test.want {
			t.Errorf("%s: got ValidHash(%q) == %v, want %v", label, test.s, got, test.want)
		}
	}
}

func TestCommitID_Abbrev(t *testing.T) {
	id := CommitID("c556aa409427eed1322744a02ad23066f51040fb")
	if got, want := id.Abbrev(6), "c556aa"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := CommitID("abc").Abbrev(6), "abc"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestObjectID_IsZero(t *testing.T) {
	tests := map[string]struct {
		id   ObjectID
		want bool
	}{
		"empty":   {id: "", want: true},
		"null":    {id: ObjectID(strings.Repeat("0", 40)), want: true},
		"nonzero": {id: "c556aa409427eed1322744a02ad23066f51040fb", want: false},
	}
	for label, test := range tests {
		if got := test.id.IsZero(); got != test.want {
			t.Errorf("%s: got IsZero == %v, want %v", label, got, test.want)
		}
	}
}

func TestFileMode(t *testing.T) {
	if got, want := ModeRegular.String(), "100644"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := ModeDir.String(), "040000"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	for _, m := range []FileMode{ModeRegular, ModeExecutable} {
		if !m.IsFile() {
			t.Errorf("%s: want IsFile", m)
		}
	}
	for _, m := range []FileMode{ModeDir, ModeSymlink, ModeSubmodule} {
		if m.IsFile() {
			t.Errorf("%s: want !IsFile", m)
		}
	}
}

func TestCommit_Subject(t *testing.T) {
	tests := map[string]struct {
		message string
		want    string
	}{
		"one line":        {message: "foo", want: "foo"},
		"trailing":        {message: "foo\n", want: "foo"},
		"body":            {message: "foo\n\nbar baz\n", want: "foo"},
		"folded":          {message: "foo\nbar\n\nbody", want: "foo bar"},
		"leading newline": {message: "\n\nfoo\n", want: "foo"},
		"empty":           {message: "", want: ""},
	}
	for label, test := range tests {
		c := &Commit{Message: test.message}
		if got := c.Subject(); got != test.want {
			t.Errorf("%s: got Subject == %q, want %q", label, got, test.want)
		}
	}
}

func TestTree_Entry(t *testing.T) {
	tree := &Tree{Entries: []TreeEntry{
		{Path: "a", Mode: ModeRegular, ID: "1"},
		{Path: "b/c", Mode: ModeExecutable, ID: "2"},
	}}
	if e, ok := tree.Entry("b/c"); !ok || e.ID != "2" {
		t.Errorf("got %+v, %v, want entry 2", e, ok)
	}
	if _, ok := tree.Entry("b"); ok {
		t.Error("got entry for directory b, want none")
	}
}

func TestOpen_unknownType(t *testing.T) {
	if _, err := Open("svn", "."); err == nil {
		t.Error("got nil error, want unknown type error")
	}
}

func TestRegisterOpener(t *testing.T) {
	errOpen := errors.New("opened")
	RegisterOpener("test", func(dir string) (Store, error) {
		return nil, errors.Wrap(errOpen, dir)
	})
	_, err := Open("test", "/foo")
	if errors.Cause(err) != errOpen {
		t.Errorf("got err == %v, want %v", err, errOpen)
	}
}

func TestStage_String(t *testing.T) {
	want := map[Stage]string{
		StageMerged: "merged",
		StageBase:   "base",
		StageOurs:   "ours",
		StageTheirs: "theirs",
		Stage(7):    "invalid",
	}
	for s, w := range want {
		if got := s.String(); got != w {
			t.Errorf("got Stage(%d).String() == %q, want %q", int(s), got, w)
		}
	}
}

func TestFileMerge_HasConflicts(t *testing.T) {
	clean := &FileMerge{Chunks: []MergeChunk{{Source: StageBase, Lines: []string{"a\n"}}}}
	if clean.HasConflicts() {
		t.Error("clean merge: got HasConflicts")
	}
	conflicting := &FileMerge{Chunks: []MergeChunk{
		{Source: StageOurs, Conflict: FirstConflictingRange, Lines: []string{"a\n"}},
		{Source: StageTheirs, Conflict: NextConflictingRange, Lines: []string{"b\n"}},
	}}
	if !conflicting.HasConflicts() {
		t.Error("conflicting merge: got !HasConflicts")
	}
}
