package vcs

import (
	"fmt"
	"strings"
	"time"
)

// CommitID is the hex-encoded content hash of a commit.
type CommitID string

// Abbrev returns the first n characters of the commit ID, or the whole
// ID if it is shorter than n.
func (id CommitID) Abbrev(n int) string {
	if len(id) <= n {
		return string(id)
	}
	return string(id[:n])
}

// ObjectID is the hex-encoded content hash of a blob or tree object.
type ObjectID string

// IsZero reports whether id is empty or consists only of zeros (the
// null object ID).
func (id ObjectID) IsZero() bool {
	return strings.Trim(string(id), "0") == ""
}

// ValidHash reports whether s looks like a full SHA-1 or SHA-256 hex
// object name.
func ValidHash(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

// FileMode is a git tree entry mode.
type FileMode uint32

const (
	ModeDir        FileMode = 0040000
	ModeRegular    FileMode = 0100644
	ModeExecutable FileMode = 0100755
	ModeSymlink    FileMode = 0120000
	ModeSubmodule  FileMode = 0160000
)

// String returns the mode the way git writes it in tree listings
// (e.g., "100644").
func (m FileMode) String() string { return fmt.Sprintf("%06o", uint32(m)) }

// IsFile reports whether entries with this mode hold blob content
// that can be merged line by line.
func (m FileMode) IsFile() bool { return m == ModeRegular || m == ModeExecutable }

type Signature struct {
	Name  string
	Email string
	Date  time.Time
}

type Commit struct {
	ID        CommitID
	Tree      ObjectID
	Author    Signature
	Committer *Signature
	Message   string
	Parents   []CommitID
}

// Subject returns the first paragraph of the commit message with line
// breaks folded into spaces, the way git shortlogs show it.
func (c *Commit) Subject() string {
	msg := strings.TrimLeft(c.Message, "\n")
	if i := strings.Index(msg, "\n\n"); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimRight(msg, "\n")
	return strings.Replace(msg, "\n", " ", -1)
}

// TreeEntry is a single path in a recursively flattened tree. Path is
// slash-separated and relative to the tree root.
type TreeEntry struct {
	Path string
	Mode FileMode
	ID   ObjectID
}

// Tree is a recursively flattened tree object. Entries are sorted by
// Path and never contain directory entries.
type Tree struct {
	ID      ObjectID
	Entries []TreeEntry
}

// Entry returns the entry at path, if any.
func (t *Tree) Entry(path string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return TreeEntry{}, false
}
