package merge

import (
	"io"

	"github.com/sourcegraph/go-automerge/vcs"
)

// Formatter renders file merges with git-style conflict markers.
type Formatter struct {
	// Diff3 also prints the base version of each conflict, introduced
	// by a "|||||||" marker.
	Diff3 bool
}

var _ vcs.MergeFormatter = Formatter{}

func (f Formatter) FormatMerge(w io.Writer, m *vcs.FileMerge, baseName, oursName, theirsName string) error {
	lw := &lineWriter{w: w}
	for _, c := range m.Chunks {
		switch c.Conflict {
		case vcs.NoConflict:
			lw.lines(c.Lines)
		case vcs.FirstConflictingRange:
			lw.marker("<<<<<<< " + oursName)
			lw.lines(c.Lines)
		case vcs.BaseConflictingRange:
			if f.Diff3 {
				lw.marker("||||||| " + baseName)
				lw.lines(c.Lines)
			}
		case vcs.NextConflictingRange:
			lw.marker("=======")
			lw.lines(c.Lines)
			lw.marker(">>>>>>> " + theirsName)
		}
	}
	return lw.err
}

// lineWriter remembers the first write error and whether the output so
// far ends at a line boundary.
type lineWriter struct {
	w      io.Writer
	err    error
	wrote  bool
	inLine bool
}

func (lw *lineWriter) write(s string) {
	if lw.err != nil || s == "" {
		return
	}
	_, lw.err = io.WriteString(lw.w, s)
	lw.wrote = true
	lw.inLine = s[len(s)-1] != '\n'
}

func (lw *lineWriter) lines(lines []string) {
	for _, l := range lines {
		lw.write(l)
	}
}

func (lw *lineWriter) marker(m string) {
	if lw.wrote && lw.inLine {
		lw.write("\n")
	}
	lw.write(m + "\n")
}
