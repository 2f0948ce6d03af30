package merge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sourcegraph/go-automerge/vcs"
)

// An edit replaces the base lines [start,end) with lines.
type edit struct {
	start, end int
	lines      []string
}

// lineEdits returns the edits that turn base into other, in base order.
// Consecutive edits are separated by at least one unchanged line.
func lineEdits(base, other string) []edit {
	dmp := diffmatchpatch.New()
	rBase, rOther, lineArray := dmp.DiffLinesToRunes(base, other)
	diffs := dmp.DiffMainRunes(rBase, rOther, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	decode := func(s string) []string {
		var out []string
		for _, r := range s {
			if idx := int(r); idx >= 0 && idx < len(lineArray) {
				out = append(out, lineArray[idx])
			}
		}
		return out
	}

	var edits []edit
	pos, cur := 0, -1
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += n
			cur = -1
		case diffmatchpatch.DiffDelete:
			if cur < 0 {
				edits = append(edits, edit{start: pos, end: pos})
				cur = len(edits) - 1
			}
			edits[cur].end += n
			pos += n
		case diffmatchpatch.DiffInsert:
			if cur < 0 {
				edits = append(edits, edit{start: pos, end: pos})
				cur = len(edits) - 1
			}
			edits[cur].lines = append(edits[cur].lines, decode(d.Text)...)
		}
	}
	return edits
}

// splitLines splits s after each newline. The last line has no
// trailing newline if s does not end in one.
func splitLines(s string) []string {
	var lines []string
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// apply applies edits (all within [start,end)) to base[start:end].
func apply(base []string, edits []edit, start, end int) []string {
	var out []string
	p := start
	for _, e := range edits {
		out = append(out, base[p:e.start]...)
		out = append(out, e.lines...)
		p = e.end
	}
	return append(out, base[p:end]...)
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MergeLines performs a three-way line merge of ours and theirs against
// base. Changes from the two sides that overlap or touch conflict,
// unless both sides made the same change.
func MergeLines(base, ours, theirs string) *vcs.FileMerge {
	baseLines := splitLines(base)
	oe, te := lineEdits(base, ours), lineEdits(base, theirs)

	m := &vcs.FileMerge{}
	emit := func(src vcs.Stage, state vcs.ConflictState, lines []string) {
		if len(lines) == 0 && state == vcs.NoConflict {
			return
		}
		m.Chunks = append(m.Chunks, vcs.MergeChunk{Source: src, Conflict: state, Lines: lines})
	}

	pos, i, j := 0, 0, 0
	for i < len(oe) || j < len(te) {
		var start int
		if j >= len(te) || (i < len(oe) && oe[i].start <= te[j].start) {
			start = oe[i].start
		} else {
			start = te[j].start
		}

		// Grow the region until no edit from either side starts inside
		// or right at its end.
		end := start
		oi, tj := i, j
		for {
			grew := false
			if i < len(oe) && oe[i].start <= end {
				if oe[i].end > end {
					end = oe[i].end
				}
				i++
				grew = true
			}
			if j < len(te) && te[j].start <= end {
				if te[j].end > end {
					end = te[j].end
				}
				j++
				grew = true
			}
			if !grew {
				break
			}
		}

		emit(vcs.StageBase, vcs.NoConflict, baseLines[pos:start])
		switch {
		case tj == j:
			emit(vcs.StageOurs, vcs.NoConflict, apply(baseLines, oe[oi:i], start, end))
		case oi == i:
			emit(vcs.StageTheirs, vcs.NoConflict, apply(baseLines, te[tj:j], start, end))
		default:
			o := apply(baseLines, oe[oi:i], start, end)
			t := apply(baseLines, te[tj:j], start, end)
			if equalLines(o, t) {
				emit(vcs.StageOurs, vcs.NoConflict, o)
			} else {
				emit(vcs.StageOurs, vcs.FirstConflictingRange, o)
				emit(vcs.StageBase, vcs.BaseConflictingRange, baseLines[start:end])
				emit(vcs.StageTheirs, vcs.NextConflictingRange, t)
			}
		}
		pos = end
	}
	emit(vcs.StageBase, vcs.NoConflict, baseLines[pos:])
	return m
}

// Text concatenates the lines of every chunk that is not part of a
// conflict. For a merge without conflicts it is the merged content.
func Text(m *vcs.FileMerge) string {
	var b strings.Builder
	for _, c := range m.Chunks {
		if c.Conflict != vcs.NoConflict {
			continue
		}
		for _, l := range c.Lines {
			b.WriteString(l)
		}
	}
	return b.String()
}
