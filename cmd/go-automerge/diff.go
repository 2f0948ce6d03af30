package main

import (
	"bytes"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/go-diff/diff"
	"github.com/spf13/cobra"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/automerge"
)

func (a *app) diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <rev>",
		Short: "Show what a merge commit changed beyond merging its parents",
		Long: `diff prints, as a unified diff, the changes from a merge commit's automerge
tree to the commit's own tree. An empty diff means the commit is exactly
the mechanical merge of its parents; conflict resolutions show up as
removed conflict markers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEnv()
			if err != nil {
				return err
			}
			c, err := e.commit(args[0])
			if err != nil {
				return err
			}
			changes, _, err := e.am.CommitChanges(c, e.strategy, e.save)
			if err != nil {
				return err
			}

			fds := make([]*diff.FileDiff, 0, len(changes))
			for _, ch := range changes {
				fd, err := fileDiff(e.store, ch)
				if err != nil {
					return err
				}
				fds = append(fds, fd)
			}
			out, err := diff.PrintMultiFileDiff(fds)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func fileDiff(r vcs.ObjectReader, ch automerge.Change) (*diff.FileDiff, error) {
	fd := &diff.FileDiff{
		OrigName: "/dev/null",
		NewName:  "/dev/null",
		Extended: []string{"diff --git a/" + ch.Path + " b/" + ch.Path},
	}
	var orig, changed []byte
	var err error
	if ch.Old != nil {
		fd.OrigName = "a/" + ch.Path
		if orig, err = r.ReadBlob(ch.Old.ID); err != nil {
			return nil, err
		}
	}
	if ch.New != nil {
		fd.NewName = "b/" + ch.Path
		if changed, err = r.ReadBlob(ch.New.ID); err != nil {
			return nil, err
		}
	}
	switch ch.Type {
	case automerge.Added:
		fd.Extended = append(fd.Extended, "new file mode "+ch.New.Mode.String())
	case automerge.Deleted:
		fd.Extended = append(fd.Extended, "deleted file mode "+ch.Old.Mode.String())
	case automerge.Modified:
		if ch.Old.Mode != ch.New.Mode {
			fd.Extended = append(fd.Extended, "old mode "+ch.Old.Mode.String(), "new mode "+ch.New.Mode.String())
		}
	}

	if bytes.IndexByte(orig, 0) >= 0 || bytes.IndexByte(changed, 0) >= 0 {
		fd.Extended = append(fd.Extended, "Binary files differ")
		return fd, nil
	}
	if h := hunk(string(orig), string(changed)); h != nil {
		fd.Hunks = []*diff.Hunk{h}
	}
	return fd, nil
}

// hunk returns a single hunk covering the whole of both versions, or
// nil if they have the same content.
func hunk(orig, changed string) *diff.Hunk {
	if orig == changed {
		return nil
	}
	dmp := diffmatchpatch.New()
	rOrig, rChanged, lines := dmp.DiffLinesToRunes(orig, changed)
	diffs := dmp.DiffCleanupMerge(dmp.DiffMainRunes(rOrig, rChanged, false))

	h := &diff.Hunk{}
	var body bytes.Buffer
	for _, d := range diffs {
		prefix := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = '-'
		case diffmatchpatch.DiffInsert:
			prefix = '+'
		}
		for _, r := range d.Text {
			line := lines[int(r)]
			body.WriteByte(prefix)
			body.WriteString(line)
			if len(line) == 0 || line[len(line)-1] != '\n' {
				body.WriteByte('\n')
			}
			if prefix != '+' {
				h.OrigLines++
			}
			if prefix != '-' {
				h.NewLines++
			}
		}
	}
	if h.OrigLines > 0 {
		h.OrigStartLine = 1
	}
	if h.NewLines > 0 {
		h.NewStartLine = 1
	}
	h.Body = body.Bytes()
	return h
}
