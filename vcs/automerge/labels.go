package automerge

import (
	"fmt"

	"github.com/sourcegraph/go-automerge/vcs"
)

// BaseLabel names the merge base in conflict markers.
const BaseLabel = "BASE"

const (
	abbrevLen     = 6
	maxSubjectLen = 60
)

// OursLabel names the first parent in conflict markers.
func OursLabel(c *vcs.Commit) string { return sideLabel("HEAD  ", c) }

// TheirsLabel names the second parent in conflict markers.
func TheirsLabel(c *vcs.Commit) string { return sideLabel("BRANCH", c) }

func sideLabel(side string, c *vcs.Commit) string {
	subject := []rune(c.Subject())
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}
	return fmt.Sprintf("%s (%s %s)", side, c.ID.Abbrev(abbrevLen), string(subject))
}
