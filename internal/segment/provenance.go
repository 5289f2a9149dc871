package segment

import (
	"github.com/go-git/go-git/v5"
)

// Provenance is the git commit a segment directory was checked out at, when
// it lives inside a git working tree. This supplements the descriptor with
// the kind of build metadata original_source's zip-export feature would
// have recorded manually.
type Provenance struct {
	CommitHash string
	Branch     string
}

// GitProvenance inspects the segment's directory for an enclosing git
// repository. It returns ok=false (not an error) when the directory isn't
// part of a git working tree — segments distributed as plain directories or
// via the bundled fallback warehouse are the common case.
func (s *Segment) GitProvenance() (Provenance, bool) {
	repo, err := git.PlainOpenWithOptions(s.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Provenance{}, false
	}
	head, err := repo.Head()
	if err != nil {
		return Provenance{}, false
	}
	return Provenance{
		CommitHash: head.Hash().String(),
		Branch:     head.Name().Short(),
	}, true
}
