package extract

import (
	"strings"

	"github.com/plc-diagram/backend/internal/l5x"
)

// StartStrategy locates the section start rung within a routine. The two
// program revisions in the field mark the section differently, so both
// detections live behind one interface and are tried in a fixed order.
type StartStrategy interface {
	// Name returns the strategy's identifier for progress reporting.
	Name() string
	// FindStart returns the index of the start marker rung, or false when
	// the routine has no section. Not finding one is a normal outcome
	// when scanning routines for the one that holds the state machine.
	FindStart(rungs []l5x.Rung) (int, bool)
}

// UnlatchMarkerStrategy finds the first rung whose logic contains an OTU
// instruction whose operand contains the marker substring. This is the
// newer convention.
type UnlatchMarkerStrategy struct {
	OperandMarker string
}

func (s UnlatchMarkerStrategy) Name() string { return "unlatch-marker" }

func (s UnlatchMarkerStrategy) FindStart(rungs []l5x.Rung) (int, bool) {
	for i := range rungs {
		logic := rungs[i].LogicText()
		if logic == "" {
			continue
		}
		m := otuRegex.FindStringSubmatch(logic)
		if m != nil && strings.Contains(m[1], s.OperandMarker) {
			return i, true
		}
	}
	return 0, false
}

// CommentMarkerStrategy finds the first rung whose comment contains the
// marker substring. The older convention.
type CommentMarkerStrategy struct {
	Marker string
}

func (s CommentMarkerStrategy) Name() string { return "comment-marker" }

func (s CommentMarkerStrategy) FindStart(rungs []l5x.Rung) (int, bool) {
	for i := range rungs {
		if strings.Contains(rungs[i].CommentText(), s.Marker) {
			return i, true
		}
	}
	return 0, false
}

// DefaultStrategies returns the detection order: unlatch marker first,
// comment marker as fallback.
func DefaultStrategies(p Profile) []StartStrategy {
	p = p.normalized()
	return []StartStrategy{
		UnlatchMarkerStrategy{OperandMarker: p.UnlatchOperandMarker},
		CommentMarkerStrategy{Marker: p.CommentMarker},
	}
}

// FindSectionStart tries each strategy in order and returns the first hit.
func FindSectionStart(rungs []l5x.Rung, strategies []StartStrategy) (int, StartStrategy, bool) {
	for _, s := range strategies {
		if idx, ok := s.FindStart(rungs); ok {
			return idx, s, true
		}
	}
	return 0, nil, false
}
