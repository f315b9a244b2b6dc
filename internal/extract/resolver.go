package extract

import (
	"fmt"
	"strings"

	"github.com/plc-diagram/backend/internal/l5x"
)

// Resolver decides which tag holds the state bits and resolves state ids
// to display names from that tag's per-bit descriptions.
type Resolver struct {
	project *l5x.Project
	profile Profile
}

// NewResolver creates a resolver over a loaded project.
func NewResolver(project *l5x.Project, profile Profile) *Resolver {
	return &Resolver{project: project, profile: profile.normalized()}
}

// SelectTag picks the state-holder tag. An explicit name is used verbatim.
// Otherwise two detections run in order, mirroring the two section-marker
// conventions: first the rung right after the located start marker (its
// leading XIC operand's root, accepted when the tag exists and exposes the
// state member), then a tag-table scan for the designated state data type.
func (r *Resolver) SelectTag(explicit string, rungs []l5x.Rung, startIdx int) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if name, ok := r.tagFromMarkerRung(rungs, startIdx); ok {
		return name, nil
	}
	if name, ok := r.tagFromTypeScan(); ok {
		return name, nil
	}

	return "", fmt.Errorf("%w: specify a tag name explicitly", ErrTagNotResolved)
}

func (r *Resolver) tagFromMarkerRung(rungs []l5x.Rung, startIdx int) (string, bool) {
	next := startIdx + 1
	if next < 0 || next >= len(rungs) {
		return "", false
	}
	operand, ok := leadingXICOperand(rungs[next].LogicText())
	if !ok {
		return "", false
	}

	root, _, _ := strings.Cut(operand, ".")
	if root == "" {
		return "", false
	}

	tag, ok := r.project.Tag(root)
	if !ok || !tag.HasMember(r.profile.StateMember) {
		return "", false
	}
	return root, true
}

func (r *Resolver) tagFromTypeScan() (string, bool) {
	for _, tag := range r.project.Tags() {
		if tag.DataType == r.profile.StateDataType {
			return tag.Name, true
		}
	}
	return "", false
}

// StateName resolves the display name of one state. The description on the
// bit is expected multi-line: a header line, then the name. Any missing
// piece (unknown tag, absent description, single-line description) falls
// back to the synthesized default; this never fails outward.
func (r *Resolver) StateName(tagName string, id int) string {
	fallback := DefaultStateName(id)
	if id < 0 {
		return fallback
	}

	tag, ok := r.project.Tag(tagName)
	if !ok {
		return fallback
	}

	desc := strings.TrimSpace(tag.BitDescription(r.profile.StateMember, 0, id))
	if desc == "" {
		return fallback
	}

	lines := strings.Split(desc, "\n")
	if len(lines) < 2 {
		return fallback
	}
	name := strings.TrimSpace(strings.Join(lines[1:], "\n"))
	if name == "" {
		return fallback
	}
	return name
}

// StateNames resolves every id in the list.
func (r *Resolver) StateNames(tagName string, ids []int) map[int]string {
	names := make(map[int]string, len(ids))
	for _, id := range ids {
		names[id] = r.StateName(tagName, id)
	}
	return names
}

// DefaultStateName is the synthesized fallback display name.
func DefaultStateName(id int) string {
	return fmt.Sprintf("State %d", id)
}

// DefaultStateNames synthesizes names for every id, used in the degraded
// mode where no state tag could be resolved but the caller opted in.
func DefaultStateNames(ids []int) map[int]string {
	names := make(map[int]string, len(ids))
	for _, id := range ids {
		names[id] = DefaultStateName(id)
	}
	return names
}
