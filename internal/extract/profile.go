package extract

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMarkerSkip is how many rungs to skip after the section start
// marker before transitions begin: the marker rung itself plus one cleanup
// rung. A convention of the source controller programs, not derived from
// any structural marker, so it stays overridable per profile.
const DefaultMarkerSkip = 2

// Profile carries the extraction conventions of a controller program
// family: the section markers, the skip offset, and the state tag shape.
// The zero value is normalized to the defaults.
type Profile struct {
	// CommentMarker is the substring that marks the section start in a
	// rung comment.
	CommentMarker string `yaml:"commentMarker"`

	// UnlatchOperandMarker is the substring looked for inside an OTU
	// operand as the alternative section start marker.
	UnlatchOperandMarker string `yaml:"unlatchOperandMarker"`

	// EndMarker is the comment substring that terminates the section.
	EndMarker string `yaml:"endMarker"`

	// MarkerSkip is the number of rungs skipped after the start marker.
	MarkerSkip int `yaml:"markerSkip"`

	// StateDataType is the declared data type identifying a state tag
	// during tag-table auto-detection.
	StateDataType string `yaml:"stateDataType"`

	// StateMember is the bit-array member holding per-state bits.
	StateMember string `yaml:"stateMember"`
}

// DefaultProfile returns the conventions of the reference programs.
func DefaultProfile() Profile {
	return Profile{
		CommentMarker:        "STATE LOGIC",
		UnlatchOperandMarker: "S3_State_Logic",
		EndMarker:            "FAULT",
		MarkerSkip:           DefaultMarkerSkip,
		StateDataType:        "StateLogic",
		StateMember:          "ST",
	}
}

// normalized fills empty fields with defaults. MarkerSkip <= 0 falls back
// to the default; 0 is not a meaningful skip for these programs.
func (p Profile) normalized() Profile {
	def := DefaultProfile()
	if p.CommentMarker == "" {
		p.CommentMarker = def.CommentMarker
	}
	if p.UnlatchOperandMarker == "" {
		p.UnlatchOperandMarker = def.UnlatchOperandMarker
	}
	if p.EndMarker == "" {
		p.EndMarker = def.EndMarker
	}
	if p.MarkerSkip <= 0 {
		p.MarkerSkip = def.MarkerSkip
	}
	if p.StateDataType == "" {
		p.StateDataType = def.StateDataType
	}
	if p.StateMember == "" {
		p.StateMember = def.StateMember
	}
	return p
}

// LoadProfile reads a YAML extraction profile from disk.
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()

	return ParseProfile(f)
}

// ParseProfile parses an extraction profile from a reader. Missing fields
// keep their defaults.
func ParseProfile(r io.Reader) (Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing extraction profile: %w", err)
	}

	return p.normalized(), nil
}
