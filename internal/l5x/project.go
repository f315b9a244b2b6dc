package l5x

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInvalidDocument indicates the input parsed as XML but is not an
// RSLogix5000Content export (or failed XML parsing outright).
var ErrInvalidDocument = errors.New("not a valid L5X document")

// Project wraps a parsed L5X document with lookup helpers.
type Project struct {
	Doc *Document

	tagsByName map[string]*Tag
}

// LoadProject reads and parses an L5X file from disk.
// A missing file surfaces as an fs.ErrNotExist-wrapping error from os.Open,
// distinct from ErrInvalidDocument for unparseable content.
func LoadProject(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening L5X file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse parses an L5X document from a reader.
func Parse(r io.Reader) (*Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading L5X input: %w", err)
	}

	doc := &Document{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.XMLName.Local != "RSLogix5000Content" {
		return nil, fmt.Errorf("%w: unexpected root element %q", ErrInvalidDocument, doc.XMLName.Local)
	}

	p := &Project{
		Doc:        doc,
		tagsByName: make(map[string]*Tag, len(doc.Controller.Tags.Tags)),
	}
	for i := range doc.Controller.Tags.Tags {
		t := &doc.Controller.Tags.Tags[i]
		p.tagsByName[t.Name] = t
	}

	return p, nil
}

// NewProject builds a Project around an in-memory document. Used by tests
// and by callers that already hold a parsed document.
func NewProject(doc *Document) *Project {
	p := &Project{
		Doc:        doc,
		tagsByName: make(map[string]*Tag, len(doc.Controller.Tags.Tags)),
	}
	for i := range doc.Controller.Tags.Tags {
		t := &doc.Controller.Tags.Tags[i]
		p.tagsByName[t.Name] = t
	}
	return p
}

// Tag returns the controller-scoped tag with the given name.
func (p *Project) Tag(name string) (*Tag, bool) {
	t, ok := p.tagsByName[name]
	return t, ok
}

// Tags returns all controller-scoped tags in declaration order.
func (p *Project) Tags() []Tag {
	return p.Doc.Controller.Tags.Tags
}

// Programs returns all programs in declaration order.
func (p *Project) Programs() []Program {
	return p.Doc.Controller.Programs
}

// CommentText returns the rung's comment payload, or "" if absent.
func (r *Rung) CommentText() string {
	if r.Comment == nil {
		return ""
	}
	return strings.TrimSpace(r.Comment.Value)
}

// LogicText returns the rung's ladder logic text, or "" if absent.
func (r *Rung) LogicText() string {
	if r.Text == nil {
		return ""
	}
	return strings.TrimSpace(r.Text.Value)
}

// HasMember reports whether the tag's decorated data structure exposes a
// member with the given name. Exports that omit decorated data still get a
// best-effort answer from the comment operands (".ST[0].1" implies "ST").
func (t *Tag) HasMember(name string) bool {
	for _, d := range t.Data {
		if d.Structure == nil {
			continue
		}
		for _, m := range d.Structure.ArrayMembers {
			if strings.EqualFold(m.Name, name) {
				return true
			}
		}
		for _, m := range d.Structure.ValueMembers {
			if strings.EqualFold(m.Name, name) {
				return true
			}
		}
		for _, m := range d.Structure.StructMember {
			if strings.EqualFold(m.Name, name) {
				return true
			}
		}
	}

	prefixIdx := "." + strings.ToUpper(name) + "["
	prefixDot := "." + strings.ToUpper(name) + "."
	for _, c := range t.Comments {
		op := strings.ToUpper(c.Operand)
		if strings.HasPrefix(op, prefixIdx) || strings.HasPrefix(op, prefixDot) {
			return true
		}
	}
	return false
}

// BitDescription returns the comment text attached to one bit of an indexed
// member, e.g. member "ST", elem 0, bit 14 looks up Operand ".ST[0].14".
// Returns "" when no such comment exists.
func (t *Tag) BitDescription(member string, elem, bit int) string {
	want := fmt.Sprintf(".%s[%d].%d", member, elem, bit)
	for _, c := range t.Comments {
		if strings.EqualFold(strings.TrimSpace(c.Operand), want) {
			return c.Text
		}
	}
	return ""
}
