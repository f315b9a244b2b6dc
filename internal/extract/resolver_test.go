package extract

import (
	"errors"
	"testing"

	"github.com/plc-diagram/backend/internal/l5x"
)

func testProject() *l5x.Project {
	return l5x.NewProject(&l5x.Document{
		Controller: l5x.Controller{
			Tags: l5x.TagList{Tags: []l5x.Tag{
				{
					Name:     "_A28_PH",
					DataType: "StateLogic",
					Comments: []l5x.Comment{
						{Operand: ".ST[0].0", Text: "STEP HEADER\nIdle"},
						{Operand: ".ST[0].1", Text: "STEP HEADER\nHoming"},
						{Operand: ".ST[0].2", Text: "single line only"},
					},
					Data: []l5x.Data{{
						Format: "Decorated",
						Structure: &l5x.Structure{
							DataType:     "StateLogic",
							ArrayMembers: []l5x.Member{{Name: "ST", DataType: "DINT"}},
						},
					}},
				},
				{Name: "Counter1", DataType: "COUNTER"},
			}},
		},
	})
}

func TestSelectTagExplicit(t *testing.T) {
	r := NewResolver(testProject(), DefaultProfile())

	name, err := r.SelectTag("AnythingGoes", nil, 0)
	if err != nil {
		t.Fatalf("SelectTag failed: %v", err)
	}
	if name != "AnythingGoes" {
		t.Errorf("tag = %q, want verbatim explicit name", name)
	}
}

func TestSelectTagFromMarkerRung(t *testing.T) {
	r := NewResolver(testProject(), DefaultProfile())

	rungs := []l5x.Rung{
		rung("", "OTU(S3_State_Logic_Reset);"),
		rung("", "XIC(_A28_PH.ST[0].0)OTU(Scratch);"),
	}

	name, err := r.SelectTag("", rungs, 0)
	if err != nil {
		t.Fatalf("SelectTag failed: %v", err)
	}
	if name != "_A28_PH" {
		t.Errorf("tag = %q, want _A28_PH", name)
	}
}

func TestSelectTagFromTypeScan(t *testing.T) {
	r := NewResolver(testProject(), DefaultProfile())

	// Marker rung references an unknown tag, so the type scan decides.
	rungs := []l5x.Rung{
		rung("*** STATE LOGIC ***", "NOP();"),
		rung("", "XIC(UnknownTag.ST[0].0)OTU(Scratch);"),
	}

	name, err := r.SelectTag("", rungs, 0)
	if err != nil {
		t.Fatalf("SelectTag failed: %v", err)
	}
	if name != "_A28_PH" {
		t.Errorf("tag = %q, want _A28_PH", name)
	}
}

func TestSelectTagNotResolved(t *testing.T) {
	project := l5x.NewProject(&l5x.Document{
		Controller: l5x.Controller{
			Tags: l5x.TagList{Tags: []l5x.Tag{
				{Name: "Counter1", DataType: "COUNTER"},
			}},
		},
	})
	r := NewResolver(project, DefaultProfile())

	_, err := r.SelectTag("", []l5x.Rung{rung("", "NOP();")}, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTagNotResolved) {
		t.Errorf("error = %v, want ErrTagNotResolved", err)
	}
}

func TestStateName(t *testing.T) {
	r := NewResolver(testProject(), DefaultProfile())

	cases := []struct {
		id   int
		want string
	}{
		{0, "Idle"},
		{1, "Homing"},
		{2, "State 2"},   // single-line description falls back
		{14, "State 14"}, // no description at all
	}

	for _, tc := range cases {
		if got := r.StateName("_A28_PH", tc.id); got != tc.want {
			t.Errorf("StateName(%d) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestStateNameUnknownTag(t *testing.T) {
	r := NewResolver(testProject(), DefaultProfile())

	if got := r.StateName("Missing", 0); got != "State 0" {
		t.Errorf("StateName with unknown tag = %q, want default", got)
	}
}

func TestDefaultStateNames(t *testing.T) {
	names := DefaultStateNames([]int{0, 7})
	if names[0] != "State 0" || names[7] != "State 7" {
		t.Errorf("DefaultStateNames = %v", names)
	}
}
