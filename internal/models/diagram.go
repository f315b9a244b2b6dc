package models

import "time"

// DiagramResult is the outcome of one successful pipeline run: the state ids
// discovered, the edge count, and the full rendered Mermaid text.
type DiagramResult struct {
	States          []int     `json:"states"` // sorted ascending
	TransitionCount int       `json:"transitionCount"`
	Diagram         string    `json:"diagram"`
	Program         string    `json:"program,omitempty"`
	Routine         string    `json:"routine,omitempty"`
	Tag             string    `json:"tag,omitempty"`
	Grammar         string    `json:"grammar"`
	Warnings        []string  `json:"warnings,omitempty"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// GenerationRecord is one row of the generation history kept in the
// HistoryStore. It carries run statistics, not the diagram text itself.
type GenerationRecord struct {
	ID              string    `json:"id"`
	FileID          string    `json:"fileId"`
	FileName        string    `json:"fileName"`
	Program         string    `json:"program"`
	Routine         string    `json:"routine"`
	Tag             string    `json:"tag"`
	Grammar         string    `json:"grammar"`
	StateCount      int       `json:"stateCount"`
	TransitionCount int       `json:"transitionCount"`
	DurationMs      int64     `json:"durationMs"`
	CreatedAt       time.Time `json:"createdAt"`
}
