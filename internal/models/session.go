package models

// SessionStatus represents the status of a diagram generation session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusGenerating SessionStatus = "generating"
	SessionStatusComplete   SessionStatus = "complete"
	SessionStatusError      SessionStatus = "error"
)

// DiagramSession represents one asynchronous generation run against an
// uploaded L5X file.
type DiagramSession struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId"`
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	Stage            string        `json:"stage,omitempty"`
	StateCount       int           `json:"stateCount,omitempty"`
	TransitionCount  int           `json:"transitionCount,omitempty"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	ErrorCode        string        `json:"errorCode,omitempty"`
	Error            string        `json:"error,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
	FromCache        bool          `json:"fromCache,omitempty"`
}

// NewDiagramSession creates a new DiagramSession in pending status.
func NewDiagramSession(id, fileID string) *DiagramSession {
	return &DiagramSession{
		ID:       id,
		FileID:   fileID,
		Status:   SessionStatusPending,
		Progress: 0,
	}
}
