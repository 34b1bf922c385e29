package models

// SessionStatus represents the status of an analysis session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusRunning  SessionStatus = "running"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
	SessionStatusReset    SessionStatus = "reset"
)

// SessionInput names the uploaded files an analysis session reads.
// Either both per-side file lists or a single archive holding both sides.
type SessionInput struct {
	StartFileIDs  []string `json:"startFileIds,omitempty"`
	EndFileIDs    []string `json:"endFileIds,omitempty"`
	ArchiveFileID string   `json:"archiveFileId,omitempty"`
}

// AnalysisSession is the externally visible state of one analysis context.
type AnalysisSession struct {
	ID               string         `json:"id"`
	Input            SessionInput   `json:"input"`
	Config           AnalysisConfig `json:"config"`
	Status           SessionStatus  `json:"status"`
	Progress         float64        `json:"progress"` // 0-100
	Runs             int            `json:"runs"`
	MatchedCount     int            `json:"matchedCount"`
	ProcessingTimeMs int64          `json:"processingTimeMs,omitempty"`
	Errors           []string       `json:"errors,omitempty"`
}

// ParseError represents a recoverable problem on one log line.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// NewAnalysisSession creates a session in pending status.
func NewAnalysisSession(id string, input SessionInput, cfg AnalysisConfig) *AnalysisSession {
	return &AnalysisSession{
		ID:       id,
		Input:    input,
		Config:   cfg,
		Status:   SessionStatusPending,
		Progress: 0,
		Errors:   make([]string, 0),
	}
}
