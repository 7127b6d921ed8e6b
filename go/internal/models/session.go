package models

// QuestionStatus defines the outcome of a question.
type QuestionStatus string

const (
	QuestionStatusPending  QuestionStatus = "PENDING"
	QuestionStatusDone     QuestionStatus = "DONE"
	QuestionStatusSkipped  QuestionStatus = "SKIPPED"
	QuestionStatusTimedOut QuestionStatus = "TIMED_OUT"
)

// IsTerminal reports whether the status is a final outcome.
func (s QuestionStatus) IsTerminal() bool {
	switch s {
	case QuestionStatusDone, QuestionStatusSkipped, QuestionStatusTimedOut:
		return true
	}
	return false
}

// Label returns the short human label used in summaries.
func (s QuestionStatus) Label() string {
	switch s {
	case QuestionStatusDone:
		return "Done"
	case QuestionStatusSkipped:
		return "Skipped"
	case QuestionStatusTimedOut:
		return "Timeout"
	default:
		return "Pending"
	}
}

// Phase defines where a session is in its lifecycle.
type Phase string

const (
	PhaseIdle             Phase = "IDLE"
	PhaseConfigured       Phase = "CONFIGURED"
	PhaseRunning          Phase = "RUNNING"
	PhaseExtensionPending Phase = "EXTENSION_PENDING"
	PhaseCompleted        Phase = "COMPLETED"
)

// QuestionRecord holds the outcome of one question slot.
type QuestionRecord struct {
	QuestionNumber    int            `json:"question_number"`
	AllottedSeconds   int            `json:"allotted_seconds"`
	TimeSpentSeconds  int            `json:"time_spent_seconds"`
	Status            QuestionStatus `json:"status"`
	ExtensionsGranted int            `json:"extensions_granted"`
}

// SessionState is a point-in-time copy of a session.
type SessionState struct {
	SessionID              string           `json:"session_id,omitempty"`
	Phase                  Phase            `json:"phase"`
	TotalQuestions         int              `json:"total_questions"`
	SecondsPerQuestion     int              `json:"seconds_per_question"`
	CurrentQuestionIndex   int              `json:"current_question_index"`
	RemainingSeconds       int              `json:"remaining_seconds"`
	IsRunning              bool             `json:"is_running"`
	ExtensionPromptVisible bool             `json:"extension_prompt_visible"`
	SessionCompleted       bool             `json:"session_completed"`
	Records                []QuestionRecord `json:"records"`
}

// CurrentRecord returns the record for the current question, if any.
func (s SessionState) CurrentRecord() (QuestionRecord, bool) {
	i := s.CurrentQuestionIndex - 1
	if i < 0 || i >= len(s.Records) {
		return QuestionRecord{}, false
	}
	return s.Records[i], true
}

// SessionStats holds aggregate figures derived from the records.
type SessionStats struct {
	TotalTimeSpent    int `json:"total_time_spent"`
	CompletedCount    int `json:"completed_count"`
	SkippedCount      int `json:"skipped_count"`
	TimeoutCount      int `json:"timeout_count"`
	PendingCount      int `json:"pending_count"`
	ExtensionsGranted int `json:"extensions_granted"`
}
