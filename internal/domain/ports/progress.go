package ports

// Pipeline stages reported while a generation runs.
const (
	StageResolving   = "resolving"
	StageDrafting    = "drafting"
	StageNormalizing = "normalizing"
	StageScoring     = "scoring"
	StageHealing     = "healing"
	StageDone        = "done"
	StageFailed      = "failed"
)

// ProgressEvent is one pipeline progress update.
type ProgressEvent struct {
	// UserID identifies whose generation progressed.
	UserID string `json:"userId"`

	// Stage is one of the Stage* constants.
	Stage string `json:"stage"`

	// Detail is an optional human-readable note.
	Detail string `json:"detail,omitempty"`
}

// ProgressSink receives pipeline progress events. Implementations must
// not block: a slow consumer is the consumer's problem, never the
// pipeline's.
type ProgressSink interface {
	Publish(event ProgressEvent)
}
