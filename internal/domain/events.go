package domain

type Stage string

const (
	StageExtract Stage = "extract"
	StageIndex   Stage = "index"
)

type EventKind string

const (
	EventStarted       EventKind = "started"
	EventSucceeded     EventKind = "succeeded"
	EventEmpty         EventKind = "empty"
	EventFailed        EventKind = "failed"
	EventStageComplete EventKind = "stage_complete"
)

// ProgressEvent is an advisory notification emitted while ingesting.
// Observers must not rely on it for control flow.
type ProgressEvent struct {
	Stage     Stage
	Kind      EventKind
	Document  string
	Index     int // 0-based position in the upload set
	Total     int
	Fragments int
	Failed    []string
	Err       error
}

// ProgressFunc receives progress events. Calls are serialised.
type ProgressFunc func(ProgressEvent)
