package engine

import "wip/internal/service"

// SignalKind identifies what happened.
type SignalKind int

const (
	// Refreshed carries the new snapshot.
	Refreshed SignalKind = iota
	// RefreshFailed carries the error; the previous snapshot is unchanged.
	RefreshFailed
	// TaskSaved carries the mutation result.
	TaskSaved
	// TaskSaveFailed carries the upload or mutation error.
	TaskSaveFailed
	// AuthExchanged reports a code exchange; Err is nil on success.
	AuthExchanged
)

func (k SignalKind) String() string {
	switch k {
	case Refreshed:
		return "refreshed"
	case RefreshFailed:
		return "refresh-failed"
	case TaskSaved:
		return "task-saved"
	case TaskSaveFailed:
		return "task-save-failed"
	case AuthExchanged:
		return "auth-exchanged"
	default:
		return "unknown"
	}
}

// Signal is an outbound notification from the engine.
type Signal struct {
	Kind     SignalKind
	Snapshot *service.ViewerSnapshot
	Result   *service.TaskMutationResult
	Err      error
}
