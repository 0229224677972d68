package conversion

// EngineState is the load state of the driver's engine.
type EngineState string

// Engine states.
const (
	EngineIdle    EngineState = "idle"
	EngineLoading EngineState = "loading"
	EngineReady   EngineState = "ready"
)

// Status is the conversion status of one session.
type Status string

// Session statuses. A failed conversion returns to StatusNotStarted.
const (
	StatusNotStarted  Status = "notStarted"
	StatusCompressing Status = "compressing"
	StatusDone        Status = "done"
)

// State is the combined state shown to users:
// idle → loading-engine → ready → compressing → done.
type State string

// Combined states.
const (
	StateIdle          State = "idle"
	StateLoadingEngine State = "loading-engine"
	StateReady         State = "ready"
	StateCompressing   State = "compressing"
	StateDone          State = "done"
)

// CombinedState folds the engine state and a session status into one State.
func CombinedState(engine EngineState, status Status) State {
	switch status {
	case StatusCompressing:
		return StateCompressing
	case StatusDone:
		return StateDone
	}
	switch engine {
	case EngineLoading:
		return StateLoadingEngine
	case EngineReady:
		return StateReady
	default:
		return StateIdle
	}
}
