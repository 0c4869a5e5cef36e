package scene

// State is a scene's lifecycle state.
//
// The machine only moves forward:
//
//	Initial -> AfterTransitionIn -> CanTransitionOut -> Finished
//
// Finished may additionally be entered from any state when the scene's
// scheduler reports completion. Out-of-order transition attempts are
// warning-logged no-ops, never fatal: a misbehaving routine degrades the
// render, it does not abort it.
type State int

const (
	// StateInitial is the state before the entry transition completes.
	StateInitial State = iota
	// StateAfterTransitionIn means the entry transition has completed.
	StateAfterTransitionIn
	// StateCanTransitionOut means the caller has allowed the scene to
	// begin transitioning out.
	StateCanTransitionOut
	// StateFinished is terminal: the routine has completed.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateAfterTransitionIn:
		return "afterTransitionIn"
	case StateCanTransitionOut:
		return "canTransitionOut"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}
