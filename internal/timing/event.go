package timing

// Event is a named, adjustable target timing within a scene's timeline.
//
// All times are seconds relative to the owning scene's first frame.
//
// InitialTime is where the routine reached the event's query point; it is
// recomputed whenever upstream timing edits move that point. TargetTime is
// where the user wants the event to land. Offset is the user's adjustment:
//
//	Offset = TargetTime - InitialTime
//
// Exactly one Event exists per name per scene. Events survive one reload
// (moved to the scene's stored snapshot) and are merged back in when the
// same name is requested again.
//
// The JSON shape is the durable store's wire format; field names are part
// of the persisted contract and must not change.
type Event struct {
	Name        string  `json:"name"`
	InitialTime float64 `json:"initialTime"`
	TargetTime  float64 `json:"targetTime"`
	Offset      float64 `json:"offset"`
}

// Shifted returns a copy of e re-anchored at initialTime.
//
// When preserve is true the user's offset is kept and the target moves
// with the new anchor. When preserve is false the target is authoritative
// and the offset is recomputed, clamped to be non-negative. The clamp is
// deliberately asymmetric: preserve mode may carry a negative offset.
func (e Event) Shifted(initialTime float64, preserve bool) Event {
	out := e
	out.InitialTime = initialTime
	if preserve {
		out.TargetTime = initialTime + out.Offset
		return out
	}
	out.Offset = out.TargetTime - initialTime
	if out.Offset < 0 {
		out.Offset = 0
		out.TargetTime = initialTime
	}
	return out
}
