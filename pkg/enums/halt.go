package enums

// HaltActorAuto is recorded as halted_by when the monitor trips a halt.
const HaltActorAuto = "auto"

// HaltAction is the admin-facing verb for a manual halt transition.
type HaltAction string

const (
	HaltActionHalt   HaltAction = "halt"
	HaltActionResume HaltAction = "resume"
)
