package domain

// Phase pipeline 狀態機
//
//	Idle -> Staging -> Executing -> Reading -> CleaningUp -> {Done | Failed}
//
// CleaningUp is entered from every state reached after Staging began.
type Phase int

const (
	// PhaseIdle operation not started
	PhaseIdle Phase = iota
	// PhaseStaging writing inputs into the engine sandbox
	PhaseStaging
	// PhaseExecuting engine command running
	PhaseExecuting
	// PhaseReading reading the output file back
	PhaseReading
	// PhaseCleaningUp removing staged files
	PhaseCleaningUp
	// PhaseDone finished successfully
	PhaseDone
	// PhaseFailed finished with an error
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:       "idle",
	PhaseStaging:    "staging",
	PhaseExecuting:  "executing",
	PhaseReading:    "reading",
	PhaseCleaningUp: "cleaning_up",
	PhaseDone:       "done",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports Done or Failed
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Operation pipeline operation name
type Operation string

const (
	// OpTrim trim a clip
	OpTrim Operation = "trim"
	// OpComposite loop a still image under an audio track
	OpComposite Operation = "composite"
	// OpOverlay mix background music under a video
	OpOverlay Operation = "overlay"
	// OpMerge concatenate stored clips
	OpMerge Operation = "merge"
)

// FailurePrefix stable prefix shown to users when the operation fails
func (o Operation) FailurePrefix() string {
	switch o {
	case OpTrim:
		return "Failed to trim media"
	case OpComposite:
		return "Failed to add background to audio"
	case OpOverlay:
		return "Failed to add background music"
	case OpMerge:
		return "Failed to merge clips"
	default:
		return "Failed to process media"
	}
}
