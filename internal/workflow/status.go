package workflow

// StageStatus is the state of one stage's machine.
type StageStatus string

const (
	StatusLocked     StageStatus = "LOCKED"
	StatusInProgress StageStatus = "IN_PROGRESS"
	StatusSubmitted  StageStatus = "SUBMITTED"
	StatusApproved   StageStatus = "APPROVED"
	StatusRejected   StageStatus = "REJECTED"
)

// Verdict outcomes are the two statuses an instructor decision can produce.
func (s StageStatus) IsVerdict() bool {
	return s == StatusApproved || s == StatusRejected
}

// acceptsVerdict: a stage must have been submitted at least once before it can be judged.
func (s StageStatus) acceptsVerdict() bool {
	return s == StatusSubmitted || s == StatusApproved || s == StatusRejected
}

// editable is true while the student may still change the stage's work.
func (s StageStatus) editable() bool {
	return s == StatusInProgress || s == StatusSubmitted || s == StatusRejected
}
