package workflow

import (
	appErr "github.com/designwheel/engine/pkg/errors"
)

// VerdictEvent describes what an instructor decision changed.
type VerdictEvent struct {
	Stage    StageType   `json:"stage"`
	Status   StageStatus `json:"status"`
	Previous StageStatus `json:"previous"`
	// Unlocked is set when approval opened the following stage.
	Unlocked StageType `json:"unlocked,omitempty"`
}

// Finalized reports whether the verdict changed the stage outcome, which is
// when follow-up feedback analysis is worth running.
func (e VerdictEvent) Finalized() bool { return e.Previous != e.Status }

func (p *Project) requireActive() error {
	if !p.IsActive {
		return appErr.New(appErr.CodeInvalidTransition, "project is inactive").
			WithMeta("project_id", p.ID)
	}
	return nil
}

func invalidTransition(s StageType, from StageStatus, op string) error {
	return appErr.Newf(appErr.CodeInvalidTransition, "cannot %s stage %s in status %s", op, s, from).
		WithMeta("stage", string(s)).
		WithMeta("status", string(from))
}

// Submit hands an IN_PROGRESS stage over for review. A rejected stage must be
// reopened first. On error p is unchanged.
func (p *Project) Submit(s StageType) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	sd, err := p.Stage(s)
	if err != nil {
		return err
	}
	if sd.Status != StatusInProgress {
		return invalidTransition(s, sd.Status, "submit")
	}
	sd.Status = StatusSubmitted
	return nil
}

// Reopen moves a rejected stage back to IN_PROGRESS so the student can rework it.
func (p *Project) Reopen(s StageType) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	sd, err := p.Stage(s)
	if err != nil {
		return err
	}
	if sd.Status != StatusRejected {
		return invalidTransition(s, sd.Status, "reopen")
	}
	sd.Status = StatusInProgress
	return nil
}

// ApplyVerdict records an instructor decision on a submitted (or already judged)
// stage. Approval unlocks the next stage only if it is still LOCKED; a later
// rejection never re-locks a stage that was opened. The last stage has no
// successor.
func (p *Project) ApplyVerdict(s StageType, approve bool) (VerdictEvent, error) {
	sd, err := p.Stage(s)
	if err != nil {
		return VerdictEvent{}, err
	}
	if !sd.Status.acceptsVerdict() {
		return VerdictEvent{}, invalidTransition(s, sd.Status, "judge")
	}

	ev := VerdictEvent{Stage: s, Previous: sd.Status}
	if !approve {
		sd.Status = StatusRejected
		ev.Status = StatusRejected
		return ev, nil
	}

	sd.Status = StatusApproved
	ev.Status = StatusApproved
	if next, ok := s.Next(); ok {
		if nd, ok := p.Stages[next]; ok && nd != nil && nd.Status == StatusLocked {
			nd.Status = StatusInProgress
			ev.Unlocked = next
		}
	}
	return ev, nil
}
