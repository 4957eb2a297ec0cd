package completion

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
)

// ExecutionState is the observed execution state of a recorded atom or
// step.
type ExecutionState int

const (
	ExecutionNotStarted ExecutionState = iota
	ExecutionOngoing
	ExecutionCompleted
)

// QAState is the quality-assessment outcome of a recorded step.
type QAState int

const (
	QAStateUndefined QAState = iota
	QAStatePass
	QAStateUsable
	QAStateFail
)

// IsPassingOrAbsent reports whether q does not indicate a QA failure;
// Pass, Usable, and Undefined (not yet assessed) all count, matching
// spec §3's successfullyCompleted definition.
func (q QAState) IsPassingOrAbsent() bool {
	return q != QAStateFail
}

// VisitRecord is an observing visit (spec §3).
type VisitRecord struct {
	VisitID       uuid.UUID
	ObservationID string
	Instrument    string
	Created       time.Time
	Site          string
}

// AtomRecord is an observed atom header (spec §3).
type AtomRecord struct {
	AtomID         uuid.UUID
	VisitID        uuid.UUID
	SequenceType   seqid.SequenceType
	Created        time.Time
	ExecutionState ExecutionState
}

// StepRecord is an observed step (spec §3). D is the instrument's
// dynamic config type.
type StepRecord[D comparable] struct {
	StepID           uuid.UUID
	AtomID           uuid.UUID
	VisitID          uuid.UUID
	Index            int
	InstrumentConfig D
	StepConfig       stepmodel.StepConfig
	Created          time.Time
	SequenceType     seqid.SequenceType
	ExecutionState   ExecutionState
	QAState          QAState
}

// SuccessfullyCompleted reports spec §3's
// `successfullyCompleted = qaState.isPassingOrAbsent ∧ executionState = Completed`.
func (r StepRecord[D]) SuccessfullyCompleted() bool {
	return r.QAState.IsPassingOrAbsent() && r.ExecutionState == ExecutionCompleted
}

func (r StepRecord[D]) key() stepmodel.StepKey[D] {
	return stepmodel.StepKey[D]{InstrumentConfig: r.InstrumentConfig, StepConfig: r.StepConfig}
}
