package historystore

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/completion"
	"github.com/codeready-toolchain/obsseq/pkg/instrument/f2"
	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRoundTripsStepsForVisit(t *testing.T) {
	store := NewTestStore(t)
	rec := NewRecorder[f2.Config](store, JSONCodec[f2.Config]())
	ctx := context.Background()

	visitID := uuid.New()
	atomID := uuid.New()
	stepID := uuid.New()

	require.NoError(t, rec.PutVisit(ctx, completion.VisitRecord{
		VisitID: visitID, ObservationID: "GS-2026A-Q-1-1", Instrument: "f2",
		Created: time.Now(), Site: "GS",
	}))
	require.NoError(t, rec.PutAtom(ctx, completion.AtomRecord{
		AtomID: atomID, VisitID: visitID, SequenceType: seqid.SequenceTypeScience,
		Created: time.Now(), ExecutionState: completion.ExecutionCompleted,
	}))
	require.NoError(t, rec.PutStep(ctx, completion.StepRecord[f2.Config]{
		StepID: stepID, AtomID: atomID, VisitID: visitID, Index: 0,
		InstrumentConfig: f2.Config{Disperser: "R3000", Filter: "JH", FPU: "LongSlit2"},
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepScience},
		Created:          time.Now(),
		SequenceType:     seqid.SequenceTypeScience,
		ExecutionState:   completion.ExecutionCompleted,
		QAState:          completion.QAStatePass,
	}))

	steps, err := rec.StepsForVisit(ctx, visitID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "R3000", steps[0].InstrumentConfig.Disperser)
	assert.True(t, steps[0].SuccessfullyCompleted())
}

func TestHealthReportsHealthyAfterOpen(t *testing.T) {
	store := NewTestStore(t)
	status, err := Health(context.Background(), store.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
}
