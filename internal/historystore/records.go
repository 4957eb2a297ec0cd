package historystore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/obsseq/pkg/completion"
	"github.com/google/uuid"
)

// Codec marshals and unmarshals an instrument's dynamic config to and
// from the JSONB column steps.instrument_config, since D is generic
// and database/sql has no notion of it.
type Codec[D comparable] struct {
	Marshal   func(D) ([]byte, error)
	Unmarshal func([]byte) (D, error)
}

// JSONCodec builds a Codec backed by encoding/json, suitable for any D
// that round-trips cleanly through JSON (both pkg/instrument/f2.Config
// and pkg/instrument/gmos.Config do, being plain value structs).
func JSONCodec[D comparable]() Codec[D] {
	return Codec[D]{
		Marshal: func(d D) ([]byte, error) { return json.Marshal(d) },
		Unmarshal: func(b []byte) (D, error) {
			var d D
			err := json.Unmarshal(b, &d)
			return d, err
		},
	}
}

// Recorder persists completion.VisitRecord/AtomRecord/StepRecord[D].
type Recorder[D comparable] struct {
	store *Store
	codec Codec[D]
}

// NewRecorder builds a Recorder for the given instrument config type.
func NewRecorder[D comparable](store *Store, codec Codec[D]) *Recorder[D] {
	return &Recorder[D]{store: store, codec: codec}
}

// PutVisit upserts a visit header.
func (r *Recorder[D]) PutVisit(ctx context.Context, v completion.VisitRecord) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO visits (visit_id, observation_id, instrument, site, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (visit_id) DO UPDATE SET observation_id = EXCLUDED.observation_id
	`, v.VisitID, v.ObservationID, v.Instrument, v.Site, v.Created)
	if err != nil {
		return fmt.Errorf("historystore: put visit: %w", err)
	}
	return nil
}

// PutAtom upserts an atom header.
func (r *Recorder[D]) PutAtom(ctx context.Context, a completion.AtomRecord) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO atoms (atom_id, visit_id, sequence_type, execution_state, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (atom_id) DO UPDATE SET execution_state = EXCLUDED.execution_state
	`, a.AtomID, a.VisitID, a.SequenceType, a.ExecutionState, a.Created)
	if err != nil {
		return fmt.Errorf("historystore: put atom: %w", err)
	}
	return nil
}

// PutStep upserts a step record.
func (r *Recorder[D]) PutStep(ctx context.Context, s completion.StepRecord[D]) error {
	instrumentConfig, err := r.codec.Marshal(s.InstrumentConfig)
	if err != nil {
		return fmt.Errorf("historystore: marshal instrument config: %w", err)
	}
	stepConfig, err := json.Marshal(s.StepConfig)
	if err != nil {
		return fmt.Errorf("historystore: marshal step config: %w", err)
	}
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO steps (step_id, atom_id, visit_id, step_index, instrument_config,
			step_config, sequence_type, execution_state, qa_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (step_id) DO UPDATE SET
			execution_state = EXCLUDED.execution_state,
			qa_state = EXCLUDED.qa_state
	`, s.StepID, s.AtomID, s.VisitID, s.Index, instrumentConfig,
		stepConfig, s.SequenceType, s.ExecutionState, s.QAState, s.Created)
	if err != nil {
		return fmt.Errorf("historystore: put step: %w", err)
	}
	return nil
}

// StepsForVisit loads every step recorded for a visit, ordered by
// creation time, then step index, the shape completion.Builder needs to rehydrate its
// in-memory fold state after a process restart.
func (r *Recorder[D]) StepsForVisit(ctx context.Context, visitID uuid.UUID) ([]completion.StepRecord[D], error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT step_id, atom_id, visit_id, step_index, instrument_config, step_config,
			sequence_type, execution_state, qa_state, created_at
		FROM steps WHERE visit_id = $1 ORDER BY created_at, step_index
	`, visitID)
	if err != nil {
		return nil, fmt.Errorf("historystore: query steps: %w", err)
	}
	defer rows.Close()

	var out []completion.StepRecord[D]
	for rows.Next() {
		var (
			rec                          completion.StepRecord[D]
			instrumentConfig, stepConfig []byte
		)
		if err := rows.Scan(&rec.StepID, &rec.AtomID, &rec.VisitID, &rec.Index,
			&instrumentConfig, &stepConfig, &rec.SequenceType, &rec.ExecutionState,
			&rec.QAState, &rec.Created); err != nil {
			return nil, fmt.Errorf("historystore: scan step: %w", err)
		}
		rec.InstrumentConfig, err = r.codec.Unmarshal(instrumentConfig)
		if err != nil {
			return nil, fmt.Errorf("historystore: unmarshal instrument config: %w", err)
		}
		if err := json.Unmarshal(stepConfig, &rec.StepConfig); err != nil {
			return nil, fmt.Errorf("historystore: unmarshal step config: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
