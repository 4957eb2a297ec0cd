package sequence

import (
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/completion"
	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
)

// StepJSON is the wire shape of one recorded/generated step, the
// instrument config erased to its raw JSON form so a caller (e.g.
// internal/httpapi) can hold an F2 or GMOS sequence behind one
// non-generic surface.
type StepJSON struct {
	ID               uuid.UUID              `json:"id"`
	InstrumentConfig json.RawMessage        `json:"instrument_config"`
	Kind             stepmodel.StepKind     `json:"kind"`
	Gcal             stepmodel.GcalConfig   `json:"gcal"`
	EstimateNanos    int64                  `json:"estimate_ns"`
	ObserveClass     stepmodel.ObserveClass `json:"observe_class"`
	Breakpoint       bool                   `json:"breakpoint"`
}

// AtomJSON is the wire shape of one generated atom.
type AtomJSON struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	Steps       []StepJSON `json:"steps"`
}

func atomToJSON[D any](a stepmodel.Atom[D]) (AtomJSON, error) {
	steps := make([]StepJSON, len(a.Steps))
	for i, s := range a.Steps {
		raw, err := json.Marshal(s.InstrumentConfig)
		if err != nil {
			return AtomJSON{}, err
		}
		steps[i] = StepJSON{
			ID:               s.ID,
			InstrumentConfig: raw,
			Kind:             s.StepConfig.Kind,
			Gcal:             s.StepConfig.Gcal,
			EstimateNanos:    int64(s.Estimate),
			ObserveClass:     s.ObserveClass,
			Breakpoint:       s.Breakpoint,
		}
	}
	return AtomJSON{ID: a.ID, Description: a.Description, Steps: steps}, nil
}

// StepRecordJSON is the wire shape of one recorded step submitted to
// POST /observations/{id}/steps (spec §4.9), instrument config erased
// to raw JSON.
type StepRecordJSON struct {
	StepID           uuid.UUID                `json:"step_id"`
	AtomID           uuid.UUID                `json:"atom_id"`
	VisitID          uuid.UUID                `json:"visit_id"`
	Index            int                      `json:"index"`
	InstrumentConfig json.RawMessage          `json:"instrument_config"`
	StepConfig       stepmodel.StepConfig     `json:"step_config"`
	SequenceType     seqid.SequenceType       `json:"sequence_type"`
	ExecutionState   completion.ExecutionState `json:"execution_state"`
	QAState          completion.QAState       `json:"qa_state"`
}

// StepBatch is the POST /observations/{id}/steps request body: every
// step belonging to one executed atom, folded with a shared
// expectedCount equal to the batch length (spec §4.3's Fold needs the
// nominal atom's expected step count, which the caller — submitting
// the complete recorded atom — supplies implicitly this way).
type StepBatch struct {
	Steps []StepRecordJSON `json:"steps"`
}

// Handle is the instrument-erased driving surface spec §4.9's HTTP
// endpoints use: folding recorded steps/visits and draining pages of
// already-JSON atoms, without the host service needing to know
// whether the observation underneath is F2 or GMOS.
type Handle interface {
	ObservationID() string
	Fingerprint() [16]byte
	FoldSteps(batch StepBatch) error
	ResetVisit(newVisit uuid.UUID)
	NextAcquisitionPage(n int) ([]AtomJSON, error)
	NextSciencePage(n int) ([]AtomJSON, error)
}

// instrumentHandle implements Handle for one comparable instrument
// config type D. The science/acquisition Sources stored here are the
// raw (unfiltered) nominal generators; each page pull re-wraps them
// with FilterCompletedVisit against the handle's current visit, so a
// visit change (currentVisit) takes effect on the very next pull
// without needing to rebuild the generator.
type instrumentHandle[D comparable] struct {
	observationID string
	fp            [16]byte
	completion    *completion.State[D]
	currentVisit  uuid.UUID
	rawAcq        Source[D]
	rawSci        Source[D]
	scienceIndex  func(atoms []stepmodel.Atom[D]) int
	unmarshal     func(json.RawMessage) (D, error)
}

func (h *instrumentHandle[D]) ObservationID() string { return h.observationID }
func (h *instrumentHandle[D]) Fingerprint() [16]byte { return h.fp }

func (h *instrumentHandle[D]) FoldSteps(batch StepBatch) error {
	expected := len(batch.Steps)
	for _, s := range batch.Steps {
		cfg, err := h.unmarshal(s.InstrumentConfig)
		if err != nil {
			return err
		}
		h.completion.Fold(completion.StepRecord[D]{
			StepID:           s.StepID,
			AtomID:           s.AtomID,
			VisitID:          s.VisitID,
			Index:            s.Index,
			InstrumentConfig: cfg,
			StepConfig:       s.StepConfig,
			SequenceType:     s.SequenceType,
			ExecutionState:   s.ExecutionState,
			QAState:          s.QAState,
		}, expected)
	}
	return nil
}

// ResetVisit updates the visit a subsequent page pull filters against
// and forces both completion matchers to reset (spec §4.3's "learn
// about a new visit before the first step record in it arrives").
func (h *instrumentHandle[D]) ResetVisit(newVisit uuid.UUID) {
	h.currentVisit = newVisit
	h.completion.ResetVisit()
}

func (h *instrumentHandle[D]) NextAcquisitionPage(n int) ([]AtomJSON, error) {
	src := FilterCompletedVisit[D](h.rawAcq, h.completion.Acq, h.currentVisit, h.scienceIndex)
	return drainPage(src, n)
}

func (h *instrumentHandle[D]) NextSciencePage(n int) ([]AtomJSON, error) {
	src := FilterCompletedVisit[D](h.rawSci, h.completion.Sci, h.currentVisit, h.scienceIndex)
	return drainPage(src, n)
}

// drainPage pulls batches from src until n atoms are collected or src
// is exhausted for now; it deliberately does not loop forever even
// against an instrument's unbounded repeating stream (e.g. GMOS's
// "Acquisition - Slit" atom never signals ok=false on its own) — n
// bounds the work of a single page regardless.
func drainPage[D any](src Source[D], n int) ([]AtomJSON, error) {
	var out []AtomJSON
	now := time.Now()
	for len(out) < n {
		atoms, ok := src.Next(now)
		if !ok {
			break
		}
		for _, a := range atoms {
			j, err := atomToJSON(a)
			if err != nil {
				return nil, err
			}
			out = append(out, j)
		}
	}
	return out, nil
}
