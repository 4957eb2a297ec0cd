package sequence

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/completion"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cfg struct{ Label string }

func atomWith(label string) stepmodel.Atom[cfg] {
	return stepmodel.Atom[cfg]{
		ID: uuid.New(),
		Steps: []stepmodel.Step[cfg]{
			{InstrumentConfig: cfg{Label: label}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		},
	}
}

func TestFilterCompletedSuppressesAlreadyMatchedAtoms(t *testing.T) {
	builder := completion.NewBuilder[cfg](completion.RoleScience)
	dup := atomWith("a")
	// Seed completion with one already-executed occurrence of "a"'s
	// AtomMatch by folding it through the builder directly.
	key := stepmodel.StepKey[cfg]{InstrumentConfig: cfg{Label: "a"}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}}
	builder.Next(uuid.New(), 1, key)

	calls := 0
	src := SourceFunc[cfg](func(when time.Time) ([]stepmodel.Atom[cfg], bool) {
		calls++
		switch calls {
		case 1:
			return []stepmodel.Atom[cfg]{dup}, true
		case 2:
			return []stepmodel.Atom[cfg]{atomWith("b")}, true
		default:
			return nil, false
		}
	})

	filtered := FilterCompleted[cfg](src, builder)
	atoms, ok := filtered.Next(time.Now())
	require.True(t, ok)
	require.Len(t, atoms, 1)
	assert.Equal(t, "b", atoms[0].Steps[0].InstrumentConfig.Label)
}

func scienceOnly(atoms []stepmodel.Atom[cfg]) int { return 0 }

func TestFilterCompletedVisitSuppressesPastMatch(t *testing.T) {
	builder := completion.NewBuilder[cfg](completion.RoleScience)
	pastVisit := uuid.New()
	currentVisit := uuid.New()
	key := stepmodel.StepKey[cfg]{InstrumentConfig: cfg{Label: "a"}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}}
	builder.SetVisit(pastVisit)
	builder.Next(uuid.New(), 1, key)

	calls := 0
	src := SourceFunc[cfg](func(when time.Time) ([]stepmodel.Atom[cfg], bool) {
		calls++
		switch calls {
		case 1:
			return []stepmodel.Atom[cfg]{atomWith("a")}, true
		case 2:
			return []stepmodel.Atom[cfg]{atomWith("b")}, true
		default:
			return nil, false
		}
	})

	filtered := FilterCompletedVisit[cfg](src, builder, currentVisit, scienceOnly)
	atoms, ok := filtered.Next(time.Now())
	require.True(t, ok)
	require.Len(t, atoms, 1)
	assert.Equal(t, "b", atoms[0].Steps[0].InstrumentConfig.Label)
}

func TestFilterCompletedVisitSuppressesCurrentVisitMatch(t *testing.T) {
	builder := completion.NewBuilder[cfg](completion.RoleScience)
	currentVisit := uuid.New()
	key := stepmodel.StepKey[cfg]{InstrumentConfig: cfg{Label: "a"}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}}
	builder.SetVisit(currentVisit)
	builder.Next(uuid.New(), 1, key)

	calls := 0
	src := SourceFunc[cfg](func(when time.Time) ([]stepmodel.Atom[cfg], bool) {
		calls++
		if calls == 1 {
			return []stepmodel.Atom[cfg]{atomWith("a")}, true
		}
		return nil, false
	})

	filtered := FilterCompletedVisit[cfg](src, builder, currentVisit, scienceOnly)
	_, ok := filtered.Next(time.Now())
	assert.False(t, ok, "atom already completed in the current visit must be suppressed")
}

func TestFilterCompletedVisitKeepsUnpairedArcWhenArcNotAlsoCompletedInPastVisit(t *testing.T) {
	builder := completion.NewBuilder[cfg](completion.RoleScience)
	pastVisit := uuid.New()
	currentVisit := uuid.New()
	scienceKey := stepmodel.StepKey[cfg]{InstrumentConfig: cfg{Label: "sci"}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}}
	builder.SetVisit(pastVisit)
	builder.Next(uuid.New(), 1, scienceKey)

	science := atomWith("sci")
	arc := stepmodel.Atom[cfg]{
		ID: uuid.New(),
		Steps: []stepmodel.Step[cfg]{
			{InstrumentConfig: cfg{Label: "arc"}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepArc}},
		},
	}

	calls := 0
	src := SourceFunc[cfg](func(when time.Time) ([]stepmodel.Atom[cfg], bool) {
		calls++
		if calls == 1 {
			return []stepmodel.Atom[cfg]{arc, science}, true
		}
		return nil, false
	})

	filtered := FilterCompletedVisit[cfg](src, builder, currentVisit, func(atoms []stepmodel.Atom[cfg]) int { return 1 })
	atoms, ok := filtered.Next(time.Now())
	require.True(t, ok, "the arc atom is not paired in the past visit, so it must still be emitted")
	require.Len(t, atoms, 1)
	assert.Equal(t, "arc", atoms[0].Steps[0].InstrumentConfig.Label)
}

func TestFlattenYieldsOneAtomPerPull(t *testing.T) {
	calls := 0
	src := SourceFunc[cfg](func(when time.Time) ([]stepmodel.Atom[cfg], bool) {
		calls++
		if calls == 1 {
			return []stepmodel.Atom[cfg]{atomWith("a"), atomWith("b")}, true
		}
		return nil, false
	})
	stream := Flatten[cfg](src)

	first, ok := stream()
	require.True(t, ok)
	require.NotNil(t, first.Atom)
	assert.Equal(t, "a", first.Atom.Steps[0].InstrumentConfig.Label)

	second, ok := stream()
	require.True(t, ok)
	assert.Equal(t, "b", second.Atom.Steps[0].InstrumentConfig.Label)

	_, ok = stream()
	assert.False(t, ok)
}

func TestGcalLookupMissingMessage(t *testing.T) {
	assert.Equal(t, "Could not generate a sequence, missing Smart GCAL mapping: foo", GcalLookupMissing("foo"))
}

func TestSequenceUnavailableWrapsReason(t *testing.T) {
	err := SequenceUnavailable("obs-1", assertErr{"bad offsets"})
	assert.Contains(t, err.Error(), "obs-1")
	assert.Contains(t, err.Error(), "bad offsets")
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
