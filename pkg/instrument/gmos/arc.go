package gmos

import (
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
)

// CalLocation is where a zipped arc atom is inserted relative to the
// science atom it calibrates (spec §4.5).
type CalLocation int

const (
	CalLocationBefore CalLocation = iota
	CalLocationAfter
)

// LocationFor returns the arc-insertion location for a science step at
// the given index within its atom: index 0 -> After, else Before
// (spec §4.5).
func LocationFor(scienceStepIndex int) CalLocation {
	if scienceStepIndex == 0 {
		return CalLocationAfter
	}
	return CalLocationBefore
}

// ArcSeen records, per visit, which instrument configs already have a
// completed arc atom observed — the arc-zipping pipe's
// de-duplication memory (spec §4.5's "already been generated ... and a
// previous matching completed arc atom exists").
type ArcSeen struct {
	visit uuid.UUID
	seen  map[Config]bool
}

// NewArcSeen starts tracking for visit.
func NewArcSeen(visit uuid.UUID) *ArcSeen {
	return &ArcSeen{visit: visit, seen: make(map[Config]bool)}
}

// ResetVisit clears the memory for a new visit (arcs are only
// deduplicated within the same visit).
func (a *ArcSeen) ResetVisit(visit uuid.UUID) {
	a.visit = visit
	a.seen = make(map[Config]bool)
}

// Observe records that a completed arc atom for config d was observed
// in the current visit.
func (a *ArcSeen) Observe(d Config) {
	a.seen[d] = true
}

// NeedsArc reports whether a science atom whose first step has
// instrument config d still needs an arc zipped in for this visit.
func (a *ArcSeen) NeedsArc(d Config) bool {
	return !a.seen[d]
}

// ArcAtom builds the singleton "Arc" atom for config d (spec §4.5).
func ArcAtom(arcStep stepmodel.ProtoStep[Config]) stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]] {
	return stepmodel.NewProtoAtom("Arc", []stepmodel.ProtoStep[Config]{arcStep})
}

// ZippedAtom is a science atom together with the arc atom to zip
// around it, if any, and where to place it.
type ZippedAtom struct {
	Science  stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]]
	Arc      *stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]]
	Location CalLocation
}

// Zip decides whether science needs an arc zipped around it, per spec
// §4.5's arc-zipping pipe: consults seen for the first science step's
// instrument config, and if an arc is needed, builds one for
// buildArc's config and positions it by LocationFor(firstStepIndex).
func Zip(
	seen *ArcSeen,
	science stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]],
	firstStepIndex int,
	buildArc func(d Config) stepmodel.ProtoStep[Config],
) ZippedAtom {
	steps := science.Steps()
	if len(steps) == 0 {
		return ZippedAtom{Science: science}
	}
	d := steps[0].InstrumentConfig
	if !seen.NeedsArc(d) {
		return ZippedAtom{Science: science}
	}
	arc := ArcAtom(buildArc(d))
	seen.Observe(d)
	return ZippedAtom{Science: science, Arc: &arc, Location: LocationFor(firstStepIndex)}
}
