// Package seqid derives the deterministic UUIDs used to identify atoms
// and steps in a generated sequence (spec §6).
//
// Every id is a UUIDv5 (SHA-1 based) child of some parent namespace:
// the observation namespace is a child of a fixed root namespace, atom
// ids are children of the observation namespace, and step ids are
// children of their atom's id. Re-deriving an id from the same parent
// and the same byte-exact input always yields the same UUID.
package seqid

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// RootNamespace seeds every observation namespace. It is a process
// constant: changing it would change every id this module has ever
// produced, so it is never configurable.
var RootNamespace = uuid.MustParse("8f27a6e0-3b1b-4f0e-9b8e-6d1e9f8a2c40")

// CommitHash is the 20-byte code-version identifier folded into every
// observation namespace (spec §3's CommitHash entity). It must be
// exactly 20 bytes, the size of a SHA-1 digest, matching the git commit
// hash the sequence-generation code was built from.
type CommitHash [20]byte

// SequenceType distinguishes the acquisition and science sequences so
// that their atom/step ids never collide even when built from the same
// namespace and index.
type SequenceType uint8

const (
	SequenceTypeAcquisition SequenceType = iota
	SequenceTypeScience
)

func (t SequenceType) tag() string {
	switch t {
	case SequenceTypeAcquisition:
		return "acquisition"
	case SequenceTypeScience:
		return "science"
	default:
		panic("seqid: unknown sequence type")
	}
}

// Namespace derives the per-observation namespace:
//
//	UUIDv5(RootNamespace, commitHash || observationID || paramsFingerprint)
//
// paramsFingerprint is the 16-byte MD5 digest produced by
// pkg/fingerprint for the GeneratorParams in effect; the caller
// supplies it so this package stays independent of the fingerprint
// package's own types.
func Namespace(commit CommitHash, observationID string, paramsFingerprint [16]byte) uuid.UUID {
	buf := make([]byte, 0, len(commit)+len(observationID)+len(paramsFingerprint))
	buf = append(buf, commit[:]...)
	buf = append(buf, observationID...)
	buf = append(buf, paramsFingerprint[:]...)
	return uuid.NewSHA1(RootNamespace, buf)
}

// AtomID derives an atom id: UUIDv5(namespace, tag(sequenceType) ||
// big-endian-int32(atomIndex)).
func AtomID(namespace uuid.UUID, seqType SequenceType, atomIndex int32) uuid.UUID {
	buf := make([]byte, 0, 16+4)
	buf = append(buf, []byte(seqType.tag())...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(atomIndex))
	return uuid.NewSHA1(namespace, buf)
}

// StepID derives a step id: UUIDv5(atomID, big-endian-int32(stepIndex)).
func StepID(atomID uuid.UUID, stepIndex int32) uuid.UUID {
	buf := binary.BigEndian.AppendUint32(nil, uint32(stepIndex))
	return uuid.NewSHA1(atomID, buf)
}

// AcquisitionAtomIndex folds an id-base counter into the raw atom index
// so that each reset of the acquisition completion matcher (spec §4.3,
// §6) produces ids disjoint from every id produced before any earlier
// reset. idBase increments by one on every reset; acquisition never
// emits more than 1<<16 atoms between resets, which keeps the two
// counters from ever colliding within the int32 atom index.
func AcquisitionAtomIndex(idBase uint16, rawIndex int32) int32 {
	return int32(idBase)<<16 | (rawIndex & 0xFFFF)
}
