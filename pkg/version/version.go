// Package version exposes the build's git commit, folded into every
// generated sequence's id namespace (spec §3's CommitHash, spec §6).
//
// Go 1.18+ automatically embeds VCS info (git commit, dirty flag, etc.)
// into the binary via runtime/debug.BuildInfo. No -ldflags required.
package version

import (
	"encoding/hex"
	"runtime/debug"

	"github.com/codeready-toolchain/obsseq/pkg/seqid"
)

// AppName is the application name used in logging and user-agent strings.
const AppName = "obsseq"

// GitRevision is the full git commit hash from build info, or "dev"
// when build info is unavailable (e.g. `go test`, non-git builds).
var GitRevision = initGitRevision()

func initGitRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return "dev"
}

// Full returns "obsseq/<revision>" for use in logging, user-agent
// strings, etc.
func Full() string {
	return AppName + "/" + GitRevision
}

// CommitHash decodes GitRevision into spec §3's 20-byte CommitHash. If
// the build carries no usable git revision (a dev build, or a
// revision that isn't a 40-character hex SHA-1), it falls back to the
// all-zero hash so local development still produces a stable, if
// placeholder, namespace.
func CommitHash() seqid.CommitHash {
	var hash seqid.CommitHash
	raw, err := hex.DecodeString(GitRevision)
	if err != nil || len(raw) != len(hash) {
		return hash
	}
	copy(hash[:], raw)
	return hash
}
