package obsrun

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/sequence"
)

// Drainer pulls every AtomResult out of a sequence.Stream, e.g. to
// persist it via an internal/historystore.Recorder. It stops early
// when f returns an error or the stream is exhausted.
type Drainer[D any] func(sequence.AtomResult[D]) error

// Run drives both halves of a ProtoExecutionConfig to completion
// under the registry's bookkeeping: acquisition first, then science,
// the normal execution order (spec §2). The run is registered under
// observationID so a caller elsewhere can Cancel it; it is always
// unregistered on return, success or failure.
func Run[S any, D any](
	ctx context.Context,
	registry *Registry,
	observationID, instrument string,
	cfg sequence.ProtoExecutionConfig[S, D],
	drain Drainer[D],
) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := registry.Register(observationID, instrument, cancel); err != nil {
		return err
	}
	defer registry.Unregister(observationID)

	log := slog.With("observation_id", observationID, "instrument", instrument)
	start := time.Now()
	log.Info("generation started")

	if err := drainStream(runCtx, cfg.Acquisition, drain); err != nil {
		log.Error("acquisition sequence failed", "error", err)
		return err
	}
	if err := drainStream(runCtx, cfg.Science, drain); err != nil {
		log.Error("science sequence failed", "error", err)
		return err
	}

	log.Info("generation complete", "elapsed", time.Since(start))
	return nil
}

func drainStream[D any](ctx context.Context, stream sequence.Stream[sequence.AtomResult[D]], drain Drainer[D]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		result, ok := stream()
		if !ok {
			return nil
		}
		if result.Err != nil {
			return result.Err
		}
		if err := drain(result); err != nil {
			return err
		}
	}
}
