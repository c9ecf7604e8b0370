package trainstatus

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

// Sweep drops TD tracking on every train that has not had a TD report for the configured silence timeout.
// Each train is re-checked under its lock, so a TD report applied after the sweep read it wins.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	cutoff := e.now().Add(-e.config.TDSilenceTimeout)

	trains, err := e.repository.FindMany(ctx, &ctdf.TrainFilter{
		TDActive:       ctdf.Bool(true),
		Archived:       ctdf.Bool(false),
		LastTDNotAfter: cutoff,
	}, "primaryidentifier")
	if err != nil {
		return 0, err
	}

	deactivated := 0
	for _, candidate := range trains {
		if err := ctx.Err(); err != nil {
			return deactivated, err
		}

		swept, err := e.sweepTrain(ctx, candidate.PrimaryIdentifier, cutoff)
		if errors.Is(err, trainstore.ErrVersionConflict) {
			log.Debug().Str("trainid", candidate.PrimaryIdentifier).Msg("Train changed during sweep, skipping")
			continue
		} else if err != nil {
			return deactivated, err
		}

		if swept {
			deactivated++
		}
	}

	e.stats.SweepDeactivated.Add(float64(deactivated))

	return deactivated, nil
}

func (e *Engine) sweepTrain(ctx context.Context, trainID string, cutoff time.Time) (bool, error) {
	unlock := e.locks.Lock(trainID)
	defer unlock()

	train, err := e.repository.FindOne(ctx, &ctdf.TrainFilter{PrimaryIdentifier: trainID})
	if err != nil {
		return false, err
	}

	if !train.TDActive || train.Archived || train.LastTDTime.After(cutoff) {
		return false, nil
	}

	train.TDActive = false
	train.ModificationDateTime = e.now()

	stored, err := e.repository.Upsert(ctx, train)
	if err != nil {
		return false, err
	}

	log.Info().
		Str("trainid", trainID).
		Str("headcode", train.Headcode).
		Time("lasttd", train.LastTDTime).
		Msg("TD tracking timed out")

	e.notify([]*ctdf.Event{e.newNotification(ctdf.EventTypeTrainTDDeactivated, stored, "")})

	return true, nil
}

// RunSweeper sweeps on the configured interval until the context is cancelled
func (e *Engine) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(e.config.SweepInterval)
	defer ticker.Stop()

	log.Info().Str("interval", e.config.SweepInterval.String()).Str("timeout", e.config.TDSilenceTimeout.String()).Msg("Starting TD silence sweeper")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := e.Sweep(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("TD silence sweep failed")
				continue
			}

			if count > 0 {
				log.Info().Int("count", count).Msg("TD silence sweep complete")
			}
		}
	}
}
