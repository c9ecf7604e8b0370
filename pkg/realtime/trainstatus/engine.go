package trainstatus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

// Notifier receives train status notifications after they have been persisted
type Notifier interface {
	Notify(event *ctdf.Event) error
}

type EngineOption func(*Engine)

func WithNotifier(notifier Notifier) EngineOption {
	return func(e *Engine) { e.notifier = notifier }
}

func WithStats(stats *Stats) EngineOption {
	return func(e *Engine) { e.stats = stats }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithIdentifyRecorder(recorder func(IdentifyElasticEvent)) EngineOption {
	return func(e *Engine) { e.recordIdentify = recorder }
}

// Engine resolves incoming train events onto train entities and applies them. Work on different trains
// runs in parallel, work on the same train is serialised.
type Engine struct {
	repository trainstore.Repository
	identifier *Identifier
	config     Config

	locks *entityLocks

	notifier       Notifier
	stats          *Stats
	now            func() time.Time
	recordIdentify func(IdentifyElasticEvent)
}

func NewEngine(repository trainstore.Repository, config Config, options ...EngineOption) *Engine {
	engine := &Engine{
		repository: repository,
		identifier: &Identifier{Repository: repository, Config: config},
		config:     config,
		locks:      newEntityLocks(),
		now:        time.Now,
	}

	for _, option := range options {
		option(engine)
	}

	if engine.stats == nil {
		engine.stats = NewStats(nil)
	}

	return engine
}

func (e *Engine) Config() Config {
	return e.config
}

// Process applies a single event, retrying transient storage failures with backoff. Malformed events and
// events for archived trains fail straight away.
func (e *Engine) Process(ctx context.Context, event ctdf.TrainEvent) (*ctdf.Train, error) {
	startTime := time.Now()
	defer func() {
		e.stats.ProcessDuration.Observe(time.Since(startTime).Seconds())
	}()

	normalised := event.Normalize()
	logger := log.With().
		Str("source", string(normalised.Source)).
		Str("headcode", normalised.Headcode).
		Str("serviceid", normalised.ServiceID).
		Str("crs", normalised.CRS).
		Logger()

	if !normalised.HasIdentifiers() || normalised.ServiceDate == "" {
		logger.Error().Msg("Train event has no usable identifiers")
		e.stats.EventsProcessed.WithLabelValues(string(normalised.Source), "malformed").Inc()

		return nil, ErrMalformedEvent
	}

	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = 20 * time.Millisecond
	retryBackoff.MaxElapsedTime = e.config.RetryMaxElapsed

	var result *ctdf.Train
	var outcome string

	err := backoff.RetryNotify(func() error {
		train, attemptOutcome, err := e.processOnce(ctx, &normalised)
		if err != nil {
			if trainstore.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		result = train
		outcome = attemptOutcome
		return nil
	}, backoff.WithContext(retryBackoff, ctx), func(err error, wait time.Duration) {
		e.stats.Retries.Inc()
		logger.Debug().Err(err).Str("wait", wait.String()).Msg("Retrying train event")
	})

	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedEvent):
			outcome = "malformed"
			logger.Error().Err(err).Msg("Dropping train event")
		case errors.Is(err, ErrArchivedTrain):
			outcome = "archived"
			logger.Warn().Err(err).Msg("Dropping train event for archived train")
		default:
			outcome = "failed"
			logger.Error().Err(err).Msg("Failed to process train event")
		}
	}

	e.stats.EventsProcessed.WithLabelValues(string(normalised.Source), outcome).Inc()

	return result, err
}

func (e *Engine) processOnce(ctx context.Context, event *ctdf.TrainEvent) (*ctdf.Train, string, error) {
	resolved, method, err := e.identifier.Identify(ctx, event)
	if err != nil {
		return nil, "", err
	}

	e.stats.Resolutions.WithLabelValues(string(method)).Inc()

	var notifications []*ctdf.Event
	var trainID string
	created := false

	identityKeys := event.IdentityKeys()
	if len(identityKeys) == 0 {
		return nil, "", ErrMalformedEvent
	}

	if resolved != nil {
		trainID = resolved.PrimaryIdentifier

		// Later creations for these identifiers now find this train
		trainKeys := ctdf.TrainIdentityKeys(event.ServiceDate, event.TrainUID, event.ServiceID, event.Headcode)
		if len(trainKeys) > 0 && resolved.ServiceDate == event.ServiceDate && !resolved.ConflictsWith(event.TrainUID, event.ServiceID) {
			if _, err := e.repository.ClaimIdentityKeys(ctx, trainID, trainKeys); err != nil {
				return nil, "", err
			}
		}
	} else {
		seed := &ctdf.Train{
			PrimaryIdentifier: ctdf.NewTrainID(),
			ServiceDate:       event.ServiceDate,
			Headcode:          event.Headcode,
			ServiceID:         event.ServiceID,
			TrainUID:          event.TrainUID,
			OperatorRef:       event.Payload.OperatorRef,
			CreationDateTime:  e.now(),
		}
		seed.ModificationDateTime = seed.CreationDateTime

		train, isNew, err := e.repository.FindOrCreate(ctx, identityKeys, seed)
		if err != nil {
			return nil, "", err
		}
		created = isNew
		trainID = train.PrimaryIdentifier

		if created {
			log.Info().
				Str("trainid", trainID).
				Strs("identitykeys", train.IdentityKeys).
				Str("source", string(event.Source)).
				Msg("Created train")

			notifications = append(notifications, e.newNotification(ctdf.EventTypeTrainCreated, train, ""))
		}
	}

	unlock := e.locks.Lock(trainID)
	defer unlock()

	// Re-read under the lock so the aggregation always starts from the latest stored state
	current, err := e.repository.FindOne(ctx, &ctdf.TrainFilter{PrimaryIdentifier: trainID})
	if err != nil {
		return nil, "", err
	}

	if current.Archived {
		return nil, "", fmt.Errorf("%w: %s", ErrArchivedTrain, trainID)
	}

	updated, changes, err := Aggregate(current, event, e.config)
	if err != nil {
		return nil, "", err
	}

	e.recordIdentification(event, method, created, current)

	if changes.Stale {
		log.Debug().
			Str("trainid", trainID).
			Str("source", string(event.Source)).
			Time("observed", event.ObservedTime).
			Msg("Ignoring stale train update")
	}

	if !changes.Changed {
		e.notify(notifications)

		if changes.Stale {
			return current, "stale", nil
		}
		return current, "unchanged", nil
	}

	updated.ModificationDateTime = e.now()

	stored, err := e.repository.Upsert(ctx, updated)
	if err != nil {
		return nil, "", err
	}

	if changes.TDActivated {
		notifications = append(notifications, e.newNotification(ctdf.EventTypeTrainTDActivated, stored, ""))
	}
	if changes.TDDeactivated {
		notifications = append(notifications, e.newNotification(ctdf.EventTypeTrainTDDeactivated, stored, ""))
	}
	if changes.ScheduleMatched {
		notifications = append(notifications, e.newNotification(ctdf.EventTypeTrainScheduleMatched, stored, ""))
	}
	if changes.VariationChanged {
		notifications = append(notifications, e.newNotification(ctdf.EventTypeTrainVariationChanged, stored, changes.OldVariationStatus))
	}
	e.notify(notifications)

	return stored, "updated", nil
}

func (e *Engine) newNotification(eventType ctdf.EventType, train *ctdf.Train, oldStatus ctdf.VariationStatus) *ctdf.Event {
	return &ctdf.Event{
		Type:      eventType,
		Timestamp: e.now(),
		Body: &ctdf.TrainEventBody{
			Train:              train,
			OldVariationStatus: oldStatus,
		},
	}
}

func (e *Engine) notify(notifications []*ctdf.Event) {
	if e.notifier == nil {
		return
	}

	for _, notification := range notifications {
		if err := e.notifier.Notify(notification); err != nil {
			log.Error().Err(err).Str("type", string(notification.Type)).Msg("Failed to publish train notification")
		}
	}
}

func (e *Engine) recordIdentification(event *ctdf.TrainEvent, method ResolutionMethod, created bool, train *ctdf.Train) {
	if e.recordIdentify == nil {
		return
	}

	e.recordIdentify(IdentifyElasticEvent{
		Timestamp: e.now(),
		Source:    string(event.Source),
		Method:    string(method),
		Created:   created,
		TrainID:   train.PrimaryIdentifier,
		Headcode:  train.Headcode,
		CRS:       event.CRS,
	})
}
