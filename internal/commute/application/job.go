package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	commute "campus-pulse/internal/commute/domain"
	masterdata "campus-pulse/internal/masterdata/domain"
	"campus-pulse/internal/observability/metrics"
	telemetry "campus-pulse/internal/telemetry/domain"
)

const defaultRequestDelay = 100 * time.Millisecond

// Clock provides the record timestamp.
type Clock interface {
	Now() time.Time
}

// Sleeper pauses between routing requests. It returns early with ctx's error.
type Sleeper func(ctx context.Context, d time.Duration) error

// Notifier is told about cycles that finished with per-place errors.
type Notifier interface {
	NotifySync(ctx context.Context, report Report) error
}

// Report describes a finished sync cycle for notification.
type Report struct {
	RunID    string
	AnchorID string
	Anchor   string
	Result   commute.Result
	Finished time.Time
}

// Job refreshes commute records from the routing provider, one place at a time.
type Job struct {
	router   commute.Router
	store    commute.RecordStore
	places   masterdata.PlaceRepository
	anchors  masterdata.AnchorRepository
	delay    time.Duration
	sleep    Sleeper
	clock    Clock
	notifier Notifier
	logger   *zap.Logger
}

// Option configures the job.
type Option func(*Job)

// WithRequestDelay sets the pause between places.
func WithRequestDelay(delay time.Duration) Option {
	return func(j *Job) {
		if delay >= 0 {
			j.delay = delay
		}
	}
}

// WithSleeper overrides how the job waits between places.
func WithSleeper(sleep Sleeper) Option {
	return func(j *Job) {
		if sleep != nil {
			j.sleep = sleep
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(j *Job) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// WithNotifier reports cycles with errors.
func WithNotifier(notifier Notifier) Option {
	return func(j *Job) {
		j.notifier = notifier
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJob constructs a Job. places and anchors may be nil when only Sync is used.
func NewJob(router commute.Router, store commute.RecordStore, places masterdata.PlaceRepository, anchors masterdata.AnchorRepository, opts ...Option) (*Job, error) {
	if router == nil {
		return nil, errors.New("commute job: nil router")
	}
	if store == nil {
		return nil, errors.New("commute job: nil record store")
	}
	j := &Job{
		router:  router,
		store:   store,
		places:  places,
		anchors: anchors,
		delay:   defaultRequestDelay,
		sleep:   sleepContext,
		clock:   systemClock{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// SyncForCaller resolves the caller's anchor and syncs every registered place.
func (j *Job) SyncForCaller(ctx context.Context, userID string) (commute.Result, error) {
	if j.anchors == nil || j.places == nil {
		return commute.Result{}, errors.New("commute job: repositories not configured")
	}
	anchor, err := j.anchors.ResolveForUser(ctx, userID)
	if err != nil {
		return commute.Result{}, err
	}
	return j.syncAll(ctx, anchor)
}

// SyncAnchor syncs every registered place against the anchor with the given id.
func (j *Job) SyncAnchor(ctx context.Context, anchorID string) (commute.Result, error) {
	if j.anchors == nil || j.places == nil {
		return commute.Result{}, errors.New("commute job: repositories not configured")
	}
	anchor, err := j.anchors.Get(ctx, anchorID)
	if err != nil {
		return commute.Result{}, err
	}
	if anchor == nil {
		return commute.Result{}, fmt.Errorf("%w: %s", commute.ErrAnchorNotFound, anchorID)
	}
	return j.syncAll(ctx, anchor)
}

func (j *Job) syncAll(ctx context.Context, anchor *masterdata.Anchor) (commute.Result, error) {
	if !anchor.HasLocation() {
		return commute.Result{}, commute.ErrAnchorMissing
	}
	places, err := j.places.List(ctx)
	if err != nil {
		return commute.Result{}, fmt.Errorf("list places: %w", err)
	}
	return j.Sync(ctx, anchor, places)
}

// Sync queries the routing provider for each place in order, pausing between
// places, and replaces the stored record set when at least one place succeeded.
func (j *Job) Sync(ctx context.Context, anchor *masterdata.Anchor, places []masterdata.Place) (commute.Result, error) {
	if !anchor.HasLocation() {
		return commute.Result{}, commute.ErrAnchorMissing
	}
	started := time.Now()
	runID := uuid.NewString()
	logger := j.logger.With(zap.String("run_id", runID), zap.String("anchor_id", anchor.ID))
	logger.Info("commute sync started", zap.Int("places", len(places)))

	var (
		batch    []telemetry.CommuteRecord
		failures []commute.PlaceError
	)
	for i, place := range places {
		record, failure := j.syncPlace(ctx, *anchor.Location, place)
		if failure != nil {
			failures = append(failures, failure.PlaceError)
			metrics.IncSyncPlaceError(failure.reason)
			logger.Warn("commute sync place failed",
				zap.String("place", place.Name),
				zap.String("error", failure.Error),
				zap.String("detail", failure.Detail),
			)
		} else {
			batch = append(batch, record)
			logger.Debug("commute sync place updated",
				zap.String("place", place.Name),
				zap.Int("minutes", record.Minutes),
				zap.String("tier", string(record.Tier)),
				zap.Float64("distance_km", anchor.Location.DistanceKm(*place.Location)),
			)
		}

		if i < len(places)-1 && j.delay > 0 {
			if err := j.sleep(ctx, j.delay); err != nil {
				metrics.ObserveSync(metrics.ResultError, 0, time.Since(started))
				return commute.Result{}, fmt.Errorf("commute sync interrupted: %w", err)
			}
		}
	}

	if len(batch) > 0 {
		if err := j.store.ReplaceAll(ctx, batch); err != nil {
			metrics.ObserveSync(metrics.ResultError, 0, time.Since(started))
			logger.Error("commute sync commit failed", zap.Error(err))
			return commute.Result{}, fmt.Errorf("commit commute records: %w", err)
		}
	}

	result := commute.Result{
		Success:     true,
		Updated:     len(batch),
		TotalPlaces: len(places),
		Errors:      failures,
	}
	outcome := metrics.ResultSuccess
	switch {
	case result.Updated == 0:
		outcome = metrics.ResultNoop
	case result.Partial():
		outcome = metrics.ResultPartial
	}
	metrics.ObserveSync(outcome, result.Updated, time.Since(started))
	logger.Info("commute sync finished",
		zap.String("result", outcome),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(failures)),
		zap.Duration("elapsed", time.Since(started)),
	)

	if result.Partial() && j.notifier != nil {
		report := Report{RunID: runID, AnchorID: anchor.ID, Anchor: anchor.Name, Result: result, Finished: j.clock.Now()}
		if err := j.notifier.NotifySync(ctx, report); err != nil {
			logger.Warn("commute sync notification failed", zap.Error(err))
		}
	}
	return result, nil
}

type placeFailure struct {
	commute.PlaceError
	reason string
}

func newFailure(place masterdata.Place, reason, text, detail string) *placeFailure {
	return &placeFailure{
		PlaceError: commute.PlaceError{Place: place.Name, Error: text, Detail: detail},
		reason:     reason,
	}
}

func (j *Job) syncPlace(ctx context.Context, origin masterdata.Coordinate, place masterdata.Place) (telemetry.CommuteRecord, *placeFailure) {
	if !place.HasLocation() {
		return telemetry.CommuteRecord{}, newFailure(place, "missing_coordinates", commute.ErrTextCoordinatesMissing, "")
	}
	if !place.Location.Valid() {
		return telemetry.CommuteRecord{}, newFailure(place, "invalid_coordinates", commute.ErrTextCoordinatesInvalid, place.Location.String())
	}

	resp, err := j.router.Matrix(ctx, commute.MatrixRequest{Origin: origin, Destination: *place.Location})
	if err != nil {
		return telemetry.CommuteRecord{}, newFailure(place, "transport", err.Error(), "")
	}
	if resp == nil {
		return telemetry.CommuteRecord{}, newFailure(place, "transport", "routing API returned no response", "")
	}
	if resp.Status != commute.StatusOK {
		return telemetry.CommuteRecord{}, newFailure(place, "provider_status", "routing API error: "+resp.Status, resp.ErrorMessage)
	}
	element, ok := resp.FirstElement()
	if !ok {
		return telemetry.CommuteRecord{}, newFailure(place, "route_status", "route status: MISSING", "")
	}
	if element.Status != commute.StatusOK {
		return telemetry.CommuteRecord{}, newFailure(place, "route_status", "route status: "+element.Status, "")
	}
	minutes, tier, err := commute.Estimate(element)
	if err != nil {
		return telemetry.CommuteRecord{}, newFailure(place, "route_status", err.Error(), "")
	}
	return telemetry.CommuteRecord{
		PlaceID:     place.ID,
		PlaceName:   place.Name,
		Minutes:     minutes,
		Tier:        tier,
		LastUpdated: j.clock.Now().UTC(),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
