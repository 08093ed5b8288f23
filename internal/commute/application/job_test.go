package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commute "campus-pulse/internal/commute/domain"
	masterdata "campus-pulse/internal/masterdata/domain"
	telemetry "campus-pulse/internal/telemetry/domain"
)

type fakeRouter struct {
	mu        sync.Mutex
	responses map[masterdata.Coordinate]*commute.MatrixResponse
	errs      map[masterdata.Coordinate]error
	requests  []commute.MatrixRequest
}

func (r *fakeRouter) Matrix(_ context.Context, req commute.MatrixRequest) (*commute.MatrixResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if err := r.errs[req.Destination]; err != nil {
		return nil, err
	}
	return r.responses[req.Destination], nil
}

type fakeStore struct {
	batches [][]telemetry.CommuteRecord
	err     error
}

func (s *fakeStore) ReplaceAll(_ context.Context, records []telemetry.CommuteRecord) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

type fakePlaces struct{ places []masterdata.Place }

func (p fakePlaces) List(context.Context) ([]masterdata.Place, error) { return p.places, nil }

type fakeAnchors struct {
	byID   map[string]*masterdata.Anchor
	byUser map[string]*masterdata.Anchor
}

func (a fakeAnchors) Get(_ context.Context, id string) (*masterdata.Anchor, error) {
	return a.byID[id], nil
}

func (a fakeAnchors) ResolveForUser(_ context.Context, userID string) (*masterdata.Anchor, error) {
	anchor, ok := a.byUser[userID]
	if !ok {
		return nil, masterdata.ErrProfileNotFound
	}
	return anchor, nil
}

type recordingSleeper struct {
	calls []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

type notifierFunc func(ctx context.Context, report Report) error

func (f notifierFunc) NotifySync(ctx context.Context, report Report) error { return f(ctx, report) }

var (
	syncTime = time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	campus   = &masterdata.Anchor{ID: "uni-1", Code: "UM", Name: "Universiti Malaya", Location: &masterdata.Coordinate{Lat: 3.0, Lng: 101.0}}
	mall     = masterdata.Coordinate{Lat: 3.1, Lng: 101.1}
	station  = masterdata.Coordinate{Lat: 3.2, Lng: 101.2}
	airport  = masterdata.Coordinate{Lat: 2.7, Lng: 101.7}
)

func okResponse(baseline, traffic int64) *commute.MatrixResponse {
	element := commute.MatrixElement{Status: commute.StatusOK, Duration: &commute.Duration{Value: baseline}}
	if traffic > 0 {
		element.DurationInTraffic = &commute.Duration{Value: traffic}
	}
	return &commute.MatrixResponse{Status: commute.StatusOK, Rows: []commute.MatrixRow{{Elements: []commute.MatrixElement{element}}}}
}

func newTestJob(t *testing.T, router commute.Router, store commute.RecordStore, sleeper *recordingSleeper, opts ...Option) *Job {
	t.Helper()
	opts = append([]Option{
		WithSleeper(sleeper.sleep),
		WithClock(fixedClock(syncTime)),
	}, opts...)
	job, err := NewJob(router, store, nil, nil, opts...)
	require.NoError(t, err)
	return job
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestSync_SinglePlaceSevere(t *testing.T) {
	router := &fakeRouter{responses: map[masterdata.Coordinate]*commute.MatrixResponse{mall: okResponse(600, 1200)}}
	store := &fakeStore{}
	sleeper := &recordingSleeper{}
	job := newTestJob(t, router, store, sleeper)

	result, err := job.Sync(context.Background(), campus, []masterdata.Place{{ID: "poi-1", Name: "Mid Valley", Location: &mall}})
	require.NoError(t, err)
	assert.Equal(t, commute.Result{Success: true, Updated: 1, TotalPlaces: 1}, result)

	require.Len(t, router.requests, 1)
	assert.Equal(t, *campus.Location, router.requests[0].Origin)
	assert.Equal(t, mall, router.requests[0].Destination)

	require.Len(t, store.batches, 1)
	assert.Equal(t, []telemetry.CommuteRecord{{
		PlaceID:     "poi-1",
		PlaceName:   "Mid Valley",
		Minutes:     20,
		Tier:        telemetry.TierSevere,
		LastUpdated: syncTime,
	}}, store.batches[0])
	assert.Empty(t, sleeper.calls)
}

func TestSync_PartialFailure(t *testing.T) {
	router := &fakeRouter{
		responses: map[masterdata.Coordinate]*commute.MatrixResponse{
			mall:    okResponse(600, 700),
			station: {Status: "OVER_QUERY_LIMIT", ErrorMessage: "You have exceeded your rate-limit"},
			airport: {Status: commute.StatusOK, Rows: []commute.MatrixRow{{Elements: []commute.MatrixElement{{Status: "ZERO_RESULTS"}}}}},
		},
	}
	store := &fakeStore{}
	sleeper := &recordingSleeper{}
	var reports []Report
	job := newTestJob(t, router, store, sleeper, WithNotifier(notifierFunc(func(_ context.Context, report Report) error {
		reports = append(reports, report)
		return errors.New("webhook down")
	})))

	places := []masterdata.Place{
		{ID: "poi-0", Name: "Nowhere"},
		{ID: "poi-1", Name: "Mid Valley", Location: &mall},
		{ID: "poi-2", Name: "KL Sentral", Location: &station},
		{ID: "poi-3", Name: "KLIA", Location: &airport},
	}
	result, err := job.Sync(context.Background(), campus, places)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 4, result.TotalPlaces)
	assert.Equal(t, []commute.PlaceError{
		{Place: "Nowhere", Error: "POI coordinates missing"},
		{Place: "KL Sentral", Error: "routing API error: OVER_QUERY_LIMIT", Detail: "You have exceeded your rate-limit"},
		{Place: "KLIA", Error: "route status: ZERO_RESULTS"},
	}, result.Errors)

	require.Len(t, store.batches, 1)
	assert.Equal(t, telemetry.TierModerate, store.batches[0][0].Tier)
	assert.Equal(t, 12, store.batches[0][0].Minutes)

	assert.Len(t, router.requests, 3)
	assert.Equal(t, []time.Duration{defaultRequestDelay, defaultRequestDelay, defaultRequestDelay}, sleeper.calls)

	require.Len(t, reports, 1)
	assert.Equal(t, "uni-1", reports[0].AnchorID)
	assert.NotEmpty(t, reports[0].RunID)
}

func TestSync_ZeroSuccessLeavesStoreUntouched(t *testing.T) {
	router := &fakeRouter{errs: map[masterdata.Coordinate]error{mall: errors.New("dial tcp: i/o timeout")}}
	store := &fakeStore{}
	sleeper := &recordingSleeper{}
	job := newTestJob(t, router, store, sleeper)

	result, err := job.Sync(context.Background(), campus, []masterdata.Place{
		{ID: "poi-1", Name: "Mid Valley", Location: &mall},
		{ID: "poi-2", Name: "Unknown", Location: &masterdata.Coordinate{Lat: 95, Lng: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.TotalPlaces)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "dial tcp: i/o timeout", result.Errors[0].Error)
	assert.Equal(t, "POI coordinates invalid", result.Errors[1].Error)
	assert.Empty(t, store.batches)
	assert.Len(t, sleeper.calls, 1)
}

func TestSync_EmptyPlaceList(t *testing.T) {
	store := &fakeStore{}
	job := newTestJob(t, &fakeRouter{}, store, &recordingSleeper{})

	result, err := job.Sync(context.Background(), campus, nil)
	require.NoError(t, err)
	assert.Equal(t, commute.Result{Success: true}, result)
	assert.Empty(t, store.batches)
}

func TestSync_AnchorMissingFailsBeforeRouting(t *testing.T) {
	router := &fakeRouter{}
	job := newTestJob(t, router, &fakeStore{}, &recordingSleeper{})
	places := []masterdata.Place{{ID: "poi-1", Name: "Mid Valley", Location: &mall}}

	_, err := job.Sync(context.Background(), nil, places)
	assert.ErrorIs(t, err, commute.ErrAnchorMissing)

	_, err = job.Sync(context.Background(), &masterdata.Anchor{ID: "uni-2"}, places)
	assert.ErrorIs(t, err, commute.ErrAnchorMissing)
	assert.Empty(t, router.requests)
}

func TestSync_CommitFailure(t *testing.T) {
	router := &fakeRouter{responses: map[masterdata.Coordinate]*commute.MatrixResponse{mall: okResponse(600, 600)}}
	job := newTestJob(t, router, &fakeStore{err: errors.New("deadlock detected")}, &recordingSleeper{})

	_, err := job.Sync(context.Background(), campus, []masterdata.Place{{ID: "poi-1", Name: "Mid Valley", Location: &mall}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestSync_CancelledDuringDelay(t *testing.T) {
	router := &fakeRouter{responses: map[masterdata.Coordinate]*commute.MatrixResponse{mall: okResponse(600, 600), station: okResponse(600, 600)}}
	store := &fakeStore{}
	job, err := NewJob(router, store, nil, nil, WithRequestDelay(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = job.Sync(ctx, campus, []masterdata.Place{
		{ID: "poi-1", Name: "Mid Valley", Location: &mall},
		{ID: "poi-2", Name: "KL Sentral", Location: &station},
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, store.batches)
}

func TestSyncForCaller(t *testing.T) {
	router := &fakeRouter{responses: map[masterdata.Coordinate]*commute.MatrixResponse{mall: okResponse(600, 900)}}
	store := &fakeStore{}
	anchors := fakeAnchors{byUser: map[string]*masterdata.Anchor{
		"user-1": campus,
		"user-2": {ID: "uni-2", Name: "No coordinates"},
	}}
	places := fakePlaces{places: []masterdata.Place{{ID: "poi-1", Name: "Mid Valley", Location: &mall}}}
	job, err := NewJob(router, store, places, anchors, WithSleeper((&recordingSleeper{}).sleep))
	require.NoError(t, err)

	result, err := job.SyncForCaller(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, telemetry.TierHeavy, store.batches[0][0].Tier)

	_, err = job.SyncForCaller(context.Background(), "user-2")
	assert.ErrorIs(t, err, commute.ErrAnchorMissing)

	_, err = job.SyncForCaller(context.Background(), "stranger")
	assert.ErrorIs(t, err, masterdata.ErrProfileNotFound)
}

func TestScheduler_RunOnce(t *testing.T) {
	router := &fakeRouter{responses: map[masterdata.Coordinate]*commute.MatrixResponse{mall: okResponse(600, 600)}}
	store := &fakeStore{}
	anchors := fakeAnchors{byID: map[string]*masterdata.Anchor{"uni-1": campus}}
	places := fakePlaces{places: []masterdata.Place{{ID: "poi-1", Name: "Mid Valley", Location: &mall}}}
	job, err := NewJob(router, store, places, anchors)
	require.NoError(t, err)

	scheduler := NewScheduler(job, []string{"uni-1", "", "missing"}, time.Hour, nil)
	scheduler.RunOnce(context.Background())

	assert.Len(t, store.batches, 1)

	_, err = job.SyncAnchor(context.Background(), "missing")
	assert.ErrorIs(t, err, commute.ErrAnchorNotFound)
}
