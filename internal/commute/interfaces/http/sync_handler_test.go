package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-pulse/internal/audit"
	"campus-pulse/internal/auth"
	commuteapp "campus-pulse/internal/commute/application"
	commute "campus-pulse/internal/commute/domain"
	masterdata "campus-pulse/internal/masterdata/domain"
	telemetry "campus-pulse/internal/telemetry/domain"
)

var secret = []byte("sync-secret")

type stubSyncer struct {
	results map[string]commute.Result
	errs    map[string]error
	callers []string
}

func (s *stubSyncer) SyncForCaller(_ context.Context, userID string) (commute.Result, error) {
	s.callers = append(s.callers, userID)
	if err := s.errs[userID]; err != nil {
		return commute.Result{}, err
	}
	return s.results[userID], nil
}

func newSyncHandler(t *testing.T, syncer CallerSyncer) *SyncHandler {
	t.Helper()
	handler, err := NewSyncHandler(syncer, secret, nil)
	require.NoError(t, err)
	return handler
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token, err := auth.IssueJWT(secret, subject, auth.RoleViewer, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doSync(handler http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestSyncHandler_Preflight(t *testing.T) {
	syncer := &stubSyncer{}
	resp := doSync(newSyncHandler(t, syncer), http.MethodOptions, SyncPath, "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.Body.String())
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", resp.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization, X-Client-Info, Apikey", resp.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, syncer.callers)
}

func TestSyncHandler_Unauthorized(t *testing.T) {
	handler := newSyncHandler(t, &stubSyncer{})

	resp := doSync(handler, http.MethodPost, SyncPath, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Missing authorization header", decodeBody(t, resp)["error"])

	resp = doSync(handler, http.MethodPost, SyncPath, "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid authorization token", decodeBody(t, resp)["error"])
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestSyncHandler_Success(t *testing.T) {
	syncer := &stubSyncer{results: map[string]commute.Result{
		"user-1": {Success: true, Updated: 2, TotalPlaces: 3, Errors: []commute.PlaceError{{Place: "KLIA", Error: "route status: ZERO_RESULTS"}}},
		"user-2": {Success: true, Updated: 3, TotalPlaces: 3},
	}}
	handler := newSyncHandler(t, syncer)

	resp := doSync(handler, http.MethodPost, SyncPath, bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"updated":2,"total_pois":3,"errors":[{"poi":"KLIA","error":"route status: ZERO_RESULTS"}]}`, resp.Body.String())

	resp = doSync(handler, http.MethodGet, SyncAliasPath, bearer(t, "user-2"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"updated":3,"total_pois":3}`, resp.Body.String())
	assert.Equal(t, []string{"user-1", "user-2"}, syncer.callers)
}

func TestSyncHandler_PreconditionAndInternalErrors(t *testing.T) {
	syncer := &stubSyncer{errs: map[string]error{
		"no-profile": masterdata.ErrProfileNotFound,
		"no-coords":  commute.ErrAnchorMissing,
		"broken":     errors.New("commit commute records: connection reset"),
	}}
	handler := newSyncHandler(t, syncer)

	resp := doSync(handler, http.MethodPost, SyncPath, bearer(t, "no-profile"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "User profile or university not found", decodeBody(t, resp)["error"])

	resp = doSync(handler, http.MethodPost, SyncPath, bearer(t, "no-coords"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "University coordinates not found", decodeBody(t, resp)["error"])

	resp = doSync(handler, http.MethodPost, SyncPath, bearer(t, "broken"))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "commit commute records: connection reset", body["error"])
	assert.NotEmpty(t, body["stack"])
}

func TestSyncHandler_RejectsOtherMethods(t *testing.T) {
	resp := doSync(newSyncHandler(t, &stubSyncer{}), http.MethodDelete, SyncPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

type recordingAudit struct {
	entries []audit.Entry
}

func (a *recordingAudit) Log(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func TestSyncHandler_AuditsAuthenticatedCalls(t *testing.T) {
	syncer := &stubSyncer{
		results: map[string]commute.Result{"user-1": {Success: true, Updated: 1, TotalPlaces: 1}},
		errs:    map[string]error{"ghost": masterdata.ErrProfileNotFound},
	}
	recorder := &recordingAudit{}
	handler, err := NewSyncHandler(syncer, secret, nil, WithAuditLogger(recorder))
	require.NoError(t, err)

	doSync(handler, http.MethodPost, SyncPath, "")
	doSync(handler, http.MethodPost, SyncPath, bearer(t, "user-1"))
	doSync(handler, http.MethodPost, SyncPath, bearer(t, "ghost"))

	require.Len(t, recorder.entries, 2)
	assert.Equal(t, "user-1", recorder.entries[0].Actor)
	assert.Equal(t, audit.ActionCommuteSync, recorder.entries[0].Action)
	assert.Equal(t, "ok", recorder.entries[0].Outcome)
	assert.Equal(t, "viewer", recorder.entries[0].Role)
	assert.JSONEq(t, `{"updated":1,"total_pois":1,"errors":0}`, string(recorder.entries[0].Metadata))
	assert.Equal(t, "ghost", recorder.entries[1].Actor)
	assert.Equal(t, "error", recorder.entries[1].Outcome)
}

type staticPlaces []masterdata.Place

func (p staticPlaces) List(context.Context) ([]masterdata.Place, error) {
	return p, nil
}

type profileAnchors struct {
	anchor *masterdata.Anchor
}

func (a profileAnchors) Get(context.Context, string) (*masterdata.Anchor, error) {
	return a.anchor, nil
}

func (a profileAnchors) ResolveForUser(context.Context, string) (*masterdata.Anchor, error) {
	return a.anchor, nil
}

type countingStore struct {
	commits [][]telemetry.CommuteRecord
}

func (s *countingStore) ReplaceAll(_ context.Context, records []telemetry.CommuteRecord) error {
	s.commits = append(s.commits, records)
	return nil
}

// disconnectingRouter cancels the caller's request after answering the first place.
type disconnectingRouter struct {
	cancel context.CancelFunc
	calls  int
}

func (r *disconnectingRouter) Matrix(context.Context, commute.MatrixRequest) (*commute.MatrixResponse, error) {
	r.calls++
	if r.calls == 1 {
		r.cancel()
	}
	return &commute.MatrixResponse{
		Status: commute.StatusOK,
		Rows: []commute.MatrixRow{{Elements: []commute.MatrixElement{{
			Status:            commute.StatusOK,
			Duration:          &commute.Duration{Value: 600},
			DurationInTraffic: &commute.Duration{Value: 660},
		}}}},
	}, nil
}

func TestSyncHandler_CommitsAfterCallerDisconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := &disconnectingRouter{cancel: cancel}
	store := &countingStore{}
	anchor := &masterdata.Anchor{ID: "uni-1", Name: "Campus", Location: &masterdata.Coordinate{Lat: 3.12, Lng: 101.65}}
	places := staticPlaces{
		{ID: "p1", Name: "KLCC", Location: &masterdata.Coordinate{Lat: 3.157, Lng: 101.711}},
		{ID: "p2", Name: "Mid Valley", Location: &masterdata.Coordinate{Lat: 3.118, Lng: 101.677}},
	}
	job, err := commuteapp.NewJob(router, store, places, profileAnchors{anchor: anchor},
		commuteapp.WithRequestDelay(time.Millisecond),
	)
	require.NoError(t, err)
	handler := newSyncHandler(t, job)

	req := httptest.NewRequest(http.MethodPost, SyncPath, nil).WithContext(ctx)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"updated":2,"total_pois":2}`, resp.Body.String())
	assert.Equal(t, 2, router.calls)
	require.Len(t, store.commits, 1)
	assert.Len(t, store.commits[0], 2)
}
