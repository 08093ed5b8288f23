package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	telemetry "campus-pulse/internal/telemetry/domain"
)

type stubReader struct {
	records []telemetry.CommuteRecord
	err     error
	limit   int
}

func (r *stubReader) ListCommutes(_ context.Context, limit int) ([]telemetry.CommuteRecord, error) {
	r.limit = limit
	return r.records, r.err
}

var sampleRecords = []telemetry.CommuteRecord{
	{PlaceID: "poi-1", PlaceName: "Mid Valley", Minutes: 20, Tier: telemetry.TierSevere, LastUpdated: time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)},
	{PlaceID: "poi-2", Minutes: 9, Tier: telemetry.TierLow, LastUpdated: time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)},
}

func TestReportHandler_Records(t *testing.T) {
	reader := &stubReader{records: sampleRecords}
	handler, err := NewReportHandler(reader)
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/commute/records?limit=5", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 5, reader.limit)

	var got []telemetry.CommuteRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, sampleRecords, got)
}

func TestReportHandler_EmptyRecordsIsArray(t *testing.T) {
	handler, err := NewReportHandler(&stubReader{})
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/commute/records", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestReportHandler_XLSX(t *testing.T) {
	handler, err := NewReportHandler(&stubReader{records: sampleRecords})
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/commute/report.xlsx", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	book, err := excelize.OpenReader(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	name, err := book.GetCellValue("commutes", "A5")
	require.NoError(t, err)
	assert.Equal(t, "Mid Valley", name)
	fallback, err := book.GetCellValue("commutes", "A6")
	require.NoError(t, err)
	assert.Equal(t, "poi-2", fallback)
	tier, err := book.GetCellValue("commutes", "C5")
	require.NoError(t, err)
	assert.Equal(t, "severe", tier)
}

func TestReportHandler_PDF(t *testing.T) {
	handler, err := NewReportHandler(&stubReader{records: sampleRecords})
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/commute/report.pdf", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))
}

func TestReportHandler_Errors(t *testing.T) {
	handler, err := NewReportHandler(&stubReader{err: errors.New("db down")})
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/commute/records", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/commute/records?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/commute/records", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}
