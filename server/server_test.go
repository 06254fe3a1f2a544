package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/controller"
)

type fakeDevice struct {
	started []ivadmin.DosingRequest
	stops   int
	resets  int
	status  ivadmin.Status
	err     error
}

func (d *fakeDevice) Start(_ context.Context, req ivadmin.DosingRequest) error {
	if d.err != nil {
		return d.err
	}
	d.started = append(d.started, req)
	return nil
}

func (d *fakeDevice) Stop(context.Context) error {
	d.stops++
	return d.err
}

func (d *fakeDevice) Reset(context.Context) error {
	d.resets++
	return d.err
}

func (d *fakeDevice) Status(context.Context) (ivadmin.Status, error) {
	return d.status, d.err
}

func do(t *testing.T, s *Server, method, target string) (*http.Response, string) {
	t.Helper()
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))

	resp := w.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRun(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		err            error
		expectedStatus int
		expectedStart  []ivadmin.DosingRequest
	}{
		{
			"Success",
			"/run?volume=50&minutes=10",
			nil,
			http.StatusNoContent,
			[]ivadmin.DosingRequest{{VolumeML: 50, DurationMinutes: 10}},
		},
		{
			"FractionalMinutesTruncated",
			"/run?volume=12.5&minutes=7.9",
			nil,
			http.StatusNoContent,
			[]ivadmin.DosingRequest{{VolumeML: 12.5, DurationMinutes: 7}},
		},
		{
			"MissingMinutes",
			"/run?volume=50",
			nil,
			http.StatusBadRequest,
			nil,
		},
		{
			"NotANumber",
			"/run?volume=lots&minutes=10",
			nil,
			http.StatusBadRequest,
			nil,
		},
		{
			"Refused",
			"/run?volume=50&minutes=10",
			controller.ErrRefused,
			http.StatusConflict,
			nil,
		},
		{
			"SerialFailure",
			"/run?volume=50&minutes=10",
			controller.ErrTimeout,
			http.StatusBadGateway,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDevice{err: tt.err}
			s := New(d, zap.NewNop())

			resp, _ := do(t, s, http.MethodGet, tt.target)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, tt.expectedStart, d.started)
		})
	}
}

func TestStopAndReset(t *testing.T) {
	d := &fakeDevice{}
	s := New(d, zap.NewNop())

	resp, _ := do(t, s, http.MethodPost, "/stop")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, d.stops)

	resp, _ = do(t, s, http.MethodGet, "/reset")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, d.resets)

	d.err = errors.New("port closed")
	resp, body := do(t, s, http.MethodGet, "/stop")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "port closed")
}

func TestStatus(t *testing.T) {
	d := &fakeDevice{status: ivadmin.Status{
		VolumeML:         50,
		RemainingSeconds: 342,
		Page:             ivadmin.PageDosing,
		Running:          true,
	}}
	s := New(d, zap.NewNop())

	resp, body := do(t, s, http.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "50.00,342", body)

	resp, body = do(t, s, http.MethodGet, "/status.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status ivadmin.Status
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, d.status, status)
}

func TestStatusSerialFailure(t *testing.T) {
	s := New(&fakeDevice{err: controller.ErrTimeout}, zap.NewNop())

	resp, _ := do(t, s, http.MethodGet, "/status")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	d := &fakeDevice{status: ivadmin.Status{RemainingSeconds: 120, Tripped: true}}
	s := New(d, zap.NewNop())

	do(t, s, http.MethodGet, "/run?volume=50&minutes=10")
	do(t, s, http.MethodGet, "/status")

	resp, body := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "iv_admin_starts_total 1")
	assert.Contains(t, body, "iv_admin_remaining_seconds 120")
	assert.Contains(t, body, "iv_admin_tripped 1")
	assert.Contains(t, body, "iv_admin_refused_total 0")
}

func TestCORS(t *testing.T) {
	s := New(&fakeDevice{}, zap.NewNop())

	resp, _ := do(t, s, http.MethodOptions, "/run")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
