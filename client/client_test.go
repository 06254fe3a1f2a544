package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/controller"
	"github.com/TheBlueOompaLoompa/iv-admin/server"
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

func newTestClient(t *testing.T, d *fakeDevice) *Client {
	t.Helper()
	srv := httptest.NewServer(server.New(d, zap.NewNop()))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestStart(t *testing.T) {
	d := &fakeDevice{}
	c := newTestClient(t, d)

	err := c.Start(context.Background(), ivadmin.DosingRequest{VolumeML: 12.5, DurationMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, []ivadmin.DosingRequest{{VolumeML: 12.5, DurationMinutes: 30}}, d.started)
}

func TestStartInvalid(t *testing.T) {
	d := &fakeDevice{}
	c := newTestClient(t, d)

	err := c.Start(context.Background(), ivadmin.DosingRequest{VolumeML: 10, DurationMinutes: -1})
	assert.ErrorIs(t, err, ivadmin.ErrInvalidRequest)
	assert.Empty(t, d.started)
}

func TestStartRefused(t *testing.T) {
	d := &fakeDevice{err: controller.ErrRefused}
	c := newTestClient(t, d)

	err := c.Start(context.Background(), ivadmin.DosingRequest{VolumeML: 10, DurationMinutes: 1})
	assert.Error(t, err)
}

func TestStopAndReset(t *testing.T) {
	d := &fakeDevice{}
	c := newTestClient(t, d)

	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Reset(context.Background()))
	assert.Equal(t, 1, d.stops)
	assert.Equal(t, 1, d.resets)
}

func TestStatus(t *testing.T) {
	d := &fakeDevice{status: ivadmin.Status{
		VolumeML:         50,
		RemainingSeconds: 90,
		Page:             ivadmin.PageDosing,
		Tripped:          true,
	}}
	c := newTestClient(t, d)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, d.status, status)
}

func TestServerUnavailable(t *testing.T) {
	srv := httptest.NewServer(server.New(&fakeDevice{}, zap.NewNop()))
	c := New(srv.URL)
	srv.Close()

	_, err := c.Status(context.Background())
	assert.Error(t, err)
}
