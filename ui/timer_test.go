package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

type fakePump struct {
	mtx     sync.Mutex
	status  ivadmin.Status
	err     error
	started []ivadmin.DosingRequest
	stops   int
}

func (p *fakePump) Start(_ context.Context, req ivadmin.DosingRequest) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.started = append(p.started, req)
	return p.err
}

func (p *fakePump) Stop(context.Context) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.stops++
	return p.err
}

func (p *fakePump) Reset(context.Context) error {
	return p.err
}

func (p *fakePump) Status(context.Context) (ivadmin.Status, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.status, p.err
}

func TestPollerDeliversStatus(t *testing.T) {
	pump := &fakePump{status: ivadmin.Status{Page: ivadmin.PageDosing, RemainingSeconds: 30}}

	statuses := make(chan ivadmin.Status, 10)
	p := &poller{
		pump:     pump,
		period:   10 * time.Millisecond,
		onStatus: func(s ivadmin.Status) { statuses <- s },
		onError:  func(err error) { t.Errorf("unexpected error: %v", err) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Go(ctx)

	select {
	case s := <-statuses:
		assert.Equal(t, pump.status, s)
	case <-time.After(time.Second):
		t.Fatal("no status received")
	}
}

func TestPollerReportsErrors(t *testing.T) {
	pump := &fakePump{err: errors.New("connection refused")}

	errs := make(chan error, 10)
	p := &poller{
		pump:     pump,
		period:   10 * time.Millisecond,
		onStatus: func(ivadmin.Status) { t.Error("unexpected status") },
		onError:  func(err error) { errs <- err },
	}

	p.poll(context.Background())
	assert.EqualError(t, <-errs, "connection refused")
}

func TestPollerQuietAfterCancel(t *testing.T) {
	pump := &fakePump{err: errors.New("connection refused")}
	p := &poller{
		pump:     pump,
		period:   10 * time.Millisecond,
		onStatus: func(ivadmin.Status) { t.Error("unexpected status") },
		onError:  func(error) { t.Error("unexpected error") },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.poll(ctx)
}
