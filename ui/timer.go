package ui

import (
	"context"
	"time"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

// poller reads the pump's status on every tick until ctx is done
type poller struct {
	pump     Pump
	period   time.Duration
	onStatus func(ivadmin.Status)
	onError  func(error)
}

func (p *poller) Go(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.period)
		defer ticker.Stop()

		for {
			p.poll(ctx)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (p *poller) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.period)
	defer cancel()

	s, err := p.pump.Status(pollCtx)
	switch {
	case ctx.Err() != nil:
		return
	case err != nil:
		p.onError(err)
	default:
		p.onStatus(s)
	}
}
