package ui

import (
	"context"
	"fmt"
	"time"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

// Pump is what the console controls. client.Client implements it.
type Pump interface {
	Start(context.Context, ivadmin.DosingRequest) error
	Stop(context.Context) error
	Reset(context.Context) error
	Status(context.Context) (ivadmin.Status, error)
}

const requestTimeout = 5 * time.Second

// controllerWrapper runs pump commands and reports each outcome to log
type controllerWrapper struct {
	pump Pump
	log  func(string)
}

func (c *controllerWrapper) Start(volume, minutes string) error {
	req, err := ivadmin.ParseRequest(volume, minutes)
	if err != nil {
		return fmt.Errorf("enter a volume and a whole number of minutes: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err = c.pump.Start(ctx, req)
	if err != nil {
		c.log("start failed: " + err.Error())
		return err
	}

	c.log(fmt.Sprintf("started %.2f mL over %d min", req.VolumeML, req.DurationMinutes))
	return nil
}

func (c *controllerWrapper) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err := c.pump.Stop(ctx)
	if err != nil {
		c.log("stop failed: " + err.Error())
		return err
	}

	c.log("stopped")
	return nil
}

func (c *controllerWrapper) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err := c.pump.Reset(ctx)
	if err != nil {
		c.log("reset failed: " + err.Error())
		return err
	}

	c.log("reset")
	return nil
}
