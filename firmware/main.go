//go:build tinygo

package main

import (
	"context"
	"machine"
	"time"

	"github.com/TheBlueOompaLoompa/iv-admin/firmware/commands"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/device"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/sched"
)

// uiPeriod is how often core 0 polls the encoder, button and emergency input
const uiPeriod = time.Millisecond

func main() {
	d, err := device.New(device.DefaultConfig())
	if err != nil {
		panic(err)
	}

	ctx := context.Background()

	// core 1 only generates step pulses
	machine.Core1.Start(func() {
		sched.Run(ctx, sched.SystemClock{}, 0, d.Motion())
	})

	go sched.Run(ctx, sched.SystemClock{}, uiPeriod, d.UI())

	commands.Run(d)
}
