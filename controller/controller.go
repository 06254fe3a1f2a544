package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

// SerialPortNone is offered alongside the detected ports to run without a device
const SerialPortNone = "none"

var (
	// ErrNoUSBSerial is returned by GetSerialPorts when no USB serial device is attached
	ErrNoUSBSerial = errors.New("no USB serial ports found")
	// ErrTimeout is returned when the device does not answer a command in time
	ErrTimeout = errors.New("timed out waiting for device")
	// ErrRefused is returned when the device refuses to start, because the emergency stop is tripped
	ErrRefused = errors.New("device refused the request")
)

const (
	defaultTimeout = 2 * time.Second
	readTimeout    = 50 * time.Millisecond
)

// Port is the part of serial.Port used by the Controller
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
}

// Controller talks to the pump over its serial link. Commands are serialized, only one is in flight at a time.
type Controller struct {
	port    Port
	logger  *zap.Logger
	timeout time.Duration

	mtx     sync.Mutex
	pending []byte
	chunk   [64]byte
}

// New creates a Controller on an open Port
func New(port Port, logger *zap.Logger) (*Controller, error) {
	err := port.SetReadTimeout(readTimeout)
	if err != nil {
		return nil, fmt.Errorf("error setting read timeout: %w", err)
	}

	return &Controller{
		port:    port,
		logger:  logger,
		timeout: defaultTimeout,
	}, nil
}

// Open opens the serial port in cfg
func Open(cfg Config, logger *zap.Logger) (*Controller, error) {
	if cfg.SerialPort == "" || cfg.SerialPort == SerialPortNone {
		return nil, errors.New("no serial port configured, set " + EnvSerialPort)
	}

	baud, err := cfg.Baud()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(cfg.SerialPort, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", cfg.SerialPort, err)
	}

	c, err := New(port, logger)
	if err != nil {
		port.Close()
		return nil, err
	}

	logger.Info("connected to device", zap.String("port", cfg.SerialPort), zap.Int("baud", baud))
	return c, nil
}

// NewFromEnv opens the serial port configured in the environment
func NewFromEnv(logger *zap.Logger) (*Controller, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return Open(cfg, logger)
}

// GetSerialPorts lists the USB serial ports that might be the device
func GetSerialPorts() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var ports []string
	for _, p := range details {
		if p.IsUSB {
			ports = append(ports, p.Name)
		}
	}

	if len(ports) == 0 {
		return nil, ErrNoUSBSerial
	}
	return ports, nil
}

// Close closes the serial port
func (c *Controller) Close() error {
	return c.port.Close()
}

// SetTimeout changes how long to wait for each reply
func (c *Controller) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Start asks the device to start dosing req
func (c *Controller) Start(ctx context.Context, req ivadmin.DosingRequest) error {
	err := req.Validate()
	if err != nil {
		return err
	}

	c.logger.Info("starting dose", zap.Float64("volume_ml", req.VolumeML), zap.Int64("minutes", req.DurationMinutes))
	return c.command(ctx, string(ivadmin.CommandRun)+ivadmin.FormatRun(req)+"\n")
}

// Stop asks the device to stop dosing
func (c *Controller) Stop(ctx context.Context) error {
	c.logger.Info("stopping dose")
	return c.command(ctx, string(ivadmin.CommandStop))
}

// Reset returns the device from the calibration pages
func (c *Controller) Reset(ctx context.Context) error {
	return c.command(ctx, string(ivadmin.CommandReset))
}

// Verbose turns on the device's verbose logging
func (c *Controller) Verbose(ctx context.Context) error {
	return c.command(ctx, string(ivadmin.CommandVerbose))
}

// Status reads the device's current Status
func (c *Controller) Status(ctx context.Context) (ivadmin.Status, error) {
	var status ivadmin.Status
	err := c.exchange(ctx, string(ivadmin.CommandStatus), func(line string) (bool, error) {
		if strings.Count(line, ",") != 4 {
			return false, nil
		}
		s, err := ivadmin.ParseStatus(line)
		if err != nil {
			return false, nil
		}
		status = s
		return true, nil
	})
	return status, err
}

// Run is a raw console: everything read from r is sent to the device and everything the device writes is copied
// to w. It returns when ctx is done or r is exhausted.
func (c *Controller) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for {
			if ctx.Err() != nil {
				readErr <- nil
				return
			}

			c.mtx.Lock()
			n, err := c.port.Read(buf)
			c.mtx.Unlock()
			if err != nil {
				readErr <- fmt.Errorf("error reading serial: %w", err)
				return
			}

			_, err = w.Write(buf[:n])
			if err != nil {
				readErr <- fmt.Errorf("error writing output: %w", err)
				return
			}
		}
	}()

	writeErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(lockedWriter{c}, r)
		writeErr <- err
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-readErr:
		return err
	case err := <-writeErr:
		if err != nil {
			return fmt.Errorf("error writing serial: %w", err)
		}
		return nil
	}
}

type lockedWriter struct {
	c *Controller
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.c.mtx.Lock()
	defer lw.c.mtx.Unlock()
	return lw.c.port.Write(p)
}

// command sends cmd and waits for ok, refused or an error reply
func (c *Controller) command(ctx context.Context, cmd string) error {
	return c.exchange(ctx, cmd, func(line string) (bool, error) {
		switch {
		case line == ivadmin.ReplyOK:
			return true, nil
		case line == ivadmin.ReplyRefused:
			return true, ErrRefused
		case strings.HasPrefix(line, ivadmin.ReplyError):
			return true, fmt.Errorf("device error: %s", strings.TrimPrefix(line, ivadmin.ReplyError))
		default:
			return false, nil
		}
	})
}

// exchange writes cmd and hands each line the device writes to accept until accept reports the reply was found.
// Lines that are not the reply are device log output.
func (c *Controller) exchange(ctx context.Context, cmd string, accept func(string) (bool, error)) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if len(c.pending) > 0 {
		c.logger.Debug("discarding stale device output", zap.ByteString("output", c.pending))
		c.pending = nil
	}

	_, err := c.port.Write([]byte(cmd))
	if err != nil {
		return fmt.Errorf("error writing serial: %w", err)
	}

	deadline := time.Now().Add(c.timeout)
	for {
		line, err := c.readLine(ctx, deadline)
		if err != nil {
			return err
		}

		done, err := accept(line)
		if done {
			return err
		}
		if line != "" {
			c.logger.Debug("device", zap.String("line", line))
		}
	}
}

func (c *Controller) readLine(ctx context.Context, deadline time.Time) (string, error) {
	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := strings.TrimRight(string(c.pending[:i]), "\r")
			c.pending = c.pending[i+1:]
			return line, nil
		}

		err := ctx.Err()
		if err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}

		n, err := c.port.Read(c.chunk[:])
		if err != nil {
			return "", fmt.Errorf("error reading serial: %w", err)
		}
		c.pending = append(c.pending, c.chunk[:n]...)
	}
}
