package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

func TestControllerWrapperStart(t *testing.T) {
	pump := &fakePump{}
	var logs []string
	c := &controllerWrapper{pump: pump, log: func(s string) { logs = append(logs, s) }}

	require.NoError(t, c.Start("50", "10"))
	assert.Equal(t, []ivadmin.DosingRequest{{VolumeML: 50, DurationMinutes: 10}}, pump.started)
	assert.Equal(t, []string{"started 50.00 mL over 10 min"}, logs)
}

func TestControllerWrapperInvalidForm(t *testing.T) {
	pump := &fakePump{}
	c := &controllerWrapper{pump: pump, log: func(string) {}}

	err := c.Start("fifty", "10")
	assert.ErrorIs(t, err, ivadmin.ErrInvalidRequest)
	assert.Empty(t, pump.started)
}

func TestControllerWrapperErrorsLogged(t *testing.T) {
	pump := &fakePump{err: errors.New("unexpected status code: 409")}
	var logs []string
	c := &controllerWrapper{pump: pump, log: func(s string) { logs = append(logs, s) }}

	assert.Error(t, c.Stop())
	assert.Error(t, c.Reset())
	assert.Equal(t, []string{
		"stop failed: unexpected status code: 409",
		"reset failed: unexpected status code: 409",
	}, logs)
}
