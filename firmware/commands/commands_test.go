package commands

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

type fakeController struct {
	input   *strings.Reader
	replies []string

	started []ivadmin.DosingRequest
	refuse  bool
	stops   int
	resets  int
	verbose bool
	status  ivadmin.Status
}

func newFake(input string) *fakeController {
	return &fakeController{input: strings.NewReader(input)}
}

func (f *fakeController) Start(req ivadmin.DosingRequest) bool {
	if f.refuse {
		return false
	}
	f.started = append(f.started, req)
	return true
}

func (f *fakeController) Stop()                   { f.stops++ }
func (f *fakeController) Status() ivadmin.Status  { return f.status }
func (f *fakeController) Reset()                  { f.resets++ }
func (f *fakeController) Verbose()                { f.verbose = true }
func (f *fakeController) ReadByte() (byte, error) { return f.input.ReadByte() }
func (f *fakeController) Reply(s string)          { f.replies = append(f.replies, s) }

// drain runs commands until the input is exhausted
func (f *fakeController) drain(t *testing.T) {
	t.Helper()
	for {
		err := Next(f)
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}

func TestRun(t *testing.T) {
	f := newFake("S50,10\r\n")
	f.drain(t)

	assert.Equal(t, []ivadmin.DosingRequest{{VolumeML: 50, DurationMinutes: 10}}, f.started)
	assert.Equal(t, []string{ivadmin.ReplyOK}, f.replies)
}

func TestRunRefused(t *testing.T) {
	f := newFake("S50,10\n")
	f.refuse = true
	f.drain(t)

	assert.Equal(t, []string{ivadmin.ReplyRefused}, f.replies)
}

func TestRunInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"NotANumber", "Sabc,10\n"},
		{"MissingMinutes", "S50\n"},
		{"NegativeVolume", "S-5,10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake(tt.input)
			f.drain(t)

			assert.Empty(t, f.started)
			require.Len(t, f.replies, 1)
			assert.Equal(t, ivadmin.ReplyError+ivadmin.ErrInvalidRequest.Error(), f.replies[0])
		})
	}
}

func TestPayloadTooLong(t *testing.T) {
	f := newFake("S" + strings.Repeat("1", MaxPayload+5) + "\nX")
	f.drain(t)

	assert.Empty(t, f.started)
	assert.Equal(t, []string{ivadmin.ReplyError + "payload too long", ivadmin.ReplyOK}, f.replies)
	assert.Equal(t, 1, f.stops)
}

func TestPayloadCutShort(t *testing.T) {
	f := newFake("S50,")
	err := Next(f)
	assert.Equal(t, io.EOF, err)
	assert.Empty(t, f.started)
}

func TestSimpleCommands(t *testing.T) {
	f := newFake("X\nZ\nV\nq")
	f.drain(t)

	assert.Equal(t, 1, f.stops)
	assert.Equal(t, 1, f.resets)
	assert.True(t, f.verbose)
	assert.Equal(t, []string{ivadmin.ReplyOK, ivadmin.ReplyOK, ivadmin.ReplyOK}, f.replies)
}

func TestStatus(t *testing.T) {
	f := newFake("?")
	f.status = ivadmin.Status{VolumeML: 50, RemainingSeconds: 300, Page: ivadmin.PageDosing, Running: true}
	f.drain(t)

	assert.Equal(t, []string{"50.00,300,dosing,0,1"}, f.replies)
}

func TestHelp(t *testing.T) {
	f := newFake("H")
	f.drain(t)

	require.Len(t, f.replies, len(commands)+2)
	assert.Equal(t, "Available Commands:", f.replies[0])
	assert.Equal(t, "X: Stop dosing.", f.replies[2])
	assert.Equal(t, ivadmin.ReplyOK, f.replies[len(f.replies)-1])
}
