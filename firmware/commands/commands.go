package commands

import (
	"errors"
	"strings"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

// MaxPayload is the longest payload accepted after a flag, not counting the newline
const MaxPayload = 32

var errPayloadTooLong = errors.New("payload too long")

type Command struct {
	Flag byte
	// Payload commands read a newline-terminated argument after the flag
	Payload     bool
	Run         func(Controller, []byte) error
	Description string
}

// Controller is used to control a device
type Controller interface {
	// Start asks the device to start a dose. It returns false when the request is refused.
	Start(ivadmin.DosingRequest) bool
	Stop()
	Status() ivadmin.Status
	Reset()
	Verbose()

	// I/O
	ReadByte() (byte, error)
	Reply(string)
}

var (
	RunCommand = &Command{
		Flag:    ivadmin.CommandRun,
		Payload: true,
		Run: func(c Controller, input []byte) error {
			req, err := ivadmin.ParseRun(string(input))
			if err != nil {
				return err
			}
			if !c.Start(req) {
				c.Reply(ivadmin.ReplyRefused)
				return nil
			}
			c.Reply(ivadmin.ReplyOK)
			return nil
		},
		Description: "Start dosing. Input: '<volume mL>,<minutes>' then newline.",
	}
	StopCommand = &Command{
		Flag: ivadmin.CommandStop,
		Run: func(c Controller, _ []byte) error {
			c.Stop()
			c.Reply(ivadmin.ReplyOK)
			return nil
		},
		Description: "Stop dosing.",
	}
	StatusCommand = &Command{
		Flag: ivadmin.CommandStatus,
		Run: func(c Controller, _ []byte) error {
			c.Reply(ivadmin.FormatStatus(c.Status()))
			return nil
		},
		Description: "Print 'volume,remaining,page,tripped,running'.",
	}
	ResetCommand = &Command{
		Flag: ivadmin.CommandReset,
		Run: func(c Controller, _ []byte) error {
			c.Reset()
			c.Reply(ivadmin.ReplyOK)
			return nil
		},
		Description: "Leave calibration and return to the volume page.",
	}
	VerboseCommand = &Command{
		Flag: ivadmin.CommandVerbose,
		Run: func(c Controller, _ []byte) error {
			c.Verbose()
			c.Reply(ivadmin.ReplyOK)
			return nil
		},
		Description: "Enable verbose output.",
	}
	HelpCommand = &Command{
		Flag:        ivadmin.CommandHelp,
		Description: "Show all available commands and their descriptions.",
		Run: func(c Controller, _ []byte) error {
			c.Reply("Available Commands:")
			for _, cmd := range commands {
				c.Reply(string(cmd.Flag) + ": " + cmd.Description)
			}
			c.Reply(ivadmin.ReplyOK)
			return nil
		},
	}
)

var commands = []*Command{
	RunCommand,
	StopCommand,
	StatusCommand,
	ResetCommand,
	VerboseCommand,
}

var cmdMap = func() map[byte]*Command {
	m := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}
	for _, cmd := range commands {
		m[cmd.Flag] = cmd
	}
	return m
}()

// Run reads and runs commands forever
func Run(c Controller) {
	for {
		err := Next(c)
		if err != nil {
			println("error reading command:", err.Error())
		}
	}
}

// Next reads one flag byte and runs its command. Unknown flags and line endings are skipped. Errors from running
// the command are replied to the host. Only read errors are returned.
func Next(c Controller) error {
	flag, err := c.ReadByte()
	if err != nil {
		return err
	}

	cmd, ok := cmdMap[flag]
	if !ok {
		return nil
	}

	var in []byte
	if cmd.Payload {
		in, err = readLine(c)
		if errors.Is(err, errPayloadTooLong) {
			c.Reply(ivadmin.ReplyError + err.Error())
			return nil
		}
		if err != nil {
			return err
		}
	}

	err = cmd.Run(c, in)
	if err != nil {
		c.Reply(ivadmin.ReplyError + err.Error())
	}
	return nil
}

func readLine(c Controller) ([]byte, error) {
	var sb strings.Builder
	for {
		b, err := c.ReadByte()
		if err != nil {
			return nil, err
		}

		switch b {
		case '\n':
			return []byte(sb.String()), nil
		case '\r':
			continue
		}

		if sb.Len() >= MaxPayload {
			// drain the rest of the line so the next flag is read cleanly
			for b != '\n' {
				b, err = c.ReadByte()
				if err != nil {
					return nil, err
				}
			}
			return nil, errPayloadTooLong
		}
		sb.WriteByte(b)
	}
}
