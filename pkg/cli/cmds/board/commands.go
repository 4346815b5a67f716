// Package board adds shell commands driving a board proxy.
package board

import (
	"fmt"
	"math"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/boardlink/pkg/cli/sh"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
)

var (
	// DriveCmd sends a ControlCommand.
	DriveCmd = ishell.Cmd{
		Name:    "drive",
		Aliases: []string{"dr"},
		Help:    "SPEED [STEERING(degrees, left positive)]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := ParseDrive(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}

	// StopCmd sends a neutral ControlCommand.
	StopCmd = ishell.Cmd{
		Name:    "stop",
		Aliases: []string{"s"},
		Help:    "stop with wheels straight",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.ControlCommand{})
		}),
	}

	// StatusCmd queries LinkStatus.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "show link status",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.LinkStatusQuery{})
		}),
	}
)

// ParseDrive parses drive command arguments.
func ParseDrive(args []string) (*msgs.ControlCommand, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("SPEED required")
	}
	speed, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SPEED: %v", err)
	}
	msg := &msgs.ControlCommand{Speed: speed}
	if len(args) > 1 {
		deg, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid STEERING: %v", err)
		}
		msg.SteeringAngle = deg * math.Pi / 180
	}
	return msg, nil
}

func init() {
	sh.AddCmds(&DriveCmd, &StopCmd, &StatusCmd)
}
