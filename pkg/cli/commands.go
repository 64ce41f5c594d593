package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/seaslug/helm.go/pkg/fault"
	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/joystick"
)

var (
	// ModeCmd switches between manual and autonomous control.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "auto|manual",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			if len(ctx.Args) != 1 {
				ctx.Err(fmt.Errorf("mode auto|manual"))
				return
			}
			var mode byte
			switch ctx.Args[0] {
			case "auto":
				mode = wire.ModeFlagAutonomous
			case "manual":
				mode = wire.ModeFlagManual
			default:
				ctx.Err(fmt.Errorf("unknown mode %q", ctx.Args[0]))
				return
			}
			c.send(&wire.SetMode{Mode: mode})
		},
	}

	// ParamCmd reads and writes vessel parameters.
	ParamCmd = ishell.Cmd{
		Name: "param",
		Help: "list | get INDEX | set NAME VALUE",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			switch {
			case len(ctx.Args) == 1 && ctx.Args[0] == "list":
				c.send(&wire.ParamRequestList{})
			case len(ctx.Args) == 2 && ctx.Args[0] == "get":
				index, err := strconv.Atoi(ctx.Args[1])
				if err != nil {
					ctx.Err(err)
					return
				}
				c.send(&wire.ParamRequestRead{Index: int16(index)})
			case len(ctx.Args) == 3 && ctx.Args[0] == "set":
				value, err := strconv.ParseFloat(ctx.Args[2], 32)
				if err != nil {
					ctx.Err(err)
					return
				}
				c.send(&wire.ParamSet{Name: ctx.Args[1], Value: float32(value)})
			default:
				ctx.Err(fmt.Errorf("param list | get INDEX | set NAME VALUE"))
			}
		},
	}

	// MissionCmd manages the onboard mission list.
	MissionCmd = ishell.Cmd{
		Name: "mission",
		Help: "show | upload N,E[,D] ... | current SEQ | clear",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			if len(ctx.Args) == 0 {
				ctx.Err(fmt.Errorf("mission show | upload N,E[,D] ... | current SEQ | clear"))
				return
			}
			switch ctx.Args[0] {
			case "show":
				c.send(&wire.MissionRequestList{})
			case "clear":
				c.send(&wire.MissionClearAll{})
			case "current":
				if len(ctx.Args) != 2 {
					ctx.Err(fmt.Errorf("mission current SEQ"))
					return
				}
				seq, err := strconv.Atoi(ctx.Args[1])
				if err != nil {
					ctx.Err(err)
					return
				}
				c.send(&wire.MissionSetCurrent{Seq: uint16(seq)})
			case "upload":
				items, err := parseWaypoints(ctx.Args[1:])
				if err != nil {
					ctx.Err(err)
					return
				}
				c.mu.Lock()
				c.upload = items
				c.mu.Unlock()
				c.send(&wire.MissionCount{Count: uint16(len(items))})
			default:
				ctx.Err(fmt.Errorf("unknown mission action %q", ctx.Args[0]))
			}
		},
	}

	// ManualCmd injects one manual control command.
	ManualCmd = ishell.Cmd{
		Name: "manual",
		Help: "RUDDER THROTTLE (-1000..1000)",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			if len(ctx.Args) != 2 {
				ctx.Err(fmt.Errorf("manual RUDDER THROTTLE"))
				return
			}
			rudder, err1 := strconv.Atoi(ctx.Args[0])
			throttle, err2 := strconv.Atoi(ctx.Args[1])
			if err1 != nil || err2 != nil {
				ctx.Err(fmt.Errorf("numeric rudder and throttle expected"))
				return
			}
			c.send(&wire.ManualControl{Rudder: int16(rudder), Throttle: int16(throttle)})
		},
	}

	// SteerCmd streams manual control from an attached joystick until
	// interrupted.
	SteerCmd = ishell.Cmd{
		Name: "steer",
		Help: "[DEVICE_INDEX] stream joystick input, enter stops",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			pilot := joystick.NewPilot(func(s joystick.Sample) {
				c.send(&wire.ManualControl{Rudder: s.Rudder, Throttle: s.Throttle})
			})
			if len(ctx.Args) == 1 {
				index, err := strconv.Atoi(ctx.Args[0])
				if err != nil {
					ctx.Err(err)
					return
				}
				pilot.DeviceIndex = index
			}
			runCtx, cancel := context.WithCancel(context.Background())
			ctx.ProgressBar().Indeterminate(true)
			ctx.ProgressBar().Start()
			go func() {
				c.Shell.ReadLine()
				cancel()
			}()
			pilot.Run(runCtx)
			ctx.ProgressBar().Stop()
		},
	}

	// StatusCmd prints the last received node state.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.heartbeat == nil {
				ctx.Println("no heartbeat received yet")
				return
			}
			ctx.Printf("mode: %s, state: %s\n", modeName(c.heartbeat.Mode), stateName(c.heartbeat.State))
			if c.nodeStatus != nil {
				ctx.Printf("status: %04X, errors: %s\n",
					c.nodeStatus.Status, fault.Bitmask(c.nodeStatus.Errors))
			}
		},
	}

	// WatchCmd toggles printing of periodic telemetry.
	WatchCmd = ishell.Cmd{
		Name: "watch",
		Help: "toggle telemetry printing",
		Func: func(ctx *ishell.Context) {
			c := ConsoleFrom(ctx)
			c.mu.Lock()
			c.watch = !c.watch
			on := c.watch
			c.mu.Unlock()
			if on {
				ctx.Println("telemetry on")
			} else {
				ctx.Println("telemetry off")
			}
		},
	}
)

// parseWaypoints turns "N,E" or "N,E,D" args into sequenced items. All
// uploaded items autocontinue; the first is marked current.
func parseWaypoints(args []string) ([]wire.MissionItem, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one waypoint expected")
	}
	items := make([]wire.MissionItem, len(args))
	for i, arg := range args {
		var north, east, down float64
		var err error
		switch parts := strings.Split(arg, ","); len(parts) {
		case 2:
			north, east, err = parsePair(parts)
		case 3:
			if north, east, err = parsePair(parts[:2]); err == nil {
				down, err = strconv.ParseFloat(parts[2], 32)
			}
		default:
			err = fmt.Errorf("waypoint %q: N,E or N,E,D expected", arg)
		}
		if err != nil {
			return nil, err
		}
		items[i] = wire.MissionItem{
			Seq:          uint16(i),
			Current:      i == 0,
			Autocontinue: true,
			North:        float32(north),
			East:         float32(east),
			Down:         float32(down),
		}
	}
	return items, nil
}

func parsePair(parts []string) (north, east float64, err error) {
	if north, err = strconv.ParseFloat(parts[0], 32); err != nil {
		return
	}
	east, err = strconv.ParseFloat(parts[1], 32)
	return
}
