// Package node drives the vessel controller: it owns the fixed control
// tick, wires the ground-station link, the fault aggregator and the
// actuator mux together, and runs the cooperative single-threaded loop.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/seaslug/helm.go/pkg/fault"
	"github.com/seaslug/helm.go/pkg/gcs"
	"github.com/seaslug/helm.go/pkg/gcs/param"
	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/transport"
	"github.com/seaslug/helm.go/pkg/vessel"
)

// TickInterval is the fixed control period.
const TickInterval = 10 * time.Millisecond

// sayStatusInterval is the number of ticks between spoken status
// updates while autonomous and healthy: 30 seconds.
const sayStatusInterval = 3000

// Controller computes one autonomous guidance step. reset holds the
// controller in its initial state while any error bit is set. reached
// and current report waypoint transitions for this step, -1 for none.
type Controller interface {
	Step(reset bool) (rudder float32, throttle int16, reached, current int)
}

// Navigation exposes the guidance solution's tracking state.
type Navigation interface {
	CrossTrack() float64
	WaypointDistance() float64
	// Reset drops tracking state when the vessel enters an error state,
	// so a later recovery starts from a clean solution.
	Reset()
}

// ParamStorage persists the parameter registry across boots. An Init
// failure is fatal to startup: the node must not run without its
// configuration.
type ParamStorage interface {
	Init() error
}

// Config assembles a Node's collaborators. Transport, Sensors and
// Actuators are required; the rest degrade to no-ops when nil.
type Config struct {
	Transport  transport.Transport
	Sensors    fault.Sensors
	Actuators  vessel.Actuators
	Controller Controller
	Navigation Navigation
	Registry   param.Registry
	Storage    ParamStorage

	// Power samples the electrical telemetry for SysStatus; the link
	// load field is filled in by the node.
	Power func() wire.SysStatus
	// Fix samples the raw GPS solution.
	Fix func() wire.GPSRaw

	MissionCapacity int

	// LinkBudget overrides the per-tick outbound byte budget; zero
	// keeps the link default.
	LinkBudget int

	// Watchdog overrides in ticks; zero keeps the fault defaults.
	GPSTimeout  uint32
	GCSTimeout  uint32
	StartupHold uint32
}

// Node is the controller's single execution context. All state below is
// touched only from Run's goroutine.
type Node struct {
	cfg Config

	link    *gcs.Link
	agg     *fault.Aggregator
	mux     *vessel.CommandMux
	mission *vessel.MissionList

	tick uint32
	say  uint32
}

// New wires a node together. Parameter storage is initialized here;
// a failure aborts startup before the loop ever runs.
func New(cfg Config) (*Node, error) {
	if cfg.Storage != nil {
		if err := cfg.Storage.Init(); err != nil {
			return nil, fmt.Errorf("parameter storage init: %v", err)
		}
	}
	n := &Node{cfg: cfg}
	n.mission = vessel.NewMissionList(cfg.MissionCapacity)
	n.mux = &vessel.CommandMux{Actuators: cfg.Actuators}
	n.link = gcs.New(cfg.Transport, n, cfg.Registry, n.mission, func() bool {
		return n.agg.Autonomous()
	})
	if cfg.LinkBudget > 0 {
		n.link.SetBudget(cfg.LinkBudget)
	}
	n.agg = &fault.Aggregator{
		Sensors:        cfg.Sensors,
		Commands:       n.mux,
		Notifier:       n.link,
		LastGCSContact: n.link.LastContact,
		LinkStatus:     cfg.Transport.Status,
		GPSTimeout:     cfg.GPSTimeout,
		GCSTimeout:     cfg.GCSTimeout,
		StartupHold:    cfg.StartupHold,
	}
	if cfg.Navigation != nil {
		n.agg.ClearNavState = cfg.Navigation.Reset
	}
	n.agg.OnEnterAutonomous = n.onEnterAutonomous
	n.agg.OnLeaveAutonomous = n.link.AnnounceMode
	n.link.SetMode = func(on bool) { n.agg.SetAutonomous(on) }
	n.link.Manual = n.mux.SetManual
	return n, nil
}

// Link exposes the ground-station link.
func (n *Node) Link() *gcs.Link { return n.link }

// Faults exposes the fault aggregator.
func (n *Node) Faults() *fault.Aggregator { return n.agg }

// Mission exposes the onboard mission list.
func (n *Node) Mission() *vessel.MissionList { return n.mission }

// Run announces boot and drives the control loop at the fixed tick rate
// until the context is canceled.
func (n *Node) Run(ctx context.Context) error {
	n.announceBoot()

	// Inbound bytes accumulate in the transport ring between ticks.
	// At 115200 baud a full tick holds ~115 bytes, well under the
	// ring depth, so decode runs at the tick rate rather than on a
	// separate reader.
	t := time.NewTicker(TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n.Step()
		}
	}
}

// Step runs one control tick: drain inbound frames, aggregate faults,
// run the controller, mux the actuator output exactly once, announce
// waypoint transitions and transmit whatever is due.
func (n *Node) Step() {
	n.link.Pump(n.tick)
	n.agg.Update(n.tick)

	reset := n.agg.Errors().Any()
	var rudder float32
	var throttle int16
	reached, current := -1, -1
	if n.cfg.Controller != nil {
		rudder, throttle, reached, current = n.cfg.Controller.Step(reset)
	}
	override := n.agg.Errors().Has(fault.BitManualOverride)
	n.mux.Output(rudder, throttle, n.agg.Autonomous(), reset, override, false)

	if reached >= 0 {
		n.link.NotifyReached(uint16(reached))
	}
	if current >= 0 {
		n.link.AnnounceCurrent(uint16(current))
	}

	// Spoken status while autonomous and healthy; reaching a waypoint
	// restarts the interval.
	if n.agg.Autonomous() && !reset {
		switch {
		case reached >= 0:
			n.say = 0
		case n.say >= sayStatusInterval:
			n.sayStatus()
			n.say = 0
		default:
			n.say++
		}
	}

	n.link.Tick(n.tick)
	n.tick++
}

func (n *Node) announceBoot() {
	n.link.Notify(wire.SeverityInfo, "Finished initialization.")
	n.link.Notify(wire.SeverityInfo, channelUsageStatus(n.link.Usage()))
}

// onEnterAutonomous re-announces mode and configuration so the ground
// station can verify the vessel's state after the switch.
func (n *Node) onEnterAutonomous() {
	n.link.AnnounceMode()
	n.sayStatus()
	n.say = 0
	n.link.Params().RequestStream()
}

func (n *Node) sayStatus() {
	if n.cfg.Navigation == nil {
		return
	}
	n.link.Notify(wire.SeverityInfo,
		audioStatus(n.cfg.Navigation.CrossTrack(), n.cfg.Navigation.WaypointDistance()))
}

// gcs.Telemetry implementation.

// Heartbeat reports the drive mode and derived system state.
func (n *Node) Heartbeat() *wire.Heartbeat {
	mode := byte(wire.ModeFlagManual)
	if n.agg.Autonomous() {
		mode = wire.ModeFlagAutonomous
	}
	if !n.agg.Errors().Any() {
		mode |= wire.ModeFlagArmed
	}
	return &wire.Heartbeat{Mode: mode, State: n.agg.SystemState()}
}

// SysStatus reports electrical telemetry plus the link load.
func (n *Node) SysStatus() *wire.SysStatus {
	var s wire.SysStatus
	if n.cfg.Power != nil {
		s = n.cfg.Power()
	}
	s.Load = uint16(n.link.Usage() * 10)
	return &s
}

// GPSRaw reports the current fix.
func (n *Node) GPSRaw() *wire.GPSRaw {
	var g wire.GPSRaw
	if n.cfg.Fix != nil {
		g = n.cfg.Fix()
	}
	return &g
}

// StatusAndErrors reports the status flags and sticky error bitmask.
func (n *Node) StatusAndErrors() *wire.StatusAndErrors {
	return &wire.StatusAndErrors{
		Status: uint16(n.agg.Status()),
		Errors: uint16(n.agg.Errors()),
	}
}
