// Package gcs ties the ground-station link together: it routes decoded
// inbound messages to the protocol state machines and drives the
// rate-scheduled outbound transmission through the transport.
package gcs

import (
	"github.com/golang/glog"

	"github.com/seaslug/helm.go/pkg/gcs/mission"
	"github.com/seaslug/helm.go/pkg/gcs/param"
	"github.com/seaslug/helm.go/pkg/gcs/sched"
	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/transport"
)

// Telemetry supplies the periodic outbound messages, sampled at the
// moment of transmission.
type Telemetry interface {
	Heartbeat() *wire.Heartbeat
	SysStatus() *wire.SysStatus
	GPSRaw() *wire.GPSRaw
	StatusAndErrors() *wire.StatusAndErrors
}

// Stream periods in control ticks.
const (
	PeriodHeartbeat       = 100
	PeriodSysStatus       = 100
	PeriodGPSRaw          = 100
	PeriodStatusAndErrors = 50
)

// usageWindow is the rolling window, in ticks, over which channel usage
// is reported.
const usageWindow = 100

// Link is the ground-station endpoint of the node. All methods run on
// the control loop; Tick transmits whatever the scheduler releases and
// Pump drains the inbound byte queue. Link implements
// mission.Responder for the mission protocol's replies.
type Link struct {
	// SetMode is invoked for an inbound mode-switch command.
	SetMode func(autonomous bool)
	// Manual is invoked with raw operator stick input.
	Manual func(rudder, throttle int16)

	transport transport.Transport
	telemetry Telemetry
	params    *param.Protocol
	missions  *mission.Protocol

	sched   *sched.Scheduler
	dec     wire.Decoder
	seq     byte
	pending map[wire.MsgID][]wire.Message

	now       uint32
	lastHeard uint32
}

// New assembles a link over t. The parameter registry and mission store
// stay owned by the caller; autonomous gates mission uploads.
func New(t transport.Transport, tel Telemetry, registry param.Registry, store mission.Store, autonomous func() bool) *Link {
	l := &Link{
		transport: t,
		telemetry: tel,
		sched:     sched.New(),
		pending:   map[wire.MsgID][]wire.Message{},
	}
	l.params = param.New(registry, func() { l.sched.Transient(wire.MsgIDParamValue) })
	l.missions = mission.New(store, l, autonomous)

	l.sched.Register(wire.MsgIDHeartbeat, PeriodHeartbeat)
	l.sched.Register(wire.MsgIDSysStatus, PeriodSysStatus)
	l.sched.Register(wire.MsgIDGPSRaw, PeriodGPSRaw)
	l.sched.Register(wire.MsgIDStatusAndErrors, PeriodStatusAndErrors)

	l.sched.SetSize(wire.MsgIDHeartbeat, wire.EncodedLen(&wire.Heartbeat{}))
	l.sched.SetSize(wire.MsgIDSysStatus, wire.EncodedLen(&wire.SysStatus{}))
	l.sched.SetSize(wire.MsgIDGPSRaw, wire.EncodedLen(&wire.GPSRaw{}))
	l.sched.SetSize(wire.MsgIDStatusAndErrors, wire.EncodedLen(&wire.StatusAndErrors{}))
	l.sched.SetSize(wire.MsgIDParamValue, wire.EncodedLen(&wire.ParamValue{}))
	l.sched.SetSize(wire.MsgIDMissionCount, wire.EncodedLen(&wire.MissionCount{}))
	l.sched.SetSize(wire.MsgIDMissionItem, wire.EncodedLen(&wire.MissionItem{}))
	return l
}

// Params exposes the parameter protocol for mode-change hooks.
func (l *Link) Params() *param.Protocol { return l.params }

// Missions exposes the mission protocol.
func (l *Link) Missions() *mission.Protocol { return l.missions }

// LastContact returns the tick a valid ground-station frame last
// arrived.
func (l *Link) LastContact() uint32 { return l.lastHeard }

// Usage reports channel usage over the rolling window as a percentage
// of the byte budget.
func (l *Link) Usage() int { return l.sched.Usage(usageWindow) }

// SetBudget overrides the per-tick outbound byte budget.
func (l *Link) SetBudget(n int) { l.sched.Budget = n }

// Pump drains pending inbound bytes through the frame decoder and
// dispatches complete frames. Malformed bytes are dropped silently by
// the decoder's resync. now stamps the contact tracking.
func (l *Link) Pump(now uint32) {
	l.now = now
	for {
		b, ok := l.transport.ReadByte()
		if !ok {
			return
		}
		f := l.dec.Feed(b)
		if f == nil {
			continue
		}
		msg, err := wire.Decode(f)
		if err != nil {
			glog.V(2).Infof("dropping frame id %d: %v", f.ID, err)
			continue
		}
		l.dispatch(msg)
	}
}

// Tick runs one transmit pass for control tick now: protocol counters
// first, then every message the scheduler releases under the byte
// budget.
func (l *Link) Tick(now uint32) {
	l.now = now
	l.params.Advance()
	l.missions.Advance()

	for _, id := range l.sched.Tick() {
		msg := l.outbound(id)
		if msg == nil {
			continue
		}
		f := wire.Encode(l.seq, msg)
		l.seq++
		if !l.transport.Enqueue(f) {
			glog.Warningf("outbound queue full, dropping message id %d", id)
		}
		l.sched.Record(len(f))
		l.sent(id)
	}
}

// Notify schedules an operator status text, implementing the fault
// package's notifier.
func (l *Link) Notify(severity byte, text string) {
	l.transient(&wire.StatusText{Severity: severity, Text: text})
}

// NotifyReached announces arrival at waypoint seq.
func (l *Link) NotifyReached(seq uint16) {
	l.transient(&wire.MissionItemReached{Seq: seq})
}

// AnnounceMode schedules an immediate heartbeat so a mode change
// reaches the ground station without waiting out the period.
func (l *Link) AnnounceMode() {
	l.sched.Transient(wire.MsgIDHeartbeat)
}

// mission.Responder implementation.

// ScheduleCount queues the mission count reply.
func (l *Link) ScheduleCount() { l.sched.Transient(wire.MsgIDMissionCount) }

// ScheduleItem queues the currently served mission item.
func (l *Link) ScheduleItem() { l.sched.Transient(wire.MsgIDMissionItem) }

// Ack queues a mission transfer acknowledgment.
func (l *Link) Ack(result byte) { l.transient(&wire.MissionAck{Result: result}) }

// RequestNext asks the peer for upload item seq.
func (l *Link) RequestNext(seq uint16) { l.transient(&wire.MissionRequest{Seq: seq}) }

// AnnounceCurrent reports the active mission item.
func (l *Link) AnnounceCurrent(seq uint16) { l.transient(&wire.MissionCurrent{Seq: seq}) }

// transient queues a message that carries its payload with it, as
// opposed to the FSM-backed ids whose payload is produced at transmit
// time.
func (l *Link) transient(msg wire.Message) {
	id := msg.ID()
	l.pending[id] = append(l.pending[id], msg)
	l.sched.SetSize(id, wire.EncodedLen(msg))
	l.sched.Transient(id)
}

func (l *Link) dispatch(msg wire.Message) {
	l.lastHeard = l.now
	switch m := msg.(type) {
	case *wire.Heartbeat:
		// Liveness only.
	case *wire.SetMode:
		if l.SetMode != nil {
			l.SetMode(m.Mode&wire.ModeFlagAutonomous != 0)
		}
	case *wire.ManualControl:
		if l.Manual != nil {
			l.Manual(m.Rudder, m.Throttle)
		}
	case *wire.ParamRequestRead:
		l.params.RequestSingle(int(m.Index))
	case *wire.ParamRequestList:
		l.params.RequestStream()
	case *wire.ParamSet:
		l.params.Set(m.Name, m.Value)
	case *wire.MissionRequestList:
		l.missions.OnRequestList()
	case *wire.MissionRequest:
		l.missions.OnItemRequest(m.Seq)
	case *wire.MissionCount:
		l.missions.OnCount(int(m.Count))
	case *wire.MissionItem:
		l.missions.OnItem(m)
	case *wire.MissionClearAll:
		l.missions.OnClearAll()
	case *wire.MissionSetCurrent:
		l.missions.OnSetCurrent(m.Seq)
	default:
		glog.V(2).Infof("ignoring inbound message id %d", msg.ID())
	}
}

// outbound produces the message for a scheduler-released id, or nil
// when there is nothing to send for it.
func (l *Link) outbound(id wire.MsgID) wire.Message {
	switch id {
	case wire.MsgIDHeartbeat:
		return l.telemetry.Heartbeat()
	case wire.MsgIDSysStatus:
		return l.telemetry.SysStatus()
	case wire.MsgIDGPSRaw:
		return l.telemetry.GPSRaw()
	case wire.MsgIDStatusAndErrors:
		return l.telemetry.StatusAndErrors()
	case wire.MsgIDParamValue:
		v, ok := l.params.Value()
		if !ok {
			return nil
		}
		return &v
	case wire.MsgIDMissionCount:
		c := l.missions.CountValue()
		return &c
	case wire.MsgIDMissionItem:
		item, ok := l.missions.ItemValue()
		if !ok {
			return nil
		}
		return &item
	}
	q := l.pending[id]
	if len(q) == 0 {
		return nil
	}
	l.pending[id] = q[1:]
	return q[0]
}

// sent runs the post-transmission hook for FSM-backed ids.
func (l *Link) sent(id wire.MsgID) {
	switch id {
	case wire.MsgIDParamValue:
		l.params.Sent()
	case wire.MsgIDMissionCount:
		l.missions.CountSent()
	case wire.MsgIDMissionItem:
		l.missions.ItemSent()
	}
}
