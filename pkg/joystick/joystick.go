// Package joystick reads a joystick and turns stick deflection into
// manual rudder/throttle input for the vessel link.
package joystick

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Sample is one conditioned stick reading in wire units.
type Sample struct {
	Rudder   int16 // -1000..1000, positive starboard
	Throttle int16 // -1000..1000, positive ahead
}

// wire unit full scale over the raw axis full scale
const sampleScale = 1000.0 / 32767.0

// Send cadence while the operator holds the stick.
const sendInterval = 50 * time.Millisecond

// Pilot polls a joystick device and hands conditioned samples to Send.
// A missing device is retried every second, the way a dangling operator
// console should behave.
type Pilot struct {
	// DeviceIndex selects /dev/input/js<n>; negative detects the
	// first available device.
	DeviceIndex int
	// Axis assignment; the common mode-2 layout by default.
	RudderAxis   int
	ThrottleAxis int

	Send func(Sample)

	current Sample
	changed bool
}

// NewPilot creates a Pilot with device auto-detection and the default
// axis layout (rudder on axis 0, throttle on axis 1).
func NewPilot(send func(Sample)) *Pilot {
	return &Pilot{DeviceIndex: -1, ThrottleAxis: 1, Send: send}
}

// Run opens the device and streams samples until the context is
// canceled. Device loss returns to the detection loop.
func (p *Pilot) Run(ctx context.Context) error {
	for {
		d, err := p.open()
		if err != nil {
			glog.Warningf("joystick: %v", err)
		}
		if d == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
				continue
			}
		}
		glog.Infof("joystick %d %q opened", d.index, d.name)
		p.pump(ctx, d)
		d.close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (p *Pilot) open() (*device, error) {
	if p.DeviceIndex >= 0 {
		return openDevice(p.DeviceIndex)
	}
	return detectDevice()
}

// pump forwards the latest stick position at a fixed cadence while it
// keeps changing. Events arrive on a reader goroutine so cancellation
// does not wait on a hanging read.
func (p *Pilot) pump(ctx context.Context, d *device) {
	events := make(chan axisEvent, 8)
	go func() {
		defer close(events)
		for {
			ev, err := d.readEvent()
			if err != nil {
				return
			}
			if ev.axis {
				events <- ev
			}
		}
	}()

	t := time.NewTicker(sendInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				glog.Warning("joystick lost")
				return
			}
			p.apply(ev)
		case <-t.C:
			if p.changed {
				p.changed = false
				p.Send(p.current)
			}
		}
	}
}

func (p *Pilot) apply(ev axisEvent) {
	v := int16(float64(ev.value) * sampleScale)
	switch int(ev.number) {
	case p.RudderAxis:
		p.current.Rudder = v
	case p.ThrottleAxis:
		// pushing the stick forward reads negative
		p.current.Throttle = -v
	default:
		return
	}
	p.changed = true
}
