//go:build !linux
// +build !linux

package joystick

import "errors"

var errUnsupported = errors.New("joystick input is only supported on linux")

type device struct {
	index int
	name  string
}

type axisEvent struct {
	axis   bool
	number uint8
	value  int16
}

func openDevice(int) (*device, error)           { return nil, errUnsupported }
func detectDevice() (*device, error)            { return nil, errUnsupported }
func (d *device) close() error                  { return nil }
func (d *device) readEvent() (axisEvent, error) { return axisEvent{}, errUnsupported }
