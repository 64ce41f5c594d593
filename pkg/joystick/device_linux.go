//go:build linux
// +build linux

package joystick

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// joydev ioctls and event type bits, from linux/joystick.h.
const (
	iocAxisCount   uint = 0x80016a11
	iocButtonCount uint = 0x80016a12
	iocName        uint = 0x80ff6a13

	evInit uint8 = 0x80
	evAxis uint8 = 0x02
)

type device struct {
	file  *os.File
	index int
	name  string
}

// axisEvent is one decoded joydev event. init events replay the
// resting state on open and are mapped like live movement.
type axisEvent struct {
	axis   bool
	number uint8
	value  int16
}

func openDevice(index int) (*device, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/input/js%d", index), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &device{file: f, index: index}
	var buf [256]byte
	if errno := d.ioctl(iocName, unsafe.Pointer(&buf)); errno != 0 {
		f.Close()
		return nil, errno
	}
	if pos := bytes.IndexByte(buf[:], 0); pos >= 0 {
		d.name = string(buf[:pos])
	} else {
		d.name = string(buf[:])
	}
	return d, nil
}

// detectDevice scans for the first joystick present on the system.
func detectDevice() (*device, error) {
	for index := 0; index < 256; index++ {
		d, err := openDevice(index)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		return d, nil
	}
	return nil, nil
}

func (d *device) close() error { return d.file.Close() }

// readEvent blocks for one 8-byte joydev event.
func (d *device) readEvent() (axisEvent, error) {
	var buf [8]byte
	if _, err := d.file.Read(buf[:]); err != nil {
		return axisEvent{}, err
	}
	kind := buf[6]
	return axisEvent{
		axis:   kind&^evInit == evAxis,
		number: buf[7],
		value:  int16(binary.LittleEndian.Uint16(buf[4:6])),
	}, nil
}

func (d *device) ioctl(req uint, ptr unsafe.Pointer) syscall.Errno {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(d.file.Fd()), uintptr(req), uintptr(ptr))
	return errno
}
