package wire

import (
	"errors"
	"fmt"
)

// MsgID identifies a frame's message type.
type MsgID byte

// Message identifiers.
const (
	MsgIDHeartbeat          MsgID = 0
	MsgIDSysStatus          MsgID = 1
	MsgIDSetMode            MsgID = 11
	MsgIDParamRequestRead   MsgID = 20
	MsgIDParamRequestList   MsgID = 21
	MsgIDParamValue         MsgID = 22
	MsgIDParamSet           MsgID = 23
	MsgIDGPSRaw             MsgID = 24
	MsgIDMissionItem        MsgID = 39
	MsgIDMissionRequest     MsgID = 40
	MsgIDMissionSetCurrent  MsgID = 41
	MsgIDMissionCurrent     MsgID = 42
	MsgIDMissionRequestList MsgID = 43
	MsgIDMissionCount       MsgID = 44
	MsgIDMissionClearAll    MsgID = 45
	MsgIDMissionItemReached MsgID = 46
	MsgIDMissionAck         MsgID = 47
	MsgIDManualControl      MsgID = 69
	MsgIDStatusAndErrors    MsgID = 150
	MsgIDStatusText         MsgID = 253
)

// Width of the fixed parameter-name field.
const ParamNameLen = 16

// Width of the fixed status-text field.
const StatusTextLen = 50

// Severity levels for StatusText, highest first.
const (
	SeverityEmergency byte = 0
	SeverityAlert     byte = 1
	SeverityCritical  byte = 2
	SeverityError     byte = 3
	SeverityWarning   byte = 4
	SeverityNotice    byte = 5
	SeverityInfo      byte = 6
)

// Mission acknowledgment results.
const (
	AckAccepted        byte = 0
	AckError           byte = 1
	AckNoSpace         byte = 2
	AckInvalidSequence byte = 3
)

// System states reported in Heartbeat.
const (
	StateBoot        byte = 1
	StateCalibrating byte = 2
	StateStandby     byte = 3
	StateActive      byte = 4
)

// Mode flags reported in Heartbeat.
const (
	ModeFlagArmed      byte = 1 << 0
	ModeFlagManual     byte = 1 << 1
	ModeFlagAutonomous byte = 1 << 2
)

// ErrShortPayload indicates a payload truncated below its fixed layout.
var ErrShortPayload = errors.New("short payload")

// Message is a decoded frame payload.
type Message interface {
	ID() MsgID
	MarshalPayload() []byte
	UnmarshalPayload(p []byte) error
}

// Heartbeat announces liveness, mode and system state at 1Hz.
type Heartbeat struct {
	Mode  byte
	State byte
}

func (m *Heartbeat) ID() MsgID { return MsgIDHeartbeat }

func (m *Heartbeat) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u8(m.Mode)
	w.u8(m.State)
	return w.buf
}

func (m *Heartbeat) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Mode = r.u8()
	m.State = r.u8()
	return r.done()
}

// SysStatus carries electrical and load telemetry at 1Hz.
type SysStatus struct {
	Load      uint16 // mainloop usage, 0.1%
	VoltageMV uint16
	CurrentCA int16 // centiamps
}

func (m *SysStatus) ID() MsgID { return MsgIDSysStatus }

func (m *SysStatus) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Load)
	w.u16(m.VoltageMV)
	w.i16(m.CurrentCA)
	return w.buf
}

func (m *SysStatus) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Load = r.u16()
	m.VoltageMV = r.u16()
	m.CurrentCA = r.i16()
	return r.done()
}

// SetMode switches the vessel between manual and autonomous control.
type SetMode struct {
	Mode byte
}

func (m *SetMode) ID() MsgID { return MsgIDSetMode }

func (m *SetMode) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u8(m.Mode)
	return w.buf
}

func (m *SetMode) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Mode = r.u8()
	return r.done()
}

// ParamRequestRead asks for a single parameter by index.
type ParamRequestRead struct {
	Index int16
}

func (m *ParamRequestRead) ID() MsgID { return MsgIDParamRequestRead }

func (m *ParamRequestRead) MarshalPayload() []byte {
	w := fieldWriter{}
	w.i16(m.Index)
	return w.buf
}

func (m *ParamRequestRead) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Index = r.i16()
	return r.done()
}

// ParamRequestList asks for a stream of all parameters.
type ParamRequestList struct{}

func (m *ParamRequestList) ID() MsgID                     { return MsgIDParamRequestList }
func (m *ParamRequestList) MarshalPayload() []byte        { return nil }
func (m *ParamRequestList) UnmarshalPayload([]byte) error { return nil }

// ParamValue reports one named configuration value.
type ParamValue struct {
	Name  string
	Value float32
	Index uint16
	Count uint16
}

func (m *ParamValue) ID() MsgID { return MsgIDParamValue }

func (m *ParamValue) MarshalPayload() []byte {
	w := fieldWriter{}
	w.text(m.Name, ParamNameLen)
	w.f32(m.Value)
	w.u16(m.Index)
	w.u16(m.Count)
	return w.buf
}

func (m *ParamValue) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Name = r.text(ParamNameLen)
	m.Value = r.f32()
	m.Index = r.u16()
	m.Count = r.u16()
	return r.done()
}

// ParamSet writes one named configuration value.
type ParamSet struct {
	Name  string
	Value float32
}

func (m *ParamSet) ID() MsgID { return MsgIDParamSet }

func (m *ParamSet) MarshalPayload() []byte {
	w := fieldWriter{}
	w.text(m.Name, ParamNameLen)
	w.f32(m.Value)
	return w.buf
}

func (m *ParamSet) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Name = r.text(ParamNameLen)
	m.Value = r.f32()
	return r.done()
}

// GPSRaw carries the raw GPS fix at 1Hz.
type GPSRaw struct {
	Fix        byte
	Lat        int32 // 1e-7 degrees
	Lon        int32 // 1e-7 degrees
	SpeedCms   uint16
	CourseCdeg uint16
	Satellites byte
}

func (m *GPSRaw) ID() MsgID { return MsgIDGPSRaw }

func (m *GPSRaw) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u8(m.Fix)
	w.i32(m.Lat)
	w.i32(m.Lon)
	w.u16(m.SpeedCms)
	w.u16(m.CourseCdeg)
	w.u8(m.Satellites)
	return w.buf
}

func (m *GPSRaw) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Fix = r.u8()
	m.Lat = r.i32()
	m.Lon = r.i32()
	m.SpeedCms = r.u16()
	m.CourseCdeg = r.u16()
	m.Satellites = r.u8()
	return r.done()
}

// MissionItem transfers one waypoint of the mission list.
type MissionItem struct {
	Seq          uint16
	Frame        byte
	Action       uint16
	Current      bool
	Autocontinue bool
	Params       [4]float32
	North        float32
	East         float32
	Down         float32
}

func (m *MissionItem) ID() MsgID { return MsgIDMissionItem }

func (m *MissionItem) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Seq)
	w.u8(m.Frame)
	w.u16(m.Action)
	w.u8(boolByte(m.Current))
	w.u8(boolByte(m.Autocontinue))
	for _, p := range m.Params {
		w.f32(p)
	}
	w.f32(m.North)
	w.f32(m.East)
	w.f32(m.Down)
	return w.buf
}

func (m *MissionItem) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Seq = r.u16()
	m.Frame = r.u8()
	m.Action = r.u16()
	m.Current = r.u8() != 0
	m.Autocontinue = r.u8() != 0
	for i := range m.Params {
		m.Params[i] = r.f32()
	}
	m.North = r.f32()
	m.East = r.f32()
	m.Down = r.f32()
	return r.done()
}

// MissionRequest asks the peer for the item with the given sequence number.
type MissionRequest struct {
	Seq uint16
}

func (m *MissionRequest) ID() MsgID { return MsgIDMissionRequest }

func (m *MissionRequest) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Seq)
	return w.buf
}

func (m *MissionRequest) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Seq = r.u16()
	return r.done()
}

// MissionSetCurrent selects the active mission item.
type MissionSetCurrent struct {
	Seq uint16
}

func (m *MissionSetCurrent) ID() MsgID { return MsgIDMissionSetCurrent }

func (m *MissionSetCurrent) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Seq)
	return w.buf
}

func (m *MissionSetCurrent) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Seq = r.u16()
	return r.done()
}

// MissionCurrent announces the active mission item.
type MissionCurrent struct {
	Seq uint16
}

func (m *MissionCurrent) ID() MsgID { return MsgIDMissionCurrent }

func (m *MissionCurrent) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Seq)
	return w.buf
}

func (m *MissionCurrent) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Seq = r.u16()
	return r.done()
}

// MissionRequestList starts a download of the onboard mission list.
type MissionRequestList struct{}

func (m *MissionRequestList) ID() MsgID                     { return MsgIDMissionRequestList }
func (m *MissionRequestList) MarshalPayload() []byte        { return nil }
func (m *MissionRequestList) UnmarshalPayload([]byte) error { return nil }

// MissionCount announces how many items a list transfer will carry.
type MissionCount struct {
	Count uint16
}

func (m *MissionCount) ID() MsgID { return MsgIDMissionCount }

func (m *MissionCount) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Count)
	return w.buf
}

func (m *MissionCount) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Count = r.u16()
	return r.done()
}

// MissionClearAll erases the onboard mission list.
type MissionClearAll struct{}

func (m *MissionClearAll) ID() MsgID                     { return MsgIDMissionClearAll }
func (m *MissionClearAll) MarshalPayload() []byte        { return nil }
func (m *MissionClearAll) UnmarshalPayload([]byte) error { return nil }

// MissionItemReached announces arrival at a waypoint.
type MissionItemReached struct {
	Seq uint16
}

func (m *MissionItemReached) ID() MsgID { return MsgIDMissionItemReached }

func (m *MissionItemReached) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Seq)
	return w.buf
}

func (m *MissionItemReached) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Seq = r.u16()
	return r.done()
}

// MissionAck terminates a list transfer with a result code.
type MissionAck struct {
	Result byte
}

func (m *MissionAck) ID() MsgID { return MsgIDMissionAck }

func (m *MissionAck) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u8(m.Result)
	return w.buf
}

func (m *MissionAck) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Result = r.u8()
	return r.done()
}

// ManualControl carries operator rudder/throttle input.
type ManualControl struct {
	Rudder   int16 // -1000..1000
	Throttle int16 // -1000..1000
}

func (m *ManualControl) ID() MsgID { return MsgIDManualControl }

func (m *ManualControl) MarshalPayload() []byte {
	w := fieldWriter{}
	w.i16(m.Rudder)
	w.i16(m.Throttle)
	return w.buf
}

func (m *ManualControl) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Rudder = r.i16()
	m.Throttle = r.i16()
	return r.done()
}

// StatusAndErrors reports the node status flags and sticky error bitmask.
type StatusAndErrors struct {
	Status uint16
	Errors uint16
}

func (m *StatusAndErrors) ID() MsgID { return MsgIDStatusAndErrors }

func (m *StatusAndErrors) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u16(m.Status)
	w.u16(m.Errors)
	return w.buf
}

func (m *StatusAndErrors) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Status = r.u16()
	m.Errors = r.u16()
	return r.done()
}

// StatusText carries a fixed-width operator notification.
type StatusText struct {
	Severity byte
	Text     string
}

func (m *StatusText) ID() MsgID { return MsgIDStatusText }

func (m *StatusText) MarshalPayload() []byte {
	w := fieldWriter{}
	w.u8(m.Severity)
	w.text(m.Text, StatusTextLen)
	return w.buf
}

func (m *StatusText) UnmarshalPayload(p []byte) error {
	r := fieldReader{buf: p}
	m.Severity = r.u8()
	m.Text = r.text(StatusTextLen)
	return r.done()
}

func (r *fieldReader) done() error {
	if r.short {
		return ErrShortPayload
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Decode materializes a Message from a completed frame.
func Decode(f *Frame) (Message, error) {
	var msg Message
	switch f.ID {
	case MsgIDHeartbeat:
		msg = &Heartbeat{}
	case MsgIDSysStatus:
		msg = &SysStatus{}
	case MsgIDSetMode:
		msg = &SetMode{}
	case MsgIDParamRequestRead:
		msg = &ParamRequestRead{}
	case MsgIDParamRequestList:
		msg = &ParamRequestList{}
	case MsgIDParamValue:
		msg = &ParamValue{}
	case MsgIDParamSet:
		msg = &ParamSet{}
	case MsgIDGPSRaw:
		msg = &GPSRaw{}
	case MsgIDMissionItem:
		msg = &MissionItem{}
	case MsgIDMissionRequest:
		msg = &MissionRequest{}
	case MsgIDMissionSetCurrent:
		msg = &MissionSetCurrent{}
	case MsgIDMissionCurrent:
		msg = &MissionCurrent{}
	case MsgIDMissionRequestList:
		msg = &MissionRequestList{}
	case MsgIDMissionCount:
		msg = &MissionCount{}
	case MsgIDMissionClearAll:
		msg = &MissionClearAll{}
	case MsgIDMissionItemReached:
		msg = &MissionItemReached{}
	case MsgIDMissionAck:
		msg = &MissionAck{}
	case MsgIDManualControl:
		msg = &ManualControl{}
	case MsgIDStatusAndErrors:
		msg = &StatusAndErrors{}
	case MsgIDStatusText:
		msg = &StatusText{}
	default:
		return nil, fmt.Errorf("unknown message id %d", f.ID)
	}
	if err := msg.UnmarshalPayload(f.Payload); err != nil {
		return nil, err
	}
	return msg, nil
}
