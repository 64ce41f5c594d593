// Package cli implements the operator console: the ground-station side
// of the vessel link, spoken over the MQTT transport.
package cli

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/seaslug/helm.go/pkg/fault"
	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/transport/mqtt"
)

const consoleKey = "$console"

// Console talks the vessel wire protocol from the ground-station side.
// Inbound frames arrive on the broker callback goroutine; all mutable
// state is behind mu.
type Console struct {
	Shell       *ishell.Shell
	Interactive bool

	client paho.Client
	prefix string

	mu    sync.Mutex
	dec   wire.Decoder
	watch bool

	seqMu sync.Mutex
	seq   byte

	heartbeat  *wire.Heartbeat
	nodeStatus *wire.StatusAndErrors

	params     map[uint16]*wire.ParamValue
	paramCount uint16

	// download collector; active while expecting < total
	items []wire.MissionItem
	total int

	// upload staging, keyed by the sequence the node asks for
	upload []wire.MissionItem
}

var (
	evalOnly bool
	commands = []*ishell.Cmd{
		&ModeCmd,
		&ParamCmd,
		&MissionCmd,
		&ManualCmd,
		&SteerCmd,
		&StatusCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// New creates a console connected to the vessel through brokerURL.
// The vessel's topic prefix comes from the URL path.
func New(brokerURL string) (*Console, error) {
	opts, prefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	// the node on the same machine would claim the machine-id client id
	if !strings.Contains(brokerURL, "client-id=") {
		opts.SetClientID(fmt.Sprintf("helmcli-%d", os.Getpid()))
	}
	c := &Console{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		prefix:      prefix,
		params:      make(map[uint16]*wire.ParamValue),
		total:       -1,
	}
	opts.SetOnConnectHandler(func(client paho.Client) {
		client.Subscribe(c.prefix+"tx", 0, c.dispatch)
	})
	c.client = paho.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	c.Shell.Set(consoleKey, c)
	c.Shell.SetPrompt(fmt.Sprintf("[%stx] > ", c.prefix))
	for _, cmd := range commands {
		c.Shell.AddCmd(cmd)
	}
	return c, nil
}

// ConsoleFrom gets the Console from an ishell context.
func ConsoleFrom(ctx *ishell.Context) *Console {
	return ctx.Get(consoleKey).(*Console)
}

// Run processes args as a one-shot command line, or drops into the
// interactive shell when there are none.
func (c *Console) Run(args ...string) {
	if len(args) > 0 {
		if err := c.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if c.Interactive {
		c.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// send encodes and publishes one frame on the vessel's inbound topic.
// It takes only seqMu so the inbound handler may call it under mu.
func (c *Console) send(msg wire.Message) {
	c.seqMu.Lock()
	frame := wire.Encode(c.seq, msg)
	c.seq++
	c.seqMu.Unlock()
	c.client.Publish(c.prefix+"rx", 0, false, frame)
}

func (c *Console) dispatch(_ paho.Client, m paho.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range m.Payload() {
		f := c.dec.Feed(b)
		if f == nil {
			continue
		}
		msg, err := wire.Decode(f)
		if err != nil {
			continue
		}
		c.handle(msg)
	}
}

// handle runs under mu.
func (c *Console) handle(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.StatusText:
		c.Shell.Printf("<%s> %s\n", severityName(m.Severity), m.Text)
	case *wire.Heartbeat:
		c.heartbeat = m
		c.trace("heartbeat mode=%s state=%s", modeName(m.Mode), stateName(m.State))
	case *wire.StatusAndErrors:
		c.nodeStatus = m
		c.trace("status=%04X errors=%s", m.Status, fault.Bitmask(m.Errors))
	case *wire.SysStatus:
		c.trace("sys load=%d.%d%% %dmV %dcA", m.Load/10, m.Load%10, m.VoltageMV, m.CurrentCA)
	case *wire.GPSRaw:
		c.trace("gps fix=%d %.7f,%.7f %dcm/s", m.Fix, float64(m.Lat)/1e7, float64(m.Lon)/1e7, m.SpeedCms)
	case *wire.ParamValue:
		c.params[m.Index] = m
		c.paramCount = m.Count
		c.Shell.Printf("%-16s = %g  (%d/%d)\n", m.Name, m.Value, m.Index+1, m.Count)
	case *wire.MissionCount:
		c.total = int(m.Count)
		c.items = c.items[:0]
		c.Shell.Printf("%d mission items\n", m.Count)
		if c.total > 0 {
			c.send(&wire.MissionRequest{Seq: 0})
		}
	case *wire.MissionItem:
		if c.total < 0 || int(m.Seq) != len(c.items) {
			return
		}
		c.items = append(c.items, *m)
		c.printItem(m)
		if len(c.items) < c.total {
			c.send(&wire.MissionRequest{Seq: uint16(len(c.items))})
		} else {
			c.total = -1
		}
	case *wire.MissionRequest:
		if int(m.Seq) < len(c.upload) {
			c.send(&c.upload[m.Seq])
		}
	case *wire.MissionAck:
		c.upload = nil
		c.Shell.Printf("mission ack: %s\n", ackName(m.Result))
	case *wire.MissionCurrent:
		c.Shell.Printf("current mission item: %d\n", m.Seq)
	case *wire.MissionItemReached:
		c.Shell.Printf("reached mission item: %d\n", m.Seq)
	}
}

// trace prints periodic telemetry only while watching.
func (c *Console) trace(format string, args ...interface{}) {
	if c.watch {
		c.Shell.Printf(format+"\n", args...)
	}
}

func (c *Console) printItem(m *wire.MissionItem) {
	mark := " "
	if m.Current {
		mark = "*"
	}
	c.Shell.Printf("%s%3d: N=%-8.1f E=%-8.1f D=%-6.1f\n", mark, m.Seq, m.North, m.East, m.Down)
}

func severityName(s byte) string {
	names := [...]string{"EMERG", "ALERT", "CRIT", "ERROR", "WARN", "NOTICE", "INFO"}
	if int(s) < len(names) {
		return names[s]
	}
	return "DEBUG"
}

func modeName(mode byte) string {
	if mode&wire.ModeFlagAutonomous != 0 {
		return "auto"
	}
	return "manual"
}

func stateName(state byte) string {
	switch state {
	case wire.StateBoot:
		return "boot"
	case wire.StateCalibrating:
		return "calibrating"
	case wire.StateStandby:
		return "standby"
	case wire.StateActive:
		return "active"
	}
	return fmt.Sprintf("state-%d", state)
}

func ackName(r byte) string {
	switch r {
	case wire.AckAccepted:
		return "accepted"
	case wire.AckError:
		return "error"
	case wire.AckNoSpace:
		return "no space"
	case wire.AckInvalidSequence:
		return "invalid sequence"
	}
	return fmt.Sprintf("result-%d", r)
}
