package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/seaslug/helm.go/pkg/config"
	"github.com/seaslug/helm.go/pkg/framework"
	"github.com/seaslug/helm.go/pkg/node"
	"github.com/seaslug/helm.go/pkg/sim"
	"github.com/seaslug/helm.go/pkg/transport"
	"github.com/seaslug/helm.go/pkg/transport/mqtt"
	"github.com/seaslug/helm.go/pkg/transport/stream"
	"github.com/seaslug/helm.go/pkg/transport/websocket"
)

var configPath string

func init() {
	configPath = os.Getenv("HELM_CONFIG")
	flag.StringVar(&configPath, "config", configPath,
		"Node configuration file. Empty uses built-in defaults.")
}

// runnableTransport is what every shipped transport provides: the byte
// queue contract plus a pump loop for the Runner.
type runnableTransport interface {
	transport.Transport
	framework.Runnable
}

func newTransport(cfg config.TransportConfig) (runnableTransport, error) {
	switch cfg.Kind {
	case "stream":
		rw, err := openStream(cfg.Device)
		if err != nil {
			return nil, err
		}
		return stream.New(rw), nil
	case "mqtt":
		l, err := mqtt.New(cfg.Broker)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "websocket":
		return websocket.NewServer(cfg.Listen), nil
	}
	return nil, fmt.Errorf("unsupported transport kind %q", cfg.Kind)
}

func openStream(device string) (io.ReadWriter, error) {
	if device == "-" {
		return struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout}, nil
	}
	return os.OpenFile(device, os.O_RDWR, 0)
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			glog.Exitf("load config: %v", err)
		}
		cfg = loaded
	}

	t, err := newTransport(cfg.Transport)
	if err != nil {
		glog.Exitf("transport: %v", err)
	}

	boat := sim.New()
	n, err := node.New(node.Config{
		Transport:       t,
		Sensors:         boat,
		Actuators:       boat,
		Controller:      boat,
		Navigation:      boat,
		Registry:        boat.Registry(),
		Power:           boat.Power,
		Fix:             boat.Fix,
		MissionCapacity: cfg.Mission.Capacity,
		LinkBudget:      cfg.Link.BudgetBytes,
		GPSTimeout:      cfg.Watchdog.GPSTimeoutTicks,
		GCSTimeout:      cfg.Watchdog.GCSTimeoutTicks,
		StartupHold:     cfg.Watchdog.StartupHoldTicks,
	})
	if err != nil {
		glog.Exitf("node init: %v", err)
	}
	boat.Bind(n.Mission())

	err = framework.NewRunner().HandleSignals().
		Go(framework.NamedRun("transport", t), framework.NamedRun("node", n)).
		Wait()
	if err != nil {
		glog.Exit(err)
	}
}
