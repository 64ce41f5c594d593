package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"os"

	"github.com/seaslug/helm.go/pkg/cli"
)

var brokerURL = "mqtt://localhost:1883/helm/"

func init() {
	if val := os.Getenv("HELM_MQTT_URL"); val != "" {
		brokerURL = val
	}
	flag.StringVar(&brokerURL, "mqtt", brokerURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()

	console, err := cli.New(brokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	console.Run(flag.Args()...)
}
