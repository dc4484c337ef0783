package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hubertat/cso"
	"github.com/hubertat/cso/drivers"
)

var (
	Version string
	Build   string
)

func main() {
	log.SetLevel(log.DebugLevel)
	log.Info("cso mock started, pins live in memory")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	syncDuration := 250 * time.Millisecond

	obj := &cso.Object{
		Name:          "mock",
		OscListen:     "127.0.0.1:9000",
		OscRemoteHost: "127.0.0.1",
		OscRemotePort: 9001,
		FakeDriver:    &drivers.MockIoDriver{},
	}

	lamp := cso.NewDigitalOutputDevice(1, cso.Low)
	lamp.Name = "fake lamp"
	lamp.DriverName = "mock_driver"
	lamp.DisableHomekit = true

	smoke := cso.NewDigitalOutputDevice(2, cso.High)
	smoke.Name = "fake smoke machine"
	smoke.DriverName = "mock_driver"
	smoke.DisableHomekit = true

	door := cso.NewDigitalInputDevice(3)
	door.Name = "fake door"
	door.DriverName = "mock_driver"
	door.DisableHomekit = true

	obj.DigitalOutputs = append(obj.DigitalOutputs, lamp, smoke)
	obj.DigitalInputs = append(obj.DigitalInputs, door)

	err := obj.InitDrivers(ctx)
	defer obj.Close()
	if err != nil {
		log.Fatal("failed to init drivers", "err", err)
	}

	err = obj.InitDevices()
	if err != nil {
		log.Fatal("failed to init devices", "err", err)
	}

	obj.FakeDriver.MonitorStateChanges(os.Stdout)
	obj.PrintIoStatus(os.Stdout)

	err = obj.StartOsc(ctx)
	if err != nil {
		log.Fatal("failed to start osc", "err", err)
	}

	obj.StartTicker(ctx, syncDuration)
}
