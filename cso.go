package cso

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"github.com/hubertat/cso/drivers"
	"github.com/hubertat/cso/mqtt"
	"github.com/hubertat/cso/oscnet"
	"github.com/hubertat/cso/recorder"
)

const defaultObjectName = "cso"

var ErrUnknownAddress = errors.New("no device at address")

// Object is one connected scenic object: a set of pin devices on one
// machine, kept in sync with a show controller over OSC.
type Object struct {
	Name string

	DigitalOutputs []*DigitalOutputDevice
	DigitalInputs  []*DigitalInputDevice

	OscListen     string
	OscRemoteHost string
	OscRemotePort int

	HttpAddr string

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker string

	Gpio       *drivers.GpIO
	Periph     *drivers.PeriphIO
	Mcp23017   *drivers.McpIO
	FakeDriver *drivers.MockIoDriver

	Influx *recorder.Influx

	registry   *Registry
	ioDrivers  map[string]drivers.IoDriver
	dispatcher *oscnet.Dispatcher
	oscServer  *oscnet.Server
	oscClient  *oscnet.Client
	mqttClient *mqtt.MqttClient
	logger     *log.Logger

	published map[string]Level
	tickLock  sync.Mutex

	faults    map[string]bool
	faultLock sync.Mutex
}

// faultReporter is implemented by devices that keep running on a failed
// pin read.
type faultReporter interface {
	IsFaulty() (bool, error)
}

func (o *Object) name() string {
	if len(o.Name) == 0 {
		return defaultObjectName
	}
	return o.Name
}

func (o *Object) log() *log.Logger {
	if o.logger == nil {
		o.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: fmt.Sprintf("%s 🎭: ", o.name()),
			Level:  log.GetLevel(),
		})
	}
	return o.logger
}

// Registry registers the configured devices on first use. Outputs are
// registered before inputs, each in config order, so ids are stable
// across restarts with the same config.
func (o *Object) Registry() (*Registry, error) {
	if o.registry != nil {
		return o.registry, nil
	}

	reg := NewRegistry()
	for _, dev := range o.DigitalOutputs {
		err := reg.Add(dev)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register digital output")
		}
	}
	for _, dev := range o.DigitalInputs {
		err := reg.Add(dev)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register digital input")
		}
	}

	o.registry = reg
	return reg, nil
}

func (o *Object) configuredDrivers() []drivers.IoDriver {
	configured := []drivers.IoDriver{}
	if o.Gpio != nil {
		configured = append(configured, o.Gpio)
	}
	if o.Periph != nil {
		configured = append(configured, o.Periph)
	}
	if o.Mcp23017 != nil {
		configured = append(configured, o.Mcp23017)
	}
	if o.FakeDriver != nil {
		configured = append(configured, o.FakeDriver)
	}
	return configured
}

func (o *Object) InitDrivers(ctx context.Context) error {
	reg, err := o.Registry()
	if err != nil {
		return err
	}

	o.ioDrivers = make(map[string]drivers.IoDriver)
	for _, driver := range o.configuredDrivers() {
		o.ioDrivers[driver.String()] = driver
	}

	for _, name := range reg.DriverNames() {
		if _, found := o.ioDrivers[strings.ToLower(name)]; !found {
			return errors.Errorf("driver %s not configured", name)
		}
	}

	for name, driver := range o.ioDrivers {
		inputs, outputs := reg.PinsFor(name)
		err := driver.Setup(ctx, inputs, outputs)
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", driver)
		}
		o.log().Debug("driver ready", "driver", name, "inputs", inputs, "outputs", outputs)
	}

	return nil
}

func (o *Object) InitDevices() error {
	reg, err := o.Registry()
	if err != nil {
		return err
	}

	o.dispatcher = oscnet.NewDispatcher()
	o.dispatcher.HandleUnmatched(func(msg *osc.Message) {
		o.log().Warn("message for unknown address", "address", msg.Address)
	})

	for _, dev := range reg.Devices() {
		driver := o.ioDrivers[strings.ToLower(dev.GetDriverName())]
		err := dev.Init(driver)
		if err != nil {
			return errors.Wrapf(err, "failed to init %s", dev.Address())
		}

		o.dispatcher.Handle(dev.Address(), o.oscHandler(dev))
	}

	return nil
}

func (o *Object) oscHandler(dev Device) oscnet.Handler {
	return func(msg *osc.Message) {
		err := dev.OscCallback(msg)
		if err != nil {
			o.log().Error("osc callback failed", "address", msg.Address, "err", err)
		}
	}
}

func (o *Object) Devices() []Device {
	if o.registry == nil {
		return nil
	}
	return o.registry.Devices()
}

func (o *Object) Find(address string) Device {
	if o.registry == nil {
		return nil
	}
	return o.registry.Find(address)
}

// Dispatch delivers msg to the device at its address.
func (o *Object) Dispatch(msg *osc.Message) error {
	dev := o.Find(msg.Address)
	if dev == nil {
		return errors.Wrap(ErrUnknownAddress, msg.Address)
	}
	return dev.OscCallback(msg)
}

// Updates collects one update message per device.
func (o *Object) Updates() []*osc.Message {
	msgs := []*osc.Message{}
	for _, dev := range o.Devices() {
		msgs = append(msgs, dev.Update())
		o.checkFault(dev)
	}
	return msgs
}

// checkFault logs when a device becomes faulty and when it recovers.
func (o *Object) checkFault(dev Device) {
	reporter, ok := dev.(faultReporter)
	if !ok {
		return
	}
	faulty, err := reporter.IsFaulty()

	o.faultLock.Lock()
	defer o.faultLock.Unlock()

	if o.faults == nil {
		o.faults = make(map[string]bool)
	}
	if faulty == o.faults[dev.Address()] {
		return
	}
	o.faults[dev.Address()] = faulty
	if faulty {
		o.log().Warn("device read failed, keeping last level", "address", dev.Address(), "err", err)
	} else {
		o.log().Info("device recovered", "address", dev.Address())
	}
}

// Faulty lists the addresses of devices whose last read failed.
func (o *Object) Faulty() []string {
	o.faultLock.Lock()
	defer o.faultLock.Unlock()

	addrs := []string{}
	for _, dev := range o.Devices() {
		if o.faults[dev.Address()] {
			addrs = append(addrs, dev.Address())
		}
	}
	return addrs
}

// Tick sends every device update to the remote controller and reports
// state changes since the previous tick to MQTT and the recorder.
func (o *Object) Tick(ctx context.Context) (err error) {
	o.tickLock.Lock()
	defer o.tickLock.Unlock()

	msgs := o.Updates()

	if o.oscClient != nil {
		sendErr := o.oscClient.SendBundle(msgs)
		if sendErr != nil {
			o.log().Error("failed to send updates", "err", sendErr)
			err = sendErr
		}
	}

	if o.published == nil {
		o.published = make(map[string]Level)
	}

	now := time.Now()
	changes := []recorder.Change{}
	for _, dev := range o.Devices() {
		state := dev.State()
		last, seen := o.published[dev.Address()]
		if seen && last == state {
			continue
		}
		o.published[dev.Address()] = state
		changes = append(changes, recorder.Change{
			Object:  o.name(),
			Address: dev.Address(),
			Kind:    dev.Kind(),
			Level:   int(state),
			At:      now,
		})

		if o.mqttClient != nil {
			pubErr := o.mqttClient.Publish(o.stateTopic(dev), []byte(fmt.Sprint(int(state))))
			if pubErr != nil {
				o.log().Error("failed to publish state", "address", dev.Address(), "err", pubErr)
				err = pubErr
			}
		}
	}

	if o.Influx != nil && len(changes) > 0 {
		recErr := o.Influx.Record(ctx, changes...)
		if recErr != nil {
			o.log().Error("failed to record changes", "err", recErr)
			err = recErr
		}
	}

	return
}

func (o *Object) StartTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// StartOsc binds the OSC listener and, when a remote is configured, the
// client updates are sent to. It returns once the socket is bound.
func (o *Object) StartOsc(ctx context.Context) error {
	if o.dispatcher == nil {
		return errors.New("devices not initialized")
	}

	if o.OscRemotePort > 0 {
		o.oscClient = oscnet.NewClient(o.OscRemoteHost, o.OscRemotePort)
	}

	if len(o.OscListen) == 0 {
		return nil
	}

	o.oscServer = oscnet.NewServer(o.OscListen, o.dispatcher)
	err := o.oscServer.Listen()
	if err != nil {
		return err
	}

	go func() {
		err := o.oscServer.Serve(ctx)
		if err != nil {
			o.log().Error("osc server failed", "err", err)
		}
	}()

	return nil
}

func (o *Object) Close() (err error) {
	if o.oscServer != nil {
		if closeErr := o.oscServer.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "failed to close osc server")
		}
	}

	if o.mqttClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if closeErr := o.mqttClient.Disconnect(ctx); closeErr != nil {
			err = errors.Wrap(closeErr, "failed to disconnect mqtt")
		}
		cancel()
	}

	if o.Influx != nil {
		o.Influx.Close()
	}

	for name, driver := range o.ioDrivers {
		if closeErr := driver.Close(); closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close %s driver", name)
		}
	}

	return
}

func (o *Object) PrintIoStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== active io drivers ===")
	for driverName, driver := range o.ioDrivers {
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| driver: %s\n", driverName)
		inputs, outputs := driver.GetAllIo()
		fmt.Fprintf(writer, "| in pins: ")
		for _, inpin := range inputs {
			fmt.Fprintf(writer, "%d, ", inpin)
		}
		fmt.Fprintf(writer, "\n| out pins: ")
		for _, outpin := range outputs {
			fmt.Fprintf(writer, "%d, ", outpin)
		}
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "--------")
	}
	fmt.Fprintln(writer, "=== devices ===")
	for _, dev := range o.Devices() {
		fmt.Fprintf(writer, "| %s %s pins %v: %s\n", dev.Address(), dev.GetDriverName(), dev.UsedPins(), dev.State())
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}
