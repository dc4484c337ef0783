package cso

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/brutella/hap/accessory"
	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"github.com/hubertat/cso/drivers"
)

const DigitalOutputKind = "digitalOutput"

// DigitalOutputDevice holds one output pin at a level set by the remote
// controller.
type DigitalOutputDevice struct {
	Name           string
	DriverName     string
	Pin            uint16
	StartState     Level
	DisableHomekit bool

	id     uint8
	state  Level
	output drivers.DigitalOutput

	hk *accessory.Outlet

	lock sync.Mutex
}

func NewDigitalOutputDevice(pin uint16, startState Level) *DigitalOutputDevice {
	return &DigitalOutputDevice{
		Pin:        pin,
		StartState: startState,
		state:      startState,
	}
}

func (do *DigitalOutputDevice) Kind() string {
	return DigitalOutputKind
}

func (do *DigitalOutputDevice) Id() uint8 {
	return do.id
}

func (do *DigitalOutputDevice) SetId(id uint8) {
	do.id = id
}

func (do *DigitalOutputDevice) Address() string {
	return deviceAddress(DigitalOutputKind, do.id)
}

func (do *DigitalOutputDevice) GetDriverName() string {
	return do.DriverName
}

func (do *DigitalOutputDevice) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("DigitalOutput_" + do.DriverName + "_" + fmt.Sprint(do.Pin)))
	return hash.Sum64()
}

func (do *DigitalOutputDevice) Init(driver drivers.IoDriver) error {
	err := checkDriver(driver, do.DriverName)
	if err != nil {
		return errors.Wrapf(err, "Init of %s failed", do.Address())
	}

	do.lock.Lock()
	defer do.lock.Unlock()

	do.output, err = driver.GetOutput(do.Pin)
	if err != nil {
		return errors.Wrapf(err, "Init of %s failed", do.Address())
	}

	err = do.output.Set(do.StartState.Bool())
	if err != nil {
		return errors.Wrapf(err, "Init of %s failed writing start state", do.Address())
	}
	do.state = do.StartState

	if do.DisableHomekit {
		return nil
	}

	name := do.Name
	if len(name) == 0 {
		name = do.Address()
	}
	do.hk = accessory.NewOutlet(accessory.Info{
		Name:         name,
		SerialNumber: fmt.Sprintf("digital_output:%s:%02d", do.DriverName, do.Pin),
	})
	do.hk.Outlet.On.SetValue(do.state.Bool())
	do.hk.Outlet.On.OnValueRemoteUpdate(func(on bool) {
		do.Set(LevelFromBool(on))
	})

	return nil
}

func (do *DigitalOutputDevice) Update() *osc.Message {
	return osc.NewMessage(do.Address(), int32(do.State()))
}

func (do *DigitalOutputDevice) OscCallback(msg *osc.Message) error {
	if msg == nil || len(msg.Arguments) == 0 {
		return errors.Wrapf(ErrNoArguments, "callback on %s", do.Address())
	}

	level, err := ParseLevel(msg.Arguments[0])
	if err != nil {
		return errors.Wrapf(err, "callback on %s", do.Address())
	}

	return do.Set(level)
}

func (do *DigitalOutputDevice) UsedPins() []uint16 {
	return []uint16{do.Pin}
}

func (do *DigitalOutputDevice) State() Level {
	do.lock.Lock()
	defer do.lock.Unlock()

	return do.state
}

// Set writes level to the pin. State is only updated when the write
// succeeded.
func (do *DigitalOutputDevice) Set(level Level) error {
	do.lock.Lock()
	defer do.lock.Unlock()

	return do.set(level)
}

func (do *DigitalOutputDevice) set(level Level) error {
	if do.output == nil {
		return errors.Errorf("%s not initialized", do.Address())
	}
	level = LevelFromBool(level.Bool())

	err := do.output.Set(level.Bool())
	if err != nil {
		return errors.Wrapf(err, "failed to set %s %s", do.Address(), level)
	}
	do.state = level

	if do.hk != nil {
		do.hk.Outlet.On.SetValue(level.Bool())
	}

	return nil
}

func (do *DigitalOutputDevice) Toggle() error {
	do.lock.Lock()
	defer do.lock.Unlock()

	if do.state.Bool() {
		return do.set(Low)
	}
	return do.set(High)
}

func (do *DigitalOutputDevice) GetHk() *accessory.A {
	if do.hk == nil {
		return nil
	}
	return do.hk.A
}
