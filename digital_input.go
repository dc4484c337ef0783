package cso

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"github.com/hubertat/cso/drivers"
)

const DigitalInputKind = "digitalInput"

// DigitalInputDevice reports the level of one input pin. Inversion and
// pull-ups are configured on the driver.
type DigitalInputDevice struct {
	Name           string
	DriverName     string
	Pin            uint16
	DisableHomekit bool

	id      uint8
	state   Level
	input   drivers.DigitalInput
	faulty  bool
	lastErr error

	hkAccessory *accessory.A
	hkService   *service.ContactSensor
	hkFault     *characteristic.StatusFault

	lock sync.Mutex
}

func NewDigitalInputDevice(pin uint16) *DigitalInputDevice {
	return &DigitalInputDevice{Pin: pin}
}

func (di *DigitalInputDevice) Kind() string {
	return DigitalInputKind
}

func (di *DigitalInputDevice) IsInput() bool {
	return true
}

func (di *DigitalInputDevice) Id() uint8 {
	return di.id
}

func (di *DigitalInputDevice) SetId(id uint8) {
	di.id = id
}

func (di *DigitalInputDevice) Address() string {
	return deviceAddress(DigitalInputKind, di.id)
}

func (di *DigitalInputDevice) GetDriverName() string {
	return di.DriverName
}

func (di *DigitalInputDevice) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("DigitalInput_" + di.DriverName + "_" + fmt.Sprint(di.Pin)))
	return hash.Sum64()
}

func (di *DigitalInputDevice) Init(driver drivers.IoDriver) error {
	err := checkDriver(driver, di.DriverName)
	if err != nil {
		return errors.Wrapf(err, "Init of %s failed", di.Address())
	}

	di.lock.Lock()
	defer di.lock.Unlock()

	di.input, err = driver.GetInput(di.Pin)
	if err != nil {
		return errors.Wrapf(err, "Init of %s failed", di.Address())
	}

	initState, err := di.input.GetState()
	if err != nil {
		return errors.Wrapf(err, "Init of %s failed reading state", di.Address())
	}
	di.state = LevelFromBool(initState)

	if di.DisableHomekit {
		return nil
	}

	name := di.Name
	if len(name) == 0 {
		name = di.Address()
	}
	di.hkAccessory = accessory.New(accessory.Info{
		Name:         name,
		SerialNumber: fmt.Sprintf("digital_input:%s:%02d", di.DriverName, di.Pin),
	}, accessory.TypeSensor)
	di.hkService = service.NewContactSensor()
	di.hkFault = characteristic.NewStatusFault()
	di.hkFault.SetValue(characteristic.StatusFaultNoFault)
	di.hkService.AddC(di.hkFault.C)
	di.hkAccessory.AddS(di.hkService.S)
	di.setHk()

	return nil
}

func (di *DigitalInputDevice) setHk() {
	if di.hkService == nil {
		return
	}
	if di.state.Bool() {
		di.hkService.ContactSensorState.SetValue(characteristic.ContactSensorStateContactNotDetected)
	} else {
		di.hkService.ContactSensorState.SetValue(characteristic.ContactSensorStateContactDetected)
	}
}

func (di *DigitalInputDevice) setFault(err error) {
	di.faulty = err != nil
	di.lastErr = err
	if di.hkFault == nil {
		return
	}
	if di.faulty {
		di.hkFault.SetValue(characteristic.StatusFaultGeneralFault)
	} else {
		di.hkFault.SetValue(characteristic.StatusFaultNoFault)
	}
}

// Sync reads the pin and stores its level. A failed read keeps the previous
// level and marks the device faulty until a read succeeds.
func (di *DigitalInputDevice) Sync() error {
	di.lock.Lock()
	defer di.lock.Unlock()

	if di.input == nil {
		return errors.Errorf("%s not initialized", di.Address())
	}

	state, err := di.input.GetState()
	if err != nil {
		err = errors.Wrapf(err, "Sync of %s failed", di.Address())
		di.setFault(err)
		return err
	}
	di.setFault(nil)
	di.state = LevelFromBool(state)
	di.setHk()

	return nil
}

// IsFaulty reports whether the last read failed, with its error.
func (di *DigitalInputDevice) IsFaulty() (bool, error) {
	di.lock.Lock()
	defer di.lock.Unlock()

	return di.faulty, di.lastErr
}

// Update re-reads the pin. When the read fails the previous level is
// reported and the fault is left for IsFaulty.
func (di *DigitalInputDevice) Update() *osc.Message {
	di.Sync()
	return osc.NewMessage(di.Address(), int32(di.State()))
}

func (di *DigitalInputDevice) OscCallback(msg *osc.Message) error {
	return errors.Wrapf(ErrReadOnly, "callback on %s", di.Address())
}

func (di *DigitalInputDevice) UsedPins() []uint16 {
	return []uint16{di.Pin}
}

func (di *DigitalInputDevice) State() Level {
	di.lock.Lock()
	defer di.lock.Unlock()

	return di.state
}

func (di *DigitalInputDevice) GetHk() *accessory.A {
	return di.hkAccessory
}
