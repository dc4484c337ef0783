package cso

import (
	"fmt"
	"strings"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"github.com/hubertat/cso/drivers"
)

var (
	ErrReadOnly       = errors.New("device is read only")
	ErrNoArguments    = errors.New("message has no arguments")
	ErrDriverMismatch = errors.New("mismatched or incorrect driver")
	ErrDriverNotReady = errors.New("driver not ready")
)

// Device is a pin-backed object that keeps its state in sync with a remote
// controller over OSC.
type Device interface {
	Kind() string
	Id() uint8
	SetId(id uint8)
	Address() string
	GetDriverName() string

	Init(driver drivers.IoDriver) error
	Update() *osc.Message
	OscCallback(msg *osc.Message) error
	UsedPins() []uint16
	State() Level
}

// InputDevice marks devices whose pins are configured as inputs.
type InputDevice interface {
	Device
	IsInput() bool
}

func deviceAddress(kind string, id uint8) string {
	return fmt.Sprintf("/%s/%d", kind, id)
}

func isInput(dev Device) bool {
	in, ok := dev.(InputDevice)
	return ok && in.IsInput()
}

func checkDriver(driver drivers.IoDriver, driverName string) error {
	if driver == nil || !strings.EqualFold(driver.String(), driverName) {
		return errors.Wrapf(ErrDriverMismatch, "want %s", driverName)
	}
	if !driver.IsReady() {
		return errors.Wrapf(ErrDriverNotReady, "driver %s", driverName)
	}
	return nil
}
