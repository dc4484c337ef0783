package cso

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const maxDevicesPerKind = 256

var (
	ErrPinConflict    = errors.New("pin already in use")
	ErrTooManyDevices = errors.New("too many devices of one kind")
)

type pinKey struct {
	driver string
	pin    uint16
}

// Registry owns the device table: it hands out per-kind ids and refuses
// devices that would share a pin on the same driver.
type Registry struct {
	devices  []Device
	counters map[string]int
	pins     map[pinKey]Device

	lock sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]int),
		pins:     make(map[pinKey]Device),
	}
}

func (r *Registry) Add(dev Device) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	kind := dev.Kind()
	if r.counters[kind] >= maxDevicesPerKind {
		return errors.Wrapf(ErrTooManyDevices, "%s limit is %d", kind, maxDevicesPerKind)
	}

	driverName := strings.ToLower(dev.GetDriverName())
	for _, pin := range dev.UsedPins() {
		owner, taken := r.pins[pinKey{driverName, pin}]
		if taken {
			return errors.Wrapf(ErrPinConflict, "pin %d on %s is used by %s", pin, driverName, owner.Address())
		}
	}

	dev.SetId(uint8(r.counters[kind]))
	r.counters[kind]++

	for _, pin := range dev.UsedPins() {
		r.pins[pinKey{driverName, pin}] = dev
	}
	r.devices = append(r.devices, dev)

	return nil
}

func (r *Registry) Devices() []Device {
	r.lock.RLock()
	defer r.lock.RUnlock()

	devices := make([]Device, len(r.devices))
	copy(devices, r.devices)
	return devices
}

func (r *Registry) Find(address string) Device {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, dev := range r.devices {
		if dev.Address() == address {
			return dev
		}
	}
	return nil
}

func (r *Registry) Count(kind string) int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.counters[kind]
}

// PinsFor lists the pins a driver has to configure, split by direction.
func (r *Registry) PinsFor(driverName string) (inputs []uint16, outputs []uint16) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, dev := range r.devices {
		if !strings.EqualFold(dev.GetDriverName(), driverName) {
			continue
		}
		if isInput(dev) {
			inputs = append(inputs, dev.UsedPins()...)
		} else {
			outputs = append(outputs, dev.UsedPins()...)
		}
	}

	return
}

func (r *Registry) DriverNames() (names []string) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	seen := make(map[string]bool)
	for _, dev := range r.devices {
		name := dev.GetDriverName()
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return
}
