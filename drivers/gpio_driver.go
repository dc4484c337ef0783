package drivers

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

const gpioDriverName = "gpio"

// GpIO drives Raspberry Pi header pins through /dev/gpiomem.
type GpIO struct {
	inputs  []*GpInput
	outputs []*GpOutput

	InvertInputs  bool
	InvertOutputs bool
	PullUpInputs  bool

	isReady bool
	lock    sync.Mutex
}

type GpInput struct {
	pin    uint8
	invert bool
}

type GpOutput struct {
	pin    uint8
	invert bool
}

func readRpio(pin uint8, invert bool) bool {
	if invert {
		return rpio.Pin(pin).Read() == rpio.Low
	}
	return rpio.Pin(pin).Read() == rpio.High
}

func (gpi *GpInput) GetState() (bool, error) {
	return readRpio(gpi.pin, gpi.invert), nil
}

func (gpo *GpOutput) Set(state bool) error {
	if gpo.invert {
		state = !state
	}
	if state {
		rpio.Pin(gpo.pin).High()
	} else {
		rpio.Pin(gpo.pin).Low()
	}

	return nil
}

func (gpo *GpOutput) GetState() (bool, error) {
	return readRpio(gpo.pin, gpo.invert), nil
}

func (gp *GpIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	gp.lock.Lock()
	defer gp.lock.Unlock()

	err := rpio.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to Setup gpio driver for pins: %v, %v; ", inputs, outputs)
	}
	for _, inPin := range inputs {
		if inPin > maxUint8Pin {
			return errors.Errorf("inpin %d out of range (gpio takes uint8 pin)", inPin)
		}
		pin := rpio.Pin(inPin)
		pin.Input()
		if gp.PullUpInputs {
			pin.PullUp()
		}
		gp.inputs = append(gp.inputs, &GpInput{pin: uint8(inPin), invert: gp.InvertInputs})
	}

	for _, outPin := range outputs {
		if outPin > maxUint8Pin {
			return errors.Errorf("outpin %d out of range (gpio takes uint8 pin)", outPin)
		}
		pin := rpio.Pin(outPin)
		pin.Output()
		gp.outputs = append(gp.outputs, &GpOutput{pin: uint8(outPin), invert: gp.InvertOutputs})
	}

	gp.isReady = true
	return nil
}

func (gp *GpIO) String() string {
	return gpioDriverName
}

func (gp *GpIO) IsReady() bool {
	gp.lock.Lock()
	defer gp.lock.Unlock()

	return gp.isReady
}

func (gp *GpIO) Close() error {
	gp.lock.Lock()
	defer gp.lock.Unlock()

	if !gp.isReady {
		return nil
	}
	gp.isReady = false
	for _, output := range gp.outputs {
		output.Set(false)
	}
	return rpio.Close()
}

func (gp *GpIO) GetInput(id uint16) (DigitalInput, error) {
	if id > maxUint8Pin {
		return nil, errors.Errorf("pin id %d out of range (gpio takes uint8 pin)", id)
	}
	for _, in := range gp.inputs {
		if in.pin == uint8(id) {
			return in, nil
		}
	}

	return nil, errors.Errorf("GpIO Input (id: %d) not found", id)
}

func (gp *GpIO) GetOutput(id uint16) (DigitalOutput, error) {
	if id > maxUint8Pin {
		return nil, errors.Errorf("pin id %d out of range (gpio takes uint8 pin)", id)
	}
	for _, out := range gp.outputs {
		if out.pin == uint8(id) {
			return out, nil
		}
	}

	return nil, errors.Errorf("GpIO Output (id: %d) not found", id)
}

func (gp *GpIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range gp.inputs {
		inputs = append(inputs, uint16(input.pin))
	}

	for _, output := range gp.outputs {
		outputs = append(outputs, uint16(output.pin))
	}

	return
}
