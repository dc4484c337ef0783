package drivers

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const periphDriverName = "periph"

// PeriphIO resolves pins through the periph.io registry, so it works on
// any board periph has a host driver for. Pin numbers are looked up as
// their decimal name, optionally prefixed with PinPrefix (e.g. "GPIO").
type PeriphIO struct {
	PinPrefix     string
	InvertInputs  bool
	InvertOutputs bool
	PullUpInputs  bool

	inputs  []*PeriphInput
	outputs []*PeriphOutput
	isReady bool
}

type PeriphInput struct {
	pin    uint16
	invert bool
	io     gpio.PinIO
}

type PeriphOutput struct {
	pin    uint16
	invert bool
	io     gpio.PinIO
}

func (pi *PeriphInput) GetState() (bool, error) {
	return bool(pi.io.Read()) != pi.invert, nil
}

func (po *PeriphOutput) GetState() (bool, error) {
	return bool(po.io.Read()) != po.invert, nil
}

func (po *PeriphOutput) Set(state bool) error {
	level := gpio.Level(state != po.invert)
	err := po.io.Out(level)
	if err != nil {
		return errors.Wrapf(err, "periph output %s write failed", po.io.Name())
	}
	return nil
}

func (pe *PeriphIO) lookup(pin uint16) (gpio.PinIO, error) {
	name := pe.PinPrefix + strconv.Itoa(int(pin))
	io := gpioreg.ByName(name)
	if io == nil {
		return nil, errors.Errorf("periph pin %s not found", name)
	}
	return io, nil
}

func (pe *PeriphIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to init periph host drivers")
	}

	pull := gpio.Float
	if pe.PullUpInputs {
		pull = gpio.PullUp
	}

	for _, inPin := range inputs {
		io, err := pe.lookup(inPin)
		if err != nil {
			return err
		}
		err = io.In(pull, gpio.NoEdge)
		if err != nil {
			return errors.Wrapf(err, "failed to set %s as input", io.Name())
		}
		pe.inputs = append(pe.inputs, &PeriphInput{pin: inPin, invert: pe.InvertInputs, io: io})
	}

	for _, outPin := range outputs {
		io, err := pe.lookup(outPin)
		if err != nil {
			return err
		}
		err = io.Out(gpio.Level(pe.InvertOutputs))
		if err != nil {
			return errors.Wrapf(err, "failed to set %s as output", io.Name())
		}
		pe.outputs = append(pe.outputs, &PeriphOutput{pin: outPin, invert: pe.InvertOutputs, io: io})
	}

	pe.isReady = true
	return nil
}

func (pe *PeriphIO) String() string {
	return periphDriverName
}

func (pe *PeriphIO) IsReady() bool {
	return pe.isReady
}

func (pe *PeriphIO) Close() (err error) {
	pe.isReady = false
	for _, out := range pe.outputs {
		if setErr := out.Set(false); setErr != nil && err == nil {
			err = setErr
		}
		if haltErr := out.io.Halt(); haltErr != nil && err == nil {
			err = errors.Wrapf(haltErr, "failed to halt %s", out.io.Name())
		}
	}
	return
}

func (pe *PeriphIO) GetInput(id uint16) (DigitalInput, error) {
	for _, in := range pe.inputs {
		if in.pin == id {
			return in, nil
		}
	}

	return nil, errors.Errorf("periph input (id: %d) not found", id)
}

func (pe *PeriphIO) GetOutput(id uint16) (DigitalOutput, error) {
	for _, out := range pe.outputs {
		if out.pin == id {
			return out, nil
		}
	}

	return nil, errors.Errorf("periph output (id: %d) not found", id)
}

func (pe *PeriphIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range pe.inputs {
		inputs = append(inputs, input.pin)
	}

	for _, output := range pe.outputs {
		outputs = append(outputs, output.pin)
	}

	return
}
