package drivers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
)

const mcpioDriverName = "mcpio"

// mcp23017 exposes 16 pins, A0..A7 as 0..7 and B0..B7 as 8..15.
const mcpPinCount = 16

type McpIO struct {
	device *mcp23017.Device

	inputs  []*McpInput
	outputs []*McpOutput
	isReady bool

	BusNo         uint8
	DevNo         uint8
	InvertInputs  bool
	InvertOutputs bool
}

type McpInput struct {
	pin    uint8
	invert bool

	device *mcp23017.Device
}

type McpOutput struct {
	pin    uint8
	invert bool

	device *mcp23017.Device
}

func readMcp(device *mcp23017.Device, pin uint8, invert bool) (bool, error) {
	rawState, err := device.DigitalRead(pin)
	if err != nil {
		return false, errors.Wrapf(err, "mcp23017 read of pin %d failed", pin)
	}

	return bool(rawState) != invert, nil
}

func (min *McpInput) GetState() (bool, error) {
	return readMcp(min.device, min.pin, min.invert)
}

func (mout *McpOutput) GetState() (bool, error) {
	return readMcp(mout.device, mout.pin, mout.invert)
}

func (mout *McpOutput) Set(state bool) error {
	if mout.invert {
		state = !state
	}

	return mout.device.DigitalWrite(mout.pin, mcp23017.PinLevel(state))
}

func (mcp *McpIO) String() string {
	return mcpioDriverName
}

func (mcp *McpIO) IsReady() bool {
	return mcp.isReady
}

func (mcp *McpIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) (err error) {
	mcp.device, err = mcp23017.Open(mcp.BusNo, mcp.DevNo)
	if err != nil {
		return errors.Wrapf(err, "failed to open mcp23017 on bus %d dev %d", mcp.BusNo, mcp.DevNo)
	}

	for _, inputPin := range inputs {
		if inputPin >= mcpPinCount {
			return errors.Errorf("input pin %d out of range (mcpio has %d pins)", inputPin, mcpPinCount)
		}
		err = mcp.device.PinMode(uint8(inputPin), mcp23017.INPUT)
		if err != nil {
			return
		}
		err = mcp.device.SetPullUp(uint8(inputPin), true)
		if err != nil {
			return
		}
		mcp.inputs = append(mcp.inputs, &McpInput{pin: uint8(inputPin), invert: mcp.InvertInputs, device: mcp.device})
	}

	for _, outputPin := range outputs {
		if outputPin >= mcpPinCount {
			return errors.Errorf("output pin %d out of range (mcpio has %d pins)", outputPin, mcpPinCount)
		}
		err = mcp.device.PinMode(uint8(outputPin), mcp23017.OUTPUT)
		if err != nil {
			return
		}
		mcp.outputs = append(mcp.outputs, &McpOutput{pin: uint8(outputPin), invert: mcp.InvertOutputs, device: mcp.device})
	}

	mcp.isReady = true

	return
}

func (mcp *McpIO) GetInput(id uint16) (DigitalInput, error) {
	for _, in := range mcp.inputs {
		if uint16(in.pin) == id {
			return in, nil
		}
	}

	return nil, errors.Errorf("mcpio input (id: %d) not found", id)
}

func (mcp *McpIO) GetOutput(id uint16) (DigitalOutput, error) {
	for _, out := range mcp.outputs {
		if uint16(out.pin) == id {
			return out, nil
		}
	}

	return nil, errors.Errorf("mcpio output (id: %d) not found", id)
}

func (mcp *McpIO) Close() error {
	if mcp.device == nil {
		return nil
	}
	mcp.isReady = false
	for _, output := range mcp.outputs {
		output.Set(false)
	}
	return mcp.device.Close()
}

func (mcp *McpIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range mcp.inputs {
		inputs = append(inputs, uint16(input.pin))
	}

	for _, output := range mcp.outputs {
		outputs = append(outputs, uint16(output.pin))
	}

	return
}
