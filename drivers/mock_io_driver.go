package drivers

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
)

const mockDriverName = "mock_driver"

var (
	ErrMockWriteFailed = errors.New("mock output write failed")
	ErrMockReadFailed  = errors.New("mock input read failed")
)

type MockOutput struct {
	state            bool
	pin              uint16
	writeTo          io.Writer
	writeStateChange bool
	failWrites       bool

	lock sync.Mutex
}

func (mo *MockOutput) GetState() (bool, error) {
	mo.lock.Lock()
	defer mo.lock.Unlock()

	return mo.state, nil
}

func (mo *MockOutput) Set(state bool) error {
	mo.lock.Lock()
	defer mo.lock.Unlock()

	if mo.failWrites {
		return errors.Wrapf(ErrMockWriteFailed, "pin %d", mo.pin)
	}
	if mo.writeStateChange && state != mo.state {
		fmt.Fprintf(mo.writeTo, "[pin %d] state changed to %v\n", mo.pin, state)
	}
	mo.state = state
	return nil
}

type MockInput struct {
	State     bool
	pin       uint16
	failReads bool

	lock sync.Mutex
}

func (mi *MockInput) GetState() (bool, error) {
	mi.lock.Lock()
	defer mi.lock.Unlock()

	if mi.failReads {
		return false, errors.Wrapf(ErrMockReadFailed, "pin %d", mi.pin)
	}
	return mi.State, nil
}

func (mi *MockInput) set(state bool) {
	mi.lock.Lock()
	defer mi.lock.Unlock()

	mi.State = state
}

// MockIoDriver keeps pin levels in memory. It stands in for hardware in
// tests and in the mock command.
type MockIoDriver struct {
	inputs  []*MockInput
	outputs []*MockOutput
	ready   bool
}

func (md *MockIoDriver) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	for _, inPin := range inputs {
		md.inputs = append(md.inputs, &MockInput{pin: inPin})
	}
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

// Close drives every output low, like the hardware drivers do.
func (md *MockIoDriver) Close() error {
	if !md.ready {
		return nil
	}

	for _, out := range md.outputs {
		out.lock.Lock()
		out.state = false
		out.lock.Unlock()
	}
	md.ready = false
	return nil
}

func (md *MockIoDriver) String() string {
	return mockDriverName
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetInput(pin uint16) (DigitalInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, errors.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, errors.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range md.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

// SetInput drives a mock input as if the pin had changed level.
func (md *MockIoDriver) SetInput(pin uint16, state bool) error {
	for _, input := range md.inputs {
		if pin == input.pin {
			input.set(state)
			return nil
		}
	}
	return errors.Errorf("mock input %d not found", pin)
}

// FailWrites makes every Set on the given output return ErrMockWriteFailed.
func (md *MockIoDriver) FailWrites(pin uint16, fail bool) error {
	for _, output := range md.outputs {
		if pin == output.pin {
			output.lock.Lock()
			output.failWrites = fail
			output.lock.Unlock()
			return nil
		}
	}
	return errors.Errorf("mock output %d not found", pin)
}

// FailReads makes every GetState on the given input return ErrMockReadFailed.
func (md *MockIoDriver) FailReads(pin uint16, fail bool) error {
	for _, input := range md.inputs {
		if pin == input.pin {
			input.lock.Lock()
			input.failReads = fail
			input.lock.Unlock()
			return nil
		}
	}
	return errors.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.lock.Lock()
		out.writeTo = writer
		out.writeStateChange = true
		out.lock.Unlock()
	}
}
