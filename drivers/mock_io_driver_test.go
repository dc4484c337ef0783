package drivers

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertUint16Slices(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("len(got) = %d len(want) = %d", len(got), len(want))
		return
	}

	for key, val := range got {
		if want[key] != val {
			t.Errorf("for key [%d] got: %d want: %d", key, val, want[key])
		}
	}
}

func TestMockInputGetState(t *testing.T) {
	inEnabled := MockInput{State: true}
	inDisabled := MockInput{State: false}

	state, _ := inEnabled.GetState()
	if state != true {
		t.Error("MockInput GetState failed")
	}

	state, _ = inDisabled.GetState()
	if state != false {
		t.Error("MockInput GetState failed")
	}
}

func TestMockOutputSetState(t *testing.T) {
	out := MockOutput{}

	want := true
	out.Set(want)
	got, _ := out.GetState()
	assertBools(t, got, want)

	want = false
	out.Set(want)
	got, _ = out.GetState()
	assertBools(t, got, want)

	want = true
	out.Set(want)
	got, _ = out.GetState()
	assertBools(t, got, want)
}

func TestMockIoSetup(t *testing.T) {
	md := MockIoDriver{}

	assertBools(t, md.IsReady(), false)

	md.Setup(context.Background(), []uint16{1, 3, 5}, []uint16{2, 4})
	assertBools(t, md.IsReady(), true)

	md.Close()
	assertBools(t, md.IsReady(), false)
}

func TestMockIoGetAllIo(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{1, 3, 5}, []uint16{2, 4})
	inputs, outputs := md.GetAllIo()
	assertUint16Slices(t, inputs, []uint16{1, 3, 5})
	assertUint16Slices(t, outputs, []uint16{2, 4})
}

func TestMockGetOutput(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{}, []uint16{3})
	output, err := md.GetOutput(3)
	if err != nil {
		t.Fatalf("GetOutput returned err: %v", err)
	}

	want := true
	output.Set(want)
	got, _ := output.GetState()
	assertBools(t, got, want)

	anotherOut, _ := md.GetOutput(3)
	got, _ = anotherOut.GetState()
	assertBools(t, got, want)

	_, err = md.GetOutput(4)
	if err == nil {
		t.Error("expected error for missing output")
	}
}

func TestMockSetInput(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{7}, []uint16{})

	err := md.SetInput(7, true)
	if err != nil {
		t.Fatalf("SetInput returned err: %v", err)
	}
	input, _ := md.GetInput(7)
	got, _ := input.GetState()
	assertBools(t, got, true)

	if md.SetInput(8, true) == nil {
		t.Error("expected error for missing input")
	}
}

func TestMockFailWrites(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{}, []uint16{2})
	md.FailWrites(2, true)

	output, _ := md.GetOutput(2)
	err := output.Set(true)
	if !errors.Is(err, ErrMockWriteFailed) {
		t.Errorf("got err %v want %v", err, ErrMockWriteFailed)
	}
	got, _ := output.GetState()
	assertBools(t, got, false)

	md.FailWrites(2, false)
	if err := output.Set(true); err != nil {
		t.Errorf("got err %v after clearing failure", err)
	}
}

func TestMockCloseDrivesOutputsLow(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{}, []uint16{2, 4})

	for _, pin := range []uint16{2, 4} {
		output, _ := md.GetOutput(pin)
		output.Set(true)
	}

	if err := md.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}
	for _, pin := range []uint16{2, 4} {
		output, _ := md.GetOutput(pin)
		got, _ := output.GetState()
		assertBools(t, got, false)
	}
	assertBools(t, md.IsReady(), false)
}

func TestMockFailReads(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{6}, []uint16{})
	md.SetInput(6, true)
	md.FailReads(6, true)

	input, _ := md.GetInput(6)
	_, err := input.GetState()
	if !errors.Is(err, ErrMockReadFailed) {
		t.Errorf("got err %v want %v", err, ErrMockReadFailed)
	}

	md.FailReads(6, false)
	got, err := input.GetState()
	if err != nil {
		t.Errorf("got err %v after clearing failure", err)
	}
	assertBools(t, got, true)

	if md.FailReads(9, true) == nil {
		t.Error("expected error for missing input")
	}
}

func TestMockMonitorStateChanges(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{}, []uint16{5})

	buf := &bytes.Buffer{}
	md.MonitorStateChanges(buf)

	output, _ := md.GetOutput(5)
	output.Set(true)
	output.Set(true)

	want := "[pin 5] state changed to true\n"
	if buf.String() != want {
		t.Errorf("got %q want %q", buf.String(), want)
	}
}
