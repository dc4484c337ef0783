package cso

import (
	"testing"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"github.com/hubertat/cso/drivers"
)

func TestDigitalInputInitReadsPin(t *testing.T) {
	di := inputOn("mock_driver", 3)
	md := readyMock(t, []uint16{3}, nil)
	md.SetInput(3, true)

	if err := di.Init(md); err != nil {
		t.Fatalf("Init returned %v", err)
	}
	assertLevels(t, di.State(), High)
}

func TestDigitalInputUpdateFollowsPin(t *testing.T) {
	di := inputOn("mock_driver", 3)
	md := readyMock(t, []uint16{3}, nil)
	di.Init(md)

	msg := di.Update()
	if got := msg.Arguments[0].(int32); got != 0 {
		t.Errorf("got %d want 0", got)
	}

	md.SetInput(3, true)
	msg = di.Update()
	if got := msg.Arguments[0].(int32); got != 1 {
		t.Errorf("got %d want 1", got)
	}
	assertLevels(t, di.State(), High)
	if msg.Address != "/digitalInput/0" {
		t.Errorf("got address %s", msg.Address)
	}
}

func TestDigitalInputIsReadOnly(t *testing.T) {
	di := inputOn("mock_driver", 3)
	md := readyMock(t, []uint16{3}, nil)
	di.Init(md)

	err := di.OscCallback(osc.NewMessage(di.Address(), int32(1)))
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("got err %v want %v", err, ErrReadOnly)
	}
	assertLevels(t, di.State(), Low)
}

func TestDigitalInputFailedReadKeepsLevel(t *testing.T) {
	di := inputOn("mock_driver", 3)
	md := readyMock(t, []uint16{3}, nil)
	md.SetInput(3, true)
	di.Init(md)

	md.FailReads(3, true)
	md.SetInput(3, false)

	msg := di.Update()
	if got := msg.Arguments[0].(int32); got != 1 {
		t.Errorf("got %d want last level 1", got)
	}
	faulty, err := di.IsFaulty()
	if !faulty || !errors.Is(err, drivers.ErrMockReadFailed) {
		t.Errorf("got faulty %v err %v after failed read", faulty, err)
	}

	md.FailReads(3, false)
	di.Update()
	faulty, _ = di.IsFaulty()
	if faulty {
		t.Error("fault not cleared after successful read")
	}
	assertLevels(t, di.State(), Low)
}

func TestDigitalInputSyncBeforeInit(t *testing.T) {
	di := inputOn("mock_driver", 3)
	if di.Sync() == nil {
		t.Error("expected error syncing uninitialized device")
	}
}

func TestDigitalInputHomeKit(t *testing.T) {
	di := NewDigitalInputDevice(6)
	di.DriverName = "mock_driver"
	md := readyMock(t, []uint16{6}, nil)

	if err := di.Init(md); err != nil {
		t.Fatal(err)
	}
	if di.GetHk() == nil {
		t.Fatal("HomeKit accessory not created")
	}
	if !isInput(di) {
		t.Error("digital input not reported as input")
	}
}
