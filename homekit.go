package cso

import (
	"context"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/pkg/errors"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeAuthor = "github.com/hubertat"

type HkThing interface {
	GetHk() *accessory.A
	GetUniqueId() uint64
}

func (o *Object) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, dev := range o.Devices() {
		th, ok := dev.(HkThing)
		if !ok {
			continue
		}
		a := th.GetHk()
		if a == nil {
			continue
		}
		if a.Info != nil && a.Info.FirmwareRevision != nil {
			a.Info.FirmwareRevision.SetValue(firmwareVersion)
		}
		a.Id = th.GetUniqueId()
		acc = append(acc, a)
	}

	return
}

// StartHomeKit serves the devices as a HomeKit bridge until ctx is done.
func (o *Object) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	bridge := accessory.NewBridge(accessory.Info{
		Name:         o.name(),
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	directory := o.HkDirectory
	if len(directory) == 0 {
		directory = defaultHomeKitDirectory
	}

	hkServer, err := hap.NewServer(hap.NewFsStore(directory), bridge.A, o.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = o.HkPin
	if len(o.HkAddress) > 0 {
		hkServer.Addr = o.HkAddress
	}

	if o.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	return hkServer.ListenAndServe(ctx)
}
