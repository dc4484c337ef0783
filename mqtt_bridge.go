package cso

import (
	"context"

	"github.com/eclipse/paho.golang/paho"
	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"github.com/hubertat/cso/mqtt"
)

const mqttSetSuffix = "/set"

// deviceSetter turns a publish on <object><address>/set into an OSC
// callback on the device, so MQTT writes follow the same path as OSC.
type deviceSetter struct {
	object *Object
	device Device
	topic  string
}

func (ds *deviceSetter) MqttSubscribeTopic() string {
	return ds.topic
}

func (ds *deviceSetter) MqttHandle(pub *paho.Publish) {
	level, err := ParseLevel(string(pub.Payload))
	if err != nil {
		ds.object.log().Error("bad mqtt payload", "topic", pub.Topic, "err", err)
		return
	}

	err = ds.device.OscCallback(osc.NewMessage(ds.device.Address(), int32(level)))
	if err != nil {
		ds.object.log().Error("mqtt set failed", "topic", pub.Topic, "err", err)
	}
}

func (o *Object) stateTopic(dev Device) string {
	return o.name() + dev.Address()
}

func (o *Object) mqttHandlers() []mqtt.MqttHandler {
	handlers := []mqtt.MqttHandler{}
	for _, dev := range o.Devices() {
		if isInput(dev) {
			continue
		}
		handlers = append(handlers, &deviceSetter{
			object: o,
			device: dev,
			topic:  o.stateTopic(dev) + mqttSetSuffix,
		})
	}
	return handlers
}

func (o *Object) InitMqtt(ctx context.Context) (err error) {
	if len(o.MqttBroker) == 0 {
		return errors.New("mqtt broker not set")
	}

	mc, err := mqtt.NewMqttClient(o.MqttBroker, o.name())
	if err != nil {
		return errors.Wrap(err, "failed to create mqtt client")
	}

	err = mc.Connect(ctx, o.mqttHandlers())
	if err != nil {
		return errors.Wrap(err, "failed to connect to mqtt broker")
	}

	o.mqttClient = mc
	return nil
}
