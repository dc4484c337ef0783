package oscnet

import (
	"sync"

	"github.com/hypebeast/go-osc/osc"
)

type Handler func(msg *osc.Message)

// Dispatcher routes OSC messages by exact address. Bundles are unpacked
// recursively and their messages dispatched in order.
type Dispatcher struct {
	handlers map[string]Handler
	fallback Handler

	lock sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
	}
}

func (d *Dispatcher) Handle(address string, handler Handler) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.handlers[address] = handler
}

// HandleUnmatched sets the handler for messages no address matched.
func (d *Dispatcher) HandleUnmatched(handler Handler) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.fallback = handler
}

func (d *Dispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		d.dispatchMessage(p)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			d.dispatchMessage(msg)
		}
		for _, bundle := range p.Bundles {
			d.Dispatch(bundle)
		}
	}
}

func (d *Dispatcher) dispatchMessage(msg *osc.Message) {
	d.lock.RLock()
	handler, found := d.handlers[msg.Address]
	if !found {
		handler = d.fallback
	}
	d.lock.RUnlock()

	if handler != nil {
		handler(msg)
	}
}
