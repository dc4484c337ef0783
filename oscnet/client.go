package oscnet

import (
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
)

type Client struct {
	Host string
	Port int

	client *osc.Client
}

func NewClient(host string, port int) *Client {
	return &Client{
		Host:   host,
		Port:   port,
		client: osc.NewClient(host, port),
	}
}

// Bundle packs messages into one bundle stamped with now.
func Bundle(msgs []*osc.Message, now time.Time) (*osc.Bundle, error) {
	bundle := osc.NewBundle(now)
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		err := bundle.Append(msg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to append %s to bundle", msg.Address)
		}
	}
	return bundle, nil
}

func (c *Client) Send(msg *osc.Message) error {
	return errors.Wrapf(c.client.Send(msg), "failed to send %s", msg.Address)
}

// SendBundle sends msgs as a single bundle. Nothing is sent for an empty
// batch.
func (c *Client) SendBundle(msgs []*osc.Message) error {
	bundle, err := Bundle(msgs, time.Now())
	if err != nil {
		return err
	}
	if len(bundle.Messages) == 0 {
		return nil
	}

	return errors.Wrapf(c.client.Send(bundle), "failed to send bundle to %s:%d", c.Host, c.Port)
}
