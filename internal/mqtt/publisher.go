// Package mqtt pushes coordinator snapshots and diagnostics to an MQTT
// broker for home-automation consumers.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ventio/airmod/internal/coordinator"
	"github.com/ventio/airmod/internal/registers"
)

// Options configures the broker session and topic layout.
type Options struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	BaseTopic string
	QoS       byte
	Retain    bool
}

// Publisher owns one broker connection shared by every unit.
type Publisher struct {
	client paho.Client
	opts   Options
	logger *log.Logger
}

// New builds the publisher. The last-will marks the bridge offline when the
// connection drops; the on-connect callback re-asserts online.
func New(opts Options, logger *log.Logger) *Publisher {
	p := &Publisher{opts: opts, logger: logger}

	co := paho.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetAutoReconnect(true)
	co.SetKeepAlive(60 * time.Second)
	co.SetWill(p.availabilityTopic(), "offline", 1, true)
	co.SetOnConnectHandler(func(client paho.Client) {
		if token := client.Publish(p.availabilityTopic(), 1, true, "online"); token.Wait() && token.Error() != nil && logger != nil {
			logger.Printf("mqtt: online publish failed: %v", token.Error())
		}
	})
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		if logger != nil {
			logger.Printf("mqtt: connection lost: %v", err)
		}
	})

	p.client = paho.NewClient(co)
	return p
}

// Connect dials the broker, retrying until it succeeds or ctx is cancelled.
func (p *Publisher) Connect(ctx context.Context) error {
	for {
		token := p.client.Connect()
		token.Wait()
		if token.Error() == nil {
			return nil
		}
		if p.logger != nil {
			p.logger.Printf("mqtt: connect failed, retrying: %v", token.Error())
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("mqtt: connect: %w", ctx.Err())
		case <-time.After(5 * time.Second):
		}
	}
}

// Close marks the bridge offline and drops the connection.
func (p *Publisher) Close() {
	if !p.client.IsConnected() {
		return
	}
	if token := p.client.Publish(p.availabilityTopic(), 1, true, "offline"); token.Wait() && token.Error() != nil && p.logger != nil {
		p.logger.Printf("mqtt: offline publish failed: %v", token.Error())
	}
	p.client.Disconnect(250)
}

// PublishView pushes every reading in the snapshot under
// <base>/<unit>/<area>/<name>.
func (p *Publisher) PublishView(unit string, cat *registers.Catalog, view coordinator.View) error {
	for _, fn := range registers.Functions {
		for _, def := range cat.AllInArea(fn) {
			r, ok := view.Get(fn, def.Address)
			if !ok {
				continue
			}
			topic := p.stateTopic(unit, fn, def.Name)
			if err := p.publish(topic, statePayload(r)); err != nil {
				return fmt.Errorf("mqtt: publish %s: %w", topic, err)
			}
		}
	}
	return nil
}

// PublishDiagnostics pushes the coordinator's diagnostic view as retained
// JSON under <base>/<unit>/diagnostics.
func (p *Publisher) PublishDiagnostics(unit string, d coordinator.Diagnostics) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("mqtt: encode diagnostics: %w", err)
	}
	topic := fmt.Sprintf("%s/%s/diagnostics", p.opts.BaseTopic, unit)
	token := p.client.Publish(topic, p.opts.QoS, true, body)
	token.Wait()
	return token.Error()
}

func (p *Publisher) publish(topic, payload string) error {
	token := p.client.Publish(topic, p.opts.QoS, p.opts.Retain, payload)
	token.Wait()
	return token.Error()
}

func (p *Publisher) availabilityTopic() string {
	return p.opts.BaseTopic + "/availability"
}

func (p *Publisher) stateTopic(unit string, fn registers.Function, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", p.opts.BaseTopic, unit, fn, name)
}

// statePayload renders one reading. Stale readings publish their last value
// unchanged; consumers read staleness from the diagnostics topic.
func statePayload(r coordinator.Reading) string {
	v := r.Value
	if v.Unavailable {
		return "unavailable"
	}
	switch v.Kind {
	case registers.KindBool:
		if v.Bool {
			return "ON"
		}
		return "OFF"
	case registers.KindEnum:
		return v.Label
	default:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
}
