package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/thermostat/internal/logger"
	"github.com/sweeney/thermostat/internal/thermostat"
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int

	// WillPayload is published retained to TopicSystem by the broker if
	// the connection drops uncleanly. Nil disables the will.
	WillPayload []byte

	// Requests receives commands from TopicSetpoint. Nil disables the
	// subscription.
	Requests SetpointRequester

	// OnConnectionChange is called from paho's goroutines whenever the
	// connection comes up or goes down.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. A broker that
// is unreachable at startup is not fatal: paho keeps retrying in the
// background and records are buffered until it connects.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "thermostat"
	}
	p := &RealPublisher{
		opts: o,
		buf:  newRingBuffer(o.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)
	if o.WillPayload != nil {
		opts.SetBinaryWill(TopicSystem, o.WillPayload, 1, true)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		logger.Warn("mqtt: broker %s not reachable yet, buffering until connected", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	logger.Info("mqtt: connected to %s", p.opts.Broker)

	if p.opts.Requests != nil {
		c.Subscribe(TopicSetpoint, 1, p.onSetpoint)
	}

	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()
	for _, m := range pending {
		if err := p.send(m); err != nil {
			logger.Warn("mqtt: replay to %s failed: %v", m.topic, err)
		}
	}

	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(true)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	logger.Warn("mqtt: connection lost: %v", err)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(false)
	}
}

func (p *RealPublisher) onSetpoint(_ paho.Client, msg paho.Message) {
	if err := HandleCommand(p.opts.Requests, msg.Payload()); err != nil {
		logger.Warn("mqtt: %v", err)
		return
	}
	logger.Debug("mqtt: setpoint command %q", msg.Payload())
}

// IsConnected reports whether the client currently has a live connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a status record to the broker (QoS 0, not retained).
func (p *RealPublisher) Publish(rec thermostat.Record) error {
	payload, err := FormatPayload(rec)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicStatus, payload: payload})
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.opts.Requests != nil && p.client.IsConnectionOpen() {
		p.client.Unsubscribe(TopicSetpoint).WaitTimeout(time.Second)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
