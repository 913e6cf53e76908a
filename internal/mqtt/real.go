package mqtt

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/lidgate/internal/logic"
)

// DefaultBufferSize is how many messages are kept while disconnected.
const DefaultBufferSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Session     string
	BufferSize  int
	Logger      *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down go to an outbox and are replayed, oldest first, once
// it comes back.
type RealPublisher struct {
	client  paho.Client
	events  string
	system  string
	session string
	logger  *slog.Logger

	mu            sync.Mutex
	outbox        *outbox
	everConnected bool
}

// NewRealPublisher creates a publisher for the given broker. Connecting
// happens in the background and is retried until it succeeds.
func NewRealPublisher(o Options) *RealPublisher {
	p := newPublisher(o)

	clientID := o.ClientID
	if clientID == "" {
		clientID = "lidgate"
	}
	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Session: o.Session})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.system, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(o Options) *RealPublisher {
	prefix := o.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "mqtt")
	return &RealPublisher{
		events:  EventsTopic(prefix),
		system:  SystemTopic(prefix),
		session: o.Session,
		logger:  logger,
		outbox:  newOutbox(size, logger),
	}
}

// onConnect replays buffered messages. After a reconnect it also announces
// RECONNECTED on the system topic.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	pending := p.outbox.drain()
	p.mu.Unlock()

	p.logger.Info("connected", "reconnect", reconnect, "buffered", len(pending))
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED", Session: p.session})
		c.Publish(p.system, 1, false, payload)
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.logger.Warn("connection lost", "err", err)
}

// Publish sends a switch event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.SwitchEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	msg := outboxMsg{topic: p.events, payload: payload, source: string(event.Switch)}
	if err := p.publish(msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	if event.Session == "" {
		event.Session = p.session
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	msg := outboxMsg{topic: p.system, payload: payload, qos: 1, retained: event.Retained, source: event.Event}
	switch {
	case event.Retained:
		// The broker keeps one retained message per topic.
		msg.key = "retained:" + p.system
	case event.Event == "HEARTBEAT":
		msg.key = "heartbeat"
	}
	if err := p.publish(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) publish(m outboxMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.outbox.push(m)
		p.mu.Unlock()
		p.logger.Debug("queued while disconnected", "topic", m.topic, "source", m.source)
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// BufferStats reports the outbox of messages waiting for a connection.
func (p *RealPublisher) BufferStats() BufferStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.stats()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
