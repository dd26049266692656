package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/led-blinker/internal/logic"
)

// bufferCapacity bounds the messages held while the broker is unreachable.
// At the default 500ms interval this covers roughly four minutes of toggles.
const bufferCapacity = 500

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string
	log    zerolog.Logger

	mu        sync.Mutex
	buf       *ringBuffer
	online    bool // between onConnect and onConnectionLost
	replaying bool // onConnect is draining buf; new messages queue behind it
	connected bool // at least one successful connection seen
}

func newPublisher(log zerolog.Logger) *RealPublisher {
	return &RealPublisher{
		topic: Topic,
		log:   log,
		buf:   newRingBuffer(bufferCapacity, log),
	}
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is not reachable within the connect timeout, the publisher keeps retrying
// in the background and buffers messages until it connects.
func NewRealPublisher(broker string, log zerolog.Logger) (*RealPublisher, error) {
	p := newPublisher(log)

	opts, err := p.clientOptions(broker)
	if err != nil {
		return nil, err
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warn().Str("broker", broker).Msg("mqtt connect timeout, retrying in background")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// clientOptions builds the paho options. The will is retained so that after a
// crash it replaces the retained STARTUP on the system topic. It carries no
// timestamp because it is registered at connect time, not when it fires.
func (p *RealPublisher) clientOptions(broker string) (*paho.ClientOptions, error) {
	will, err := FormatSystemPayload(SystemEvent{
		Event:  "SHUTDOWN",
		Reason: "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	return paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("led-blinker").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost), nil
}

// onConnect replays buffered messages and announces reconnections. Messages
// sent while the replay runs are queued and drained in the same pass, so
// replay order matches publish order.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.online = true
	p.replaying = true
	reconnect := p.connected
	p.connected = true
	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			p.buf.push(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
		}
	}
	buffered := p.buf.len()
	p.mu.Unlock()

	if reconnect {
		p.log.Info().Int("buffered", buffered).Msg("mqtt reconnected")
	} else {
		p.log.Info().Msg("mqtt connected")
	}

	for {
		p.mu.Lock()
		pending := p.buf.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for _, msg := range pending {
			token := c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
			if !token.WaitTimeout(5 * time.Second) {
				p.log.Warn().Str("topic", msg.topic).Msg("replay publish timeout")
				continue
			}
			if err := token.Error(); err != nil {
				p.log.Warn().Err(err).Str("topic", msg.topic).Msg("replay publish failed")
			}
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.online = false
	p.mu.Unlock()
	p.log.Warn().Err(err).Msg("mqtt connection lost")
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.online || p.replaying {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// Publish sends a toggle event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
