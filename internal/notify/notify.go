// Package notify delivers lifecycle notifications — bake completion,
// crash-recovery prompts, render failures — over MQTT topics and/or any
// shoutrrr-supported service (Slack, Discord, email, ...), queued through
// a lock-free ring buffer so a slow or disconnected sink never blocks the
// audio-processing call that raised the event.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/k3a/html2text"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/smallnest/ringbuffer"

	"github.com/nuevaaudio/nueva-engine/internal/nlog"
)

// EventKind identifies a lifecycle event worth notifying about.
type EventKind string

const (
	EventBakeComplete     EventKind = "bake_complete"
	EventBakeFailed       EventKind = "bake_failed"
	EventCrashRecovered   EventKind = "crash_recovered"
	EventCrashUnrecovered EventKind = "crash_unrecovered"
	EventRenderFailed     EventKind = "render_failed"
)

// Event is one notification, with an HTML body (for shoutrrr services
// that render it) and a plain-text fallback derived from it for MQTT.
type Event struct {
	Kind        EventKind
	ProjectName string
	HTMLBody    string
}

func (e Event) plainText() string {
	return html2text.HTML2Text(e.HTMLBody)
}

func (e Event) topic() string {
	return fmt.Sprintf("nueva/%s/%s", e.ProjectName, e.Kind)
}

// MQTTConfig configures the optional MQTT sink.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// queueCapacity bounds the outbound event backlog; once it is full, new
// events are dropped rather than the queue growing without bound.
const queueCapacity = 256

// eventRecordSize is large enough for any marshaled Event; events are
// length-prefixed so ringbuffer's byte stream can be framed back out.
const eventRecordSize = 4096

// Dispatcher fans a stream of Events out to whichever sinks are
// configured. Callers push events from the processing path; a background
// goroutine drains the ring buffer so Notify never blocks on I/O.
type Dispatcher struct {
	mu         sync.Mutex
	mqttClient mqtt.Client
	mqttCfg    MQTTConfig
	shoutrrrURLs []string

	queue  *ringbuffer.RingBuffer
	logger interface {
		Warn(msg string, args ...any)
	}

	stop chan struct{}
}

// NewDispatcher creates a dispatcher with an empty queue. Call
// ConnectMQTT and/or AddShoutrrrURL to configure sinks, then Start.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		queue: ringbuffer.New(queueCapacity * eventRecordSize),
		stop:  make(chan struct{}),
	}
}

// ConnectMQTT dials the configured broker, resolving its hostname first
// so a DNS failure surfaces immediately rather than as a connect timeout.
func (d *Dispatcher) ConnectMQTT(ctx context.Context, cfg MQTTConfig) error {
	u, err := url.Parse(cfg.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	if _, err := net.LookupHost(u.Hostname()); err != nil {
		return fmt.Errorf("failed to resolve broker hostname %s: %w", u.Hostname(), err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect error: %w", err)
	}

	d.mu.Lock()
	d.mqttClient = client
	d.mqttCfg = cfg
	d.mu.Unlock()
	return nil
}

// AddShoutrrrURL registers an additional shoutrrr service URL (e.g.
// "slack://token@channel" or "smtp://..."), delivered on every event.
func (d *Dispatcher) AddShoutrrrURL(serviceURL string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shoutrrrURLs = append(d.shoutrrrURLs, serviceURL)
}

// Notify enqueues an event for asynchronous delivery. It never blocks the
// caller on network I/O; if the queue is full, TryWrite writes nothing and
// the new event is dropped, while events already queued are kept.
func (d *Dispatcher) Notify(e Event) {
	payload := []byte(e.topic() + "\x00" + e.plainText() + "\x00" + e.HTMLBody)
	if len(payload) > eventRecordSize {
		payload = payload[:eventRecordSize]
	}
	framed := make([]byte, eventRecordSize)
	copy(framed, payload)
	_, _ = d.queue.TryWrite(framed)
}

// Start launches the background drain loop. Call Stop to shut it down.
func (d *Dispatcher) Start() {
	logger := nlog.ForComponent("notify.dispatcher")
	d.logger = logger
	go d.drainLoop()
}

// Stop halts the drain loop.
func (d *Dispatcher) Stop() { close(d.stop) }

func (d *Dispatcher) drainLoop() {
	buf := make([]byte, eventRecordSize)
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		n, err := d.queue.TryRead(buf)
		if err != nil || n == 0 {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		d.deliver(buf[:n])
	}
}

func (d *Dispatcher) deliver(record []byte) {
	parts := splitFramed(record, 3)
	if len(parts) != 3 {
		return
	}
	topic, plain, html := parts[0], parts[1], parts[2]

	d.mu.Lock()
	client := d.mqttClient
	urls := append([]string(nil), d.shoutrrrURLs...)
	d.mu.Unlock()

	if client != nil && client.IsConnected() {
		token := client.Publish(topic, 0, false, plain)
		if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
			if d.logger != nil {
				d.logger.Warn("mqtt publish failed", "topic", topic)
			}
		}
	}

	for _, u := range urls {
		if err := shoutrrr.Send(u, html); err != nil && d.logger != nil {
			d.logger.Warn("shoutrrr send failed", "url", u, "error", err)
		}
	}
}

func splitFramed(record []byte, n int) []string {
	out := make([]string, 0, n)
	start := 0
	for i, b := range record {
		if b == 0 {
			out = append(out, string(record[start:i]))
			start = i + 1
			if len(out) == n-1 {
				out = append(out, string(trimTrailingZeros(record[start:])))
				return out
			}
		}
	}
	return out
}

func trimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}
