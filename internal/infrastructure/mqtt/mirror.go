package mqtt

import "sync"

// mirrorQueueSize is the per-thing buffer between the notification producer
// and the broker publisher. Notifications beyond a full buffer are dropped;
// the mirror is best-effort by contract.
const mirrorQueueSize = 256

// Publisher is the subset of Client the mirror needs, split out so tests can
// substitute a fake.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Mirror forwards one thing's push notifications to the broker. It
// implements the thing subscriber contract: Send queues without blocking,
// and a background pump does the actual publishing so broker latency never
// reaches the notification path.
type Mirror struct {
	topic     string
	qos       byte
	publisher Publisher
	logger    Logger

	queue     chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// NewMirror creates a mirror publishing one thing's notifications to its
// updates topic and starts the pump.
func NewMirror(thingID string, publisher Publisher, qos byte, logger Logger) *Mirror {
	m := &Mirror{
		topic:     Topics{}.ThingUpdates(thingID),
		qos:       qos,
		publisher: publisher,
		logger:    logger,
		queue:     make(chan []byte, mirrorQueueSize),
		done:      make(chan struct{}),
	}
	go m.pump()
	return m
}

// Send implements the subscriber contract. It never blocks; when the queue
// is full the notification is dropped.
func (m *Mirror) Send(data []byte) {
	defer func() {
		// Send may race with Close; a send on the closed channel is
		// swallowed rather than crashing the broadcaster.
		recover() //nolint:errcheck
	}()
	select {
	case m.queue <- data:
	default:
		if m.logger != nil {
			m.logger.Warn("mirror queue full, dropping notification", "topic", m.topic)
		}
	}
}

// pump drains the queue onto the broker until Close.
func (m *Mirror) pump() {
	defer close(m.done)
	for data := range m.queue {
		if err := m.publisher.Publish(m.topic, data, m.qos, false); err != nil {
			if m.logger != nil {
				m.logger.Warn("mirror publish failed", "topic", m.topic, "error", err)
			}
		}
	}
}

// Close stops the pump after draining queued notifications. Idempotent.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		close(m.queue)
		<-m.done
	})
}
