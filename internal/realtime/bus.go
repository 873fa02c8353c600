package realtime

import (
	"log/slog"
	"sync"
	"time"

	"coursely/pkg/logger"
)

// Envelope is the unit published on the bus and forwarded to streaming
// clients. Payload is already shaped for the wire.
type Envelope struct {
	Type      string                 `json:"type"`
	CourseID  string                 `json:"courseId,omitempty"`
	StudentID string                 `json:"studentId,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Event types carried in Envelope.Type.
const (
	EventApplied              = "APPLIED"
	EventSeatBooked           = "SEAT_BOOKED"
	EventSeatReleased         = "SEAT_RELEASED"
	EventAutoEnrolled         = "STUDENT_AUTO_ENROLLED"
	EventWaitlistUpdated      = "WAITLIST_UPDATED"
	EventBookingStatusChanged = "BOOKING_STATUS_CHANGED"

	// TypeDisconnect is sent (best-effort) to a subscriber the bus is
	// about to drop for falling behind.
	TypeDisconnect = "DISCONNECT"
)

// CourseTopic returns the topic carrying updates for one course
func CourseTopic(courseExternalID string) string {
	return "course:" + courseExternalID
}

// StudentTopic returns the topic carrying personal updates for one student
func StudentTopic(studentExternalID string) string {
	return "student:" + studentExternalID
}

// Subscription is a live attachment to one topic (or the firehose). C
// yields envelopes in publish order until Close, or until the bus drops
// the subscriber for falling behind.
type Subscription struct {
	C chan Envelope

	bus    *Bus
	topic  string
	id     int
	closed bool // guarded by the owning topic's mutex
}

// Close detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.bus.remove(s)
}

const firehoseTopic = "*"

// Bus is an in-process publish/subscribe fan-out. Publishes to a topic
// are delivered to every subscriber of that topic in publish order.
// Subscriber channels are bounded; a full channel gets a best-effort
// disconnect notice and is then dropped so one slow consumer cannot
// stall the rest.
type Bus struct {
	mu        sync.RWMutex
	topics    map[string]*topicState
	queueSize int
	nextID    int
	closed    bool
}

// topicState guards its subscriber set with one mutex that also
// serializes fan-out, so delivery order is FIFO per topic and a channel
// is never closed mid-send.
type topicState struct {
	mu   sync.Mutex
	subs map[int]*Subscription
}

// NewBus creates a bus whose subscriber channels buffer queueSize
// envelopes each.
func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Bus{
		topics:    make(map[string]*topicState),
		queueSize: queueSize,
	}
}

// Subscribe attaches to a single topic
func (b *Bus) Subscribe(topic string) *Subscription {
	return b.subscribe(topic)
}

// SubscribeAll attaches to every envelope published on the bus,
// regardless of topic.
func (b *Bus) SubscribeAll() *Subscription {
	return b.subscribe(firehoseTopic)
}

func (b *Bus) subscribe(topic string) *Subscription {
	b.mu.Lock()

	sub := &Subscription{
		C:     make(chan Envelope, b.queueSize),
		bus:   b,
		topic: topic,
		id:    b.nextID,
	}
	b.nextID++

	if b.closed {
		b.mu.Unlock()
		sub.closed = true
		close(sub.C)
		return sub
	}

	state, ok := b.topics[topic]
	if !ok {
		state = &topicState{subs: make(map[int]*Subscription)}
		b.topics[topic] = state
	}
	b.mu.Unlock()

	state.mu.Lock()
	state.subs[sub.id] = sub
	state.mu.Unlock()

	return sub
}

// Publish fans the envelope out to the topic's subscribers and to the
// firehose. Never blocks: subscribers that cannot keep up are dropped.
func (b *Bus) Publish(topic string, env Envelope) {
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}

	b.deliver(topic, env)
	b.deliver(firehoseTopic, env)
}

func (b *Bus) deliver(topic string, env Envelope) {
	b.mu.RLock()
	state, ok := b.topics[topic]
	b.mu.RUnlock()
	if !ok {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	for _, sub := range state.subs {
		select {
		case sub.C <- env:
		default:
			// Best-effort disconnect notice; the channel is full so this
			// usually fails too, which is fine.
			select {
			case sub.C <- Envelope{Type: TypeDisconnect, Timestamp: time.Now()}:
			default:
			}
			logger.GetDefault().Warn("dropping slow bus subscriber",
				slog.String("topic", topic),
				slog.Int("subscriber_id", sub.id),
			)
			delete(state.subs, sub.id)
			sub.closed = true
			close(sub.C)
		}
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.RLock()
	state, ok := b.topics[sub.topic]
	b.mu.RUnlock()
	if !ok {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if sub.closed {
		return
	}
	delete(state.subs, sub.id)
	sub.closed = true
	close(sub.C)
}

// Close shuts the bus down and closes every subscriber channel
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	topics := b.topics
	b.topics = make(map[string]*topicState)
	b.mu.Unlock()

	for _, state := range topics {
		state.mu.Lock()
		for id, sub := range state.subs {
			delete(state.subs, id)
			sub.closed = true
			close(sub.C)
		}
		state.mu.Unlock()
	}
}
