// Package dispatcher fans project events out to subscribers.
//
// Events of one project are numbered and delivered to every subscriber in
// publication order. Delivery is best effort: a subscriber whose buffer is
// full misses the event and is expected to re-sync from the ranked view.
package dispatcher

import (
	"bidwar/internal/metrics"
	"bidwar/internal/models"
	"bidwar/utils"
	"context"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length used when none is given
const DefaultBuffer = 64

// Dispatcher routes events to per-project topics
type Dispatcher struct {
	mu      sync.RWMutex
	topics  map[string]*topic
	buffer  int
	metrics *metrics.Metrics
	lastID  uint64
}

type topic struct {
	mu     sync.Mutex
	seq    int64
	subs   map[uint64]*Subscription
	closed bool
}

// Subscription is one consumer of a project's events. C is closed when the
// subscription ends, either through Close or because the project reached a
// terminal state.
type Subscription struct {
	ID        uint64
	ProjectID string
	C         <-chan models.Event

	ch     chan models.Event
	topic  *topic
	closed bool // guarded by topic.mu
	stop   func() bool
}

// New creates a dispatcher. buffer <= 0 selects DefaultBuffer; m may be nil.
func New(buffer int, m *metrics.Metrics) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Dispatcher{
		topics:  make(map[string]*topic),
		buffer:  buffer,
		metrics: m,
	}
}

func (d *Dispatcher) topic(projectID string) *topic {
	d.mu.RLock()
	t, ok := d.topics[projectID]
	d.mu.RUnlock()
	if ok {
		return t
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok = d.topics[projectID]; !ok {
		t = &topic{subs: make(map[uint64]*Subscription)}
		d.topics[projectID] = t
	}
	return t
}

// Subscribe registers a consumer for projectID. The subscription ends when
// ctx is done, when Close is called or when the project is closed. Subscribing
// to a closed project yields an already-closed subscription.
func (d *Dispatcher) Subscribe(ctx context.Context, projectID string) *Subscription {
	t := d.topic(projectID)

	id := d.nextID()
	ch := make(chan models.Event, d.buffer)
	sub := &Subscription{ID: id, ProjectID: projectID, C: ch, ch: ch, topic: t}

	t.mu.Lock()
	if t.closed {
		sub.closed = true
		close(ch)
		t.mu.Unlock()
		return sub
	}
	t.subs[id] = sub
	sub.stop = context.AfterFunc(ctx, sub.Close)
	t.mu.Unlock()

	utils.Debug("Subscriber attached", map[string]any{"projectID": projectID, "subscriberID": id})
	return sub
}

// Ended returns an already-closed subscription for a project whose topic
// was released.
func (d *Dispatcher) Ended(projectID string) *Subscription {
	ch := make(chan models.Event)
	close(ch)
	t := &topic{closed: true, subs: make(map[uint64]*Subscription)}
	return &Subscription{ID: d.nextID(), ProjectID: projectID, C: ch, ch: ch, topic: t, closed: true}
}

func (d *Dispatcher) nextID() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastID++
	return d.lastID
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.topic.mu.Lock()
	defer s.topic.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	delete(s.topic.subs, s.ID)
	close(s.ch)
	if s.stop != nil {
		s.stop()
	}
}

// Publish stamps event with the project's next sequence number and hands
// it to every subscriber. It never blocks on a slow consumer. Events for a
// closed project are discarded.
func (d *Dispatcher) Publish(projectID string, event models.Event) models.Event {
	t := d.topic(projectID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return event
	}

	t.seq++
	event.ProjectID = projectID
	event.Sequence = t.seq

	for _, sub := range t.subs {
		select {
		case sub.ch <- event:
			d.metrics.IncEventPublished()
		default:
			d.metrics.IncEventDropped()
			utils.Warn("Dropped event for slow subscriber", map[string]any{
				"projectID":    projectID,
				"subscriberID": sub.ID,
				"kind":         event.Kind,
				"sequence":     event.Sequence,
			})
		}
	}
	return event
}

// CloseProject ends every subscription of projectID and rejects later ones
func (d *Dispatcher) CloseProject(projectID string) {
	t := d.topic(projectID)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for _, sub := range t.subs {
		sub.closeLocked()
	}
}

// Release closes projectID and forgets its topic. A later Subscribe or
// Publish for projectID starts a fresh topic, so callers release a project
// only once nothing more will be published for it and answer new
// subscribers with Ended.
func (d *Dispatcher) Release(projectID string) {
	d.CloseProject(projectID)

	d.mu.Lock()
	delete(d.topics, projectID)
	d.mu.Unlock()
}

// Topics returns the number of projects holding a topic
func (d *Dispatcher) Topics() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.topics)
}

// Subscribers returns the number of live subscriptions for projectID
func (d *Dispatcher) Subscribers(projectID string) int {
	d.mu.RLock()
	t, ok := d.topics[projectID]
	d.mu.RUnlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close ends every subscription of every project
func (d *Dispatcher) Close() {
	d.mu.RLock()
	ids := make([]string, 0, len(d.topics))
	for id := range d.topics {
		ids = append(ids, id)
	}
	d.mu.RUnlock()

	for _, id := range ids {
		d.CloseProject(id)
	}
}
