// Package progress fans job events out to live subscribers such as the
// websocket stream.
package progress

import (
	"sync"

	"go.uber.org/zap"

	"storyreel/internal/appcore"
	"storyreel/log"
)

const subscriberBuffer = 32

type subscriber struct {
	ch chan appcore.JobEvent
}

// Broker keeps the latest event per active job so a late subscriber starts
// from the current state. Publishing never blocks: a full subscriber misses
// the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	latest map[string]appcore.JobEvent
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[string]map[*subscriber]struct{}),
		latest: make(map[string]appcore.JobEvent),
	}
}

// Subscribe returns a channel of events for jobID and a func that ends the
// subscription and closes the channel.
func (b *Broker) Subscribe(jobID string) (<-chan appcore.JobEvent, func()) {
	s := &subscriber{ch: make(chan appcore.JobEvent, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[*subscriber]struct{})
	}
	b.subs[jobID][s] = struct{}{}
	if ev, ok := b.latest[jobID]; ok {
		s.ch <- ev
	}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set := b.subs[jobID]; set != nil {
				delete(set, s)
				if len(set) == 0 {
					delete(b.subs, jobID)
				}
			}
			close(s.ch)
		})
	}
}

func (b *Broker) Publish(ev appcore.JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.Stage.IsTerminal() {
		delete(b.latest, ev.JobID)
	} else {
		b.latest[ev.JobID] = ev
	}

	for s := range b.subs[ev.JobID] {
		select {
		case s.ch <- ev:
		default:
			log.GetLogger().Debug("dropping job event for slow subscriber",
				zap.String("job_id", ev.JobID), zap.String("stage", ev.Stage.String()))
		}
	}
}

// Latest returns the last non-terminal event published for jobID.
func (b *Broker) Latest(jobID string) (appcore.JobEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.latest[jobID]
	return ev, ok
}

func (b *Broker) Subscribers(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[jobID])
}
