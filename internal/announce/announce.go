// Package announce models a polite live region: transient result-count
// messages that assistive technology can observe passively.
package announce

import (
	"sync"
	"time"
)

const defaultTTL = 2 * time.Second

// LiveRegion holds the currently audible messages. Every message is
// auto-removed after the ttl so announcements never accumulate.
type LiveRegion struct {
	mu   sync.Mutex
	ttl  time.Duration
	seq  uint64
	msgs map[uint64]string
	order []uint64
}

func New(ttl time.Duration) *LiveRegion {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &LiveRegion{ttl: ttl, msgs: map[uint64]string{}}
}

// Announce publishes text and schedules its removal.
func (l *LiveRegion) Announce(text string) {
	l.mu.Lock()
	l.seq++
	id := l.seq
	l.msgs[id] = text
	l.order = append(l.order, id)
	l.mu.Unlock()

	time.AfterFunc(l.ttl, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.msgs, id)
		for i, v := range l.order {
			if v == id {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
	})
}

// Messages snapshots the live messages in announcement order.
func (l *LiveRegion) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.msgs[id])
	}
	return out
}
