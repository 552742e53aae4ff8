package registry

import (
	"time"

	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/types"
)

// EventKind identifies a lifecycle notification.
type EventKind uint8

const (
	EventProposalCreated EventKind = iota + 1
	EventProposalCancelled
	EventProposalFinalized
)

func (k EventKind) String() string {
	switch k {
	case EventProposalCreated:
		return "ProposalCreated"
	case EventProposalCancelled:
		return "ProposalCancelled"
	case EventProposalFinalized:
		return "ProposalFinalized"
	default:
		return "unknown"
	}
}

// Event is emitted after a lifecycle change has been committed.
type Event struct {
	Kind       EventKind
	ProposalID types.ProposalID
	Status     types.Status
	Time       time.Time
}

// subscriberBuffer is the capacity of every subscription channel. Events
// for a full subscriber are dropped.
const subscriberBuffer = 64

// Subscribe returns a channel receiving every future event and a function
// that closes the subscription.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	id := r.nextID
	r.nextID++
	ch := make(chan Event, subscriberBuffer)
	r.subs[id] = ch
	return ch, func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		if ch, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}
}

func (r *Registry) emit(ev Event) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for id, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			log.Warnw("event subscriber is full, dropping event",
				"subscriber", id,
				"event", ev.Kind.String(),
				"proposalId", ev.ProposalID.String())
		}
	}
}
