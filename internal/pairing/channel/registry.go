package channel

import (
	"pairing-control-plane/internal/pairing/domain"
)

// Registry holds the enabled strategies, preserving registration order for
// channel rotation.
type Registry struct {
	byChannel map[domain.Channel]Strategy
	order     []domain.Channel
}

// NewRegistry returns a registry over the given strategies. Registration
// order is the rotation priority order.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{byChannel: make(map[domain.Channel]Strategy)}
	for _, s := range strategies {
		if _, dup := r.byChannel[s.Channel()]; dup {
			continue
		}
		r.byChannel[s.Channel()] = s
		r.order = append(r.order, s.Channel())
	}
	return r
}

// Get returns the strategy for ch.
func (r *Registry) Get(ch domain.Channel) (Strategy, bool) {
	s, ok := r.byChannel[ch]
	return s, ok
}

// Enabled returns the enabled channels in rotation order.
func (r *Registry) Enabled() []domain.Channel {
	out := make([]domain.Channel, len(r.order))
	copy(out, r.order)
	return out
}

// RotateFrom returns the channels to try after failed, cyclically from the
// position after failed, skipping failed itself and the backup channel
// (backup codes are minted explicitly, never rotated into).
func (r *Registry) RotateFrom(failed domain.Channel) []domain.Channel {
	start := 0
	for i, ch := range r.order {
		if ch == failed {
			start = i + 1
			break
		}
	}
	var out []domain.Channel
	for i := 0; i < len(r.order); i++ {
		ch := r.order[(start+i)%len(r.order)]
		if ch == failed || ch == domain.ChannelBackup {
			continue
		}
		out = append(out, ch)
	}
	return out
}
