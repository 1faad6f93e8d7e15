package auth

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Subscription is one open identity stream of a session token
type Subscription struct {
	token string
	ended chan struct{}
}

// Ended is closed when the session of the subscription ends
func (s *Subscription) Ended() <-chan struct{} {
	return s.ended
}

// Hub tells identity streams that their session ended
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
	gauge  prometheus.Gauge
}

func NewHub(gauge prometheus.Gauge) *Hub {
	return &Hub{
		subs:  make(map[string]map[*Subscription]struct{}),
		gauge: gauge,
	}
}

func (h *Hub) Subscribe(token string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		token: token,
		ended: make(chan struct{}),
	}
	if h.closed {
		close(sub.ended)
		return sub
	}

	if h.subs[token] == nil {
		h.subs[token] = make(map[*Subscription]struct{})
	}
	h.subs[token][sub] = struct{}{}
	h.gaugeAdd(1)
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tokenSubs, ok := h.subs[sub.token]
	if !ok {
		return
	}
	if _, ok := tokenSubs[sub]; !ok {
		return
	}
	delete(tokenSubs, sub)
	if len(tokenSubs) == 0 {
		delete(h.subs, sub.token)
	}
	h.gaugeAdd(-1)
}

// End notifies and drops every subscription of token, returning how many there were
func (h *Hub) End(token string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.end(token)
}

// Close ends all subscriptions, later ones end right away
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for token := range h.subs {
		h.end(token)
	}
}

func (h *Hub) end(token string) int {
	tokenSubs := h.subs[token]
	for sub := range tokenSubs {
		close(sub.ended)
	}
	delete(h.subs, token)
	h.gaugeAdd(-float64(len(tokenSubs)))
	return len(tokenSubs)
}

func (h *Hub) gaugeAdd(v float64) {
	if h.gauge != nil {
		h.gauge.Add(v)
	}
}
