package server

import (
	"sync"

	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// router is the notify.Sink of one hosted federation. It hands each callback
// to the session the destination federate joined through.
//
// A federate's handle is only known once Join returns, so callbacks decided
// for it before its session attaches are held and replayed on attach.
type router struct {
	mu       sync.Mutex
	sessions map[types.FederateHandle]*Session
	early    map[types.FederateHandle][]notify.Notification
	gone     map[types.FederateHandle]bool
	logger   logger.Logger
}

func newRouter(log logger.Logger) *router {
	return &router{
		sessions: make(map[types.FederateHandle]*Session),
		early:    make(map[types.FederateHandle][]notify.Notification),
		gone:     make(map[types.FederateHandle]bool),
		logger:   log,
	}
}

func (r *router) Send(to types.FederateHandle, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[to]; ok {
		s.deliver(n)
		return
	}
	if r.gone[to] {
		r.logger.Debugw("Dropping callback for departed federate", "federate", to, "kind", n.Kind())
		return
	}
	r.early[to] = append(r.early[to], n)
}

// attach binds h to s and replays anything decided for h before.
func (r *router) attach(h types.FederateHandle, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[h] = s
	for _, n := range r.early[h] {
		s.deliver(n)
	}
	delete(r.early, h)
}

// detach unbinds h. Later callbacks for h are dropped.
func (r *router) detach(h types.FederateHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, h)
	delete(r.early, h)
	r.gone[h] = true
}
