package relay

// registry is the set of live subscribers, keyed by connection identity. It is
// owned by the relay run loop and must not be touched from other goroutines.
type registry struct {
	subscribers map[Conn]*subscriber
}

func newRegistry() *registry {
	return &registry{subscribers: make(map[Conn]*subscriber)}
}

// add returns false if conn is already registered.
func (r *registry) add(s *subscriber) bool {
	if _, exists := r.subscribers[s.conn]; exists {
		return false
	}
	r.subscribers[s.conn] = s
	return true
}

func (r *registry) remove(conn Conn) (*subscriber, bool) {
	s, ok := r.subscribers[conn]
	if ok {
		delete(r.subscribers, conn)
	}
	return s, ok
}

// forEachOpen calls fn for every subscriber in the OPEN state and returns how
// many were skipped because they were closing or closed.
func (r *registry) forEachOpen(fn func(*subscriber)) (skipped int) {
	for _, s := range r.subscribers {
		if s.state() != stateOpen {
			skipped++
			continue
		}
		fn(s)
	}
	return skipped
}

func (r *registry) len() int {
	return len(r.subscribers)
}

func (r *registry) clear() []*subscriber {
	all := make([]*subscriber, 0, len(r.subscribers))
	for conn, s := range r.subscribers {
		all = append(all, s)
		delete(r.subscribers, conn)
	}
	return all
}
