package stream

import (
	"sort"
	"sync"
	"time"
)

// Observer is told about stream activity. metrics.Registry implements it.
type Observer interface {
	SetActiveStreams(n int)
	ObservePush(pushType string)
}

// SessionInfo describes one open stream.
type SessionInfo struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Remote     string    `json:"remote"`
	Subscribed int       `json:"subscribed"`
	IDs        []string  `json:"ids"`
	Pushes     int64     `json:"pushes"`
	Since      time.Time `json:"since"`
}

type registryEntry struct {
	info SessionInfo
	conn Conn
}

// Registry tracks open sessions so ops can list them and shutdown can close
// them.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	observer Observer
}

// NewRegistry creates a registry. observer may be nil.
func NewRegistry(observer Observer) *Registry {
	return &Registry{
		sessions: make(map[string]*registryEntry),
		observer: observer,
	}
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = &registryEntry{
		info: SessionInfo{
			ID:     s.id,
			Path:   s.cfg.Protocol.Path,
			Remote: s.remote,
			IDs:    []string{},
			Since:  s.started,
		},
		conn: s.conn,
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.SetActiveStreams(n)
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.SetActiveStreams(n)
	}
}

func (r *Registry) setSubscriptions(id string, ids []string) {
	cp := make([]string, len(ids))
	copy(cp, ids)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.info.Subscribed = len(cp)
		e.info.IDs = cp
	}
}

func (r *Registry) observePush(id, pushType string) {
	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.info.Pushes++
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.ObservePush(pushType)
	}
}

// Active returns the number of open sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns copies of the open sessions, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, e := range r.sessions {
		info := e.info
		info.IDs = make([]string, len(e.info.IDs))
		copy(info.IDs, e.info.IDs)
		out = append(out, info)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

// CloseAll closes every open connection. Their sessions exit on the next
// receive or send.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.sessions))
	for _, e := range r.sessions {
		conns = append(conns, e.conn)
	}
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
