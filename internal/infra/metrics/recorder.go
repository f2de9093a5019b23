package metrics

import (
	"sync"
	"time"
)

const (
	defaultCapacity = 1000
	statsWindow     = time.Hour
)

// RequestMetric is one generation-request observation. UserID may be
// "unknown" for failures recorded before a caller identity is established.
type RequestMetric struct {
	UserID     string        `json:"user_id"`
	Type       string        `json:"type"`
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration"`
	Status     string        `json:"status"` // success | error
	Error      string        `json:"error,omitempty"`
	Subject    string        `json:"subject,omitempty"`
	Difficulty string        `json:"difficulty,omitempty"`
	Count      int           `json:"count,omitempty"`
}

// Stats summarizes the last hour of recorded metrics.
type Stats struct {
	TotalRequests int     `json:"total_requests"`
	SuccessCount  int     `json:"success_count"`
	ErrorCount    int     `json:"error_count"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs int     `json:"avg_duration_ms"`
}

// Recorder keeps the last N metrics in an append-only ring buffer owned by
// the process; oldest entries are evicted on overflow and nothing survives
// a restart.
type Recorder struct {
	mu   sync.Mutex
	buf  []RequestMetric
	cap  int
	next int
	full bool

	now func() time.Time
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{
		buf: make([]RequestMetric, capacity),
		cap: capacity,
		now: time.Now,
	}
}

// Record appends m, evicting the oldest entry when the buffer is full.
func (r *Recorder) Record(m RequestMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = m
	r.next++
	if r.next == r.cap {
		r.next = 0
		r.full = true
	}
}

// Metrics returns recorded entries in insertion order, optionally filtered
// by user id ("" returns all).
func (r *Recorder) Metrics(userID string) []RequestMetric {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RequestMetric, 0, r.len())
	for _, m := range r.ordered() {
		if userID == "" || m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// Stats aggregates entries from the last hour, optionally per user.
func (r *Recorder) Stats(userID string) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-statsWindow)
	var s Stats
	var totalDur time.Duration
	for _, m := range r.ordered() {
		if userID != "" && m.UserID != userID {
			continue
		}
		if !m.Timestamp.After(cutoff) {
			continue
		}
		s.TotalRequests++
		totalDur += m.Duration
		if m.Status == "success" {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}
	if s.TotalRequests > 0 {
		s.SuccessRate = float64(s.SuccessCount) / float64(s.TotalRequests) * 100
		s.AvgDurationMs = int((totalDur / time.Duration(s.TotalRequests)).Milliseconds())
	}
	return s
}

func (r *Recorder) len() int {
	if r.full {
		return r.cap
	}
	return r.next
}

// ordered returns buffer contents oldest-first. Caller must hold mu.
func (r *Recorder) ordered() []RequestMetric {
	if !r.full {
		return r.buf[:r.next]
	}
	out := make([]RequestMetric, 0, r.cap)
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}
