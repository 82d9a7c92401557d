// Package hoststat keeps an in-memory health score per forward hop, as an
// exponentially weighted moving average of exchange outcomes (1 success,
// 0 failure).
package hoststat

import (
	"sync"
	"time"

	"github.com/lifenjoiner/ewma"
)

// The EWMA window size.
const ewmaSlide = 10

// Stat is one host's score.
type Stat struct {
	Value float64
	Count int
	Time  time.Time
	ewma  *ewma.EWMA
}

// Stats scores hosts by name.
type Stats struct {
	mu       sync.RWMutex
	stats    map[string]*Stat
	Validity time.Duration // 0 keeps stats forever
}

// New returns an empty Stats.
func New() *Stats {
	return &Stats{stats: make(map[string]*Stat)}
}

// Get returns a copy of the host's Stat; a never-seen host has Count 0.
func (s *Stats) Get(h string) (stat Stat) {
	s.mu.RLock()
	st := s.stats[h]
	if st != nil {
		stat = *st
	}
	s.mu.RUnlock()
	return
}

// Update folds a new outcome into the host's score. A stat older than
// Validity starts over.
func (s *Stats) Update(h string, v float64) {
	s.mu.Lock()
	st := s.stats[h]
	if st == nil || (s.Validity > 0 && time.Since(st.Time) > s.Validity) {
		st = &Stat{}
		s.stats[h] = st
	}
	if st.ewma == nil {
		st.ewma = ewma.NewMovingAverage(ewmaSlide)
	}
	st.ewma.Add(v)
	st.Count++
	st.Value = st.ewma.Value()
	st.Time = time.Now()
	s.mu.Unlock()
}

// Cleanup drops expired stats.
func (s *Stats) Cleanup() {
	if s.Validity <= 0 {
		return
	}
	s.mu.Lock()
	for h, st := range s.stats {
		if time.Since(st.Time) > s.Validity {
			delete(s.stats, h)
		}
	}
	s.mu.Unlock()
}

// Len is the number of hosts currently tracked.
func (s *Stats) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stats)
}
