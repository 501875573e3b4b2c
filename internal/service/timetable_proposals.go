package service

import (
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable/internal/timetable"
)

type timetableProposal struct {
	ID          string
	TermID      string
	Grade       string
	Solution    timetable.Solution
	Duration    time.Duration
	GeneratedAt time.Time
	ExpiresAt   time.Time
}

// proposalStore holds unsaved solver results until they are saved or expire.
type proposalStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]timetableProposal),
	}
}

// Save stamps the proposal expiry and stores it.
func (s *proposalStore) Save(p timetableProposal) timetableProposal {
	p.ExpiresAt = p.GeneratedAt.Add(s.ttl)
	s.mu.Lock()
	s.items[p.ID] = p
	s.mu.Unlock()
	return p
}

func (s *proposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	p, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if s.now().After(p.ExpiresAt) {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return p, true
}

// Take removes a live proposal and returns it. Only one caller can take a given ID.
func (s *proposalStore) Take(id string) (timetableProposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return timetableProposal{}, false
	}
	delete(s.items, id)
	if s.now().After(p.ExpiresAt) {
		return timetableProposal{}, false
	}
	return p, true
}

// Restore puts back a taken proposal with its original expiry.
func (s *proposalStore) Restore(p timetableProposal) {
	s.mu.Lock()
	if _, exists := s.items[p.ID]; !exists {
		s.items[p.ID] = p
	}
	s.mu.Unlock()
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Sweep drops expired proposals and returns how many were removed.
func (s *proposalStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, p := range s.items {
		if now.After(p.ExpiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

func (s *proposalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
