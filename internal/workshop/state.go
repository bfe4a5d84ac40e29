// Package workshop tracks each user's generation inputs and the
// idle → requesting → succeeded|failed cycle around a single provider call.
package workshop

import (
	"context"
	"errors"
	"sync"
	"time"

	"mascot-factory/internal/mascot"
)

var ErrBusy = errors.New("a mascot is already being generated")

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRequesting Phase = "requesting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

type State struct {
	Photo           string
	Style           mascot.Style
	ClothingDetails string
	PartyTheme      string

	Phase  Phase
	Result string
	Err    error

	UpdatedAt time.Time

	attempt uint64
}

// Ready reports whether the mandatory inputs are present.
func (s State) Ready() bool {
	return s.Photo != "" && s.Style.Valid()
}

// Ticket identifies one in-flight attempt.
type Ticket struct {
	Key     string
	attempt uint64

	Photo           string
	Style           mascot.Style
	ClothingDetails string
	PartyTheme      string
}

type Generator interface {
	RequestGeneration(ctx context.Context, photoDataURL string, style mascot.Style, clothingDetails, partyTheme string) (string, error)
}

type Store struct {
	mu  sync.Mutex
	m   map[string]*State
	now func() time.Time
}

func NewStore() *Store {
	return &Store{m: make(map[string]*State), now: time.Now}
}

func (s *Store) Get(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.getOrCreateLocked(key)
}

// Update edits the inputs. It is refused while a request is in flight.
func (s *Store) Update(key string, fn func(*State)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(key)
	if st.Phase == PhaseRequesting {
		return *st, ErrBusy
	}
	if fn != nil {
		fn(st)
	}
	st.UpdatedAt = s.now()
	return *st, nil
}

// Reset drops inputs and result. A request still in flight is orphaned and
// its result will be discarded by Finish.
func (s *Store) Reset(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(key)
	attempt := st.attempt + 1
	*st = State{Phase: PhaseIdle, UpdatedAt: s.now(), attempt: attempt}
	return *st
}

// Begin moves the user into PhaseRequesting. The previous result is cleared.
func (s *Store) Begin(key string) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(key)
	if st.Phase == PhaseRequesting {
		return Ticket{}, ErrBusy
	}
	if st.Photo == "" {
		return Ticket{}, mascot.ErrMissingPhoto
	}
	if !st.Style.Valid() {
		return Ticket{}, mascot.ErrInvalidStyle
	}

	st.attempt++
	st.Phase = PhaseRequesting
	st.Result = ""
	st.Err = nil
	st.UpdatedAt = s.now()

	return Ticket{
		Key:             key,
		attempt:         st.attempt,
		Photo:           st.Photo,
		Style:           st.Style,
		ClothingDetails: st.ClothingDetails,
		PartyTheme:      st.PartyTheme,
	}, nil
}

// Finish records the outcome of t. It returns false when the attempt was
// superseded by a Reset, in which case nothing changes.
func (s *Store) Finish(t Ticket, result string, err error) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(t.Key)
	if st.attempt != t.attempt || st.Phase != PhaseRequesting {
		return *st, false
	}

	if err != nil {
		st.Phase = PhaseFailed
		st.Err = err
		st.Result = ""
	} else {
		st.Phase = PhaseSucceeded
		st.Result = result
		st.Err = nil
	}
	st.UpdatedAt = s.now()
	return *st, true
}

// Run performs one full attempt for key with gen. ErrBusy and missing
// inputs are returned as errors; a provider failure is reported through
// State.Err with Phase == PhaseFailed.
func (s *Store) Run(ctx context.Context, key string, gen Generator) (State, error) {
	ticket, err := s.Begin(key)
	if err != nil {
		return s.Get(key), err
	}

	result, genErr := gen.RequestGeneration(ctx, ticket.Photo, ticket.Style, ticket.ClothingDetails, ticket.PartyTheme)
	st, _ := s.Finish(ticket, result, genErr)
	return st, nil
}

// Prune forgets idle users whose state is older than maxAge.
func (s *Store) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	n := 0
	for key, st := range s.m {
		if st.Phase == PhaseRequesting || st.UpdatedAt.After(cutoff) {
			continue
		}
		delete(s.m, key)
		n++
	}
	return n
}

func (s *Store) getOrCreateLocked(key string) *State {
	if st, ok := s.m[key]; ok {
		return st
	}
	st := &State{Phase: PhaseIdle, UpdatedAt: s.now()}
	s.m[key] = st
	return st
}
