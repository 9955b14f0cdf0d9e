// Package session holds per-user selection state.
package session

import (
	"errors"
	"fmt"
	"popmetrics/internal/engine"
	"popmetrics/internal/models"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrYearOutOfRange = errors.New("year out of range")
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrNotFound       = errors.New("session not found")
)

// Selection is the metric and year a user is looking at.
type Selection struct {
	Metric models.Metric
	Year   int
}

// Default is the selection a new session starts with.
func Default() Selection {
	return Selection{Metric: models.Metrics()[0], Year: models.DefaultYear}
}

func (s Selection) Validate() error {
	if !s.Metric.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, s.Metric)
	}
	if s.Year < models.MinYear || s.Year > models.MaxYear {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrYearOutOfRange, s.Year, models.MinYear, models.MaxYear)
	}
	return nil
}

func (s *Selection) SetYear(year int) error {
	next := *s
	next.Year = year
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

func (s *Selection) SetMetric(m models.Metric) error {
	next := *s
	next.Metric = m
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

// View filters table to the selected year. The metric does not narrow rows.
func (s Selection) View(table *engine.WideTable) engine.FilteredView {
	return engine.Filter(table, s.Year)
}

// Session is one user's dashboard state.
type Session struct {
	ID        uuid.UUID
	Selection Selection
}

func (s Session) State() models.SessionState {
	return models.SessionState{ID: s.ID.String(), Metric: s.Selection.Metric, Year: s.Selection.Year}
}

// Store keeps sessions in memory. Nothing survives a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

// Create starts a session with the default selection.
func (st *Store) Create() Session {
	s := &Session{ID: uuid.New(), Selection: Default()}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return *s
}

func (st *Store) Get(id uuid.UUID) (Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *s, nil
}

// Update applies fn to the session's selection atomically. The selection is
// left untouched when fn fails.
func (st *Store) Update(id uuid.UUID, fn func(*Selection) error) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := s.Selection
	if err := fn(&next); err != nil {
		return *s, err
	}
	s.Selection = next
	return *s, nil
}

func (st *Store) Delete(id uuid.UUID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
