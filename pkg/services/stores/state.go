package stores

import (
	"context"
	"time"

	"github.com/liut/beeview/pkg/models/aigc"
	"github.com/liut/beeview/pkg/settings"
)

// State is the per-session view state: pagination cursor, selection and display zone.
type State struct {
	ID         string `json:"id"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	SelectedID int64  `json:"selectedID,omitempty"`
	Detail     string `json:"detail,omitempty"`
	TimeZone   string `json:"tz,omitempty"`
}

// NewState returns a cursor at page 1 of 1.
func NewState(id string) *State {
	return &State{ID: id, Page: 1, TotalPages: 1}
}

// Clamp forces the cursor into [1, TotalPages].
func (s *State) Clamp() {
	if s.TotalPages < 1 {
		s.TotalPages = 1
	}
	s.Page = max(1, min(s.Page, s.TotalPages))
}

// Step moves the cursor by dir pages, clamped.
func (s *State) Step(dir int) {
	s.Page += dir
	s.Clamp()
}

// CanPrev ...
func (s *State) CanPrev() bool { return s.Page > 1 }

// CanNext ...
func (s *State) CanNext() bool { return s.Page < s.TotalPages }

// Unselect clears the detail selection.
func (s *State) Unselect() {
	s.SelectedID = 0
	s.Detail = ""
}

// Location is the display zone of this session.
func (s *State) Location() *time.Location {
	return settings.Location(s.TimeZone)
}

// History is the chat turn log of one session.
type History interface {
	AddHistory(ctx context.Context, item *aigc.HistoryItem) error
	ListHistory(ctx context.Context) (aigc.HistoryItems, error)
	ClearHistory(ctx context.Context) error
}

// Sessions keeps State and History keyed by session id.
type Sessions interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
	History(id string) History
}

// NewSessions returns the backend named by kind: "redis" or "memory".
func NewSessions(kind string) Sessions {
	if kind == "redis" {
		return NewRedisSessions(SgtRC())
	}
	return NewMemorySessions()
}
