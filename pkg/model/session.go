package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionID string

// DefaultSessionID is used by single-user surfaces such as the interactive CLI
const DefaultSessionID SessionID = "default"

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func (id SessionID) String() string {
	return string(id)
}

// Exchange is a single follow-up question and its answer
type Exchange struct {
	Question string
	Answer   string
	At       time.Time
}

// ResearchSession holds the most recent completed research pass of a caller
type ResearchSession struct {
	Subject     string
	Category    Category
	RawContext  string
	ExchangeLog []Exchange

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Copy returns a deep copy so that callers can inspect a session without
// holding its lock.
func (s *ResearchSession) Copy() *ResearchSession {
	if s == nil {
		return nil
	}
	c := *s
	c.ExchangeLog = append([]Exchange(nil), s.ExchangeLog...)
	return &c
}
