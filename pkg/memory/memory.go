package memory

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
)

var ErrNoSession = goerr.New("no active research session")

// Memory is the locked slot of one session id. It holds at most one
// ResearchSession; starting a new one discards the previous one.
type Memory struct {
	store    *Store
	id       model.SessionID
	entry    *entry
	released bool
}

func (m *Memory) ID() model.SessionID { return m.id }

// Release unlocks the slot. Calling it twice is a no-op.
func (m *Memory) Release() {
	if m.released {
		return
	}
	m.released = true
	m.entry.mu.Unlock()
	m.store.release(m.id, m.entry)
}

func (m *Memory) HasActiveSession() bool {
	return m.entry.session != nil
}

// StartNewSession replaces any existing session with a fresh one
func (m *Memory) StartNewSession(subject string, category model.Category, rawContext string) {
	now := m.store.now()
	m.entry.session = &model.ResearchSession{
		Subject:     subject,
		Category:    category,
		RawContext:  rawContext,
		ExchangeLog: []model.Exchange{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GetResearchContext renders the stored research and earlier exchanges for a
// follow-up prompt. It returns an empty string without a session.
func (m *Memory) GetResearchContext() string {
	ssn := m.entry.session
	if ssn == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("Research subject: ")
	b.WriteString(ssn.Subject)
	b.WriteString("\n\n")
	b.WriteString(ssn.RawContext)

	if len(ssn.ExchangeLog) > 0 {
		b.WriteString("\n\nPrevious questions in this session:\n")
		for _, ex := range ssn.ExchangeLog {
			b.WriteString("Q: ")
			b.WriteString(ex.Question)
			b.WriteString("\nA: ")
			b.WriteString(ex.Answer)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// AddConversation appends an exchange to the active session
func (m *Memory) AddConversation(question, answer string) error {
	ssn := m.entry.session
	if ssn == nil {
		return goerr.Wrap(ErrNoSession, "failed to add conversation", goerr.V("session_id", m.id))
	}
	now := m.store.now()
	ssn.ExchangeLog = append(ssn.ExchangeLog, model.Exchange{
		Question: question,
		Answer:   answer,
		At:       now,
	})
	ssn.UpdatedAt = now
	return nil
}

func (m *Memory) ClearSession() {
	m.entry.session = nil
}

// Snapshot returns a deep copy of the session, or nil
func (m *Memory) Snapshot() *model.ResearchSession {
	return m.entry.session.Copy()
}

func (m *Memory) Status() Status {
	ssn := m.entry.session
	if ssn == nil {
		return Status{}
	}
	return Status{
		Active:    true,
		Subject:   ssn.Subject,
		Category:  ssn.Category.String(),
		Exchanges: len(ssn.ExchangeLog),
	}
}
