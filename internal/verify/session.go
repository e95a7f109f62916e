package verify

import (
	"sync"
	"time"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

// State is the position of a session in the verification flow.
type State int

const (
	StateAsking State = iota
	StateFinishing
	StateDone
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateAsking:
		return "asking"
	case StateFinishing:
		return "finishing"
	case StateDone:
		return "done"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Session is one member's attempt at the questionnaire.
type Session struct {
	ID        string
	GuildID   string
	Member    models.Member
	Spec      models.VerificationSpec
	Cursor    int
	Answers   []models.Answer
	State     State
	StartedAt time.Time

	mu       sync.Mutex
	deadline time.Time
	timer    *time.Timer
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID      string
	GuildID string
	Member  models.Member
	Cursor  int
	Answers []models.Answer
	State   State
}

// record stores the answer to the current question and moves to the next.
func (s *Session) record(label, value string) {
	s.Answers = append(s.Answers, models.Answer{Label: label, Value: value})
	s.Cursor++
}

// complete reports whether every question has been answered.
func (s *Session) complete() bool {
	return s.Cursor >= len(s.Spec.Questions)
}

func (s *Session) current() models.Question {
	return s.Spec.Questions[s.Cursor]
}

func memberKey(guildID, memberID string) string {
	return guildID + "/" + memberID
}
