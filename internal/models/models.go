// Package models holds the wire types exchanged with the quiz backend.
// Field names follow the backend contract verbatim, including its quirks
// (the "lifes" spelling, the inconsistent option id field).
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const wireTimeLayout = "2006-01-02 15:04:05"

// WireTime is a timestamp as the backend serializes it: "YYYY-MM-DD HH:MM:SS".
// It also accepts RFC 3339 input. A JSON null or empty string decodes to the
// zero value.
type WireTime struct {
	time.Time
}

func (t *WireTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{wireTimeLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t WireTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(wireTimeLayout))
}

// Envelope is the uniform backend response shape. The semantic Status field
// is authoritative for branching; the HTTP status is not, because some
// endpoints overload HTTP 200 with a non-success JSON status. The questions
// endpoint reports Success instead of Status.
type Envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success *bool           `json:"success,omitempty"`
}

// OK reports whether the envelope denotes success.
func (e *Envelope) OK() bool {
	if e.Success != nil {
		return *e.Success
	}
	return e.Status == 200 || e.Status == 201
}

// Game is one playthrough of a group's question set. It is owned and mutated
// exclusively by the server; the client holds a read-only cached copy that is
// stale immediately after any mutating call.
type Game struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	GroupID        string    `json:"group_id"`
	Status         string    `json:"status"`
	Grade          int       `json:"grade"`
	CreatedOn      WireTime  `json:"created_on"`
	StartedOn      WireTime  `json:"started_on"`
	FinishedOn     *WireTime `json:"finished_on"`
	Lives          int       `json:"lifes"`
	TotalAnswered  int       `json:"total_answered"`
	TotalQuestions int       `json:"total_questions"`
}

// Finished reports whether the session has ended. A non-null finished_on is
// the sole authoritative completion signal; local counters never are, since
// the server may close a session early when lives run out.
func (g *Game) Finished() bool {
	return g != nil && g.FinishedOn != nil && !g.FinishedOn.IsZero()
}

// Duration returns the server-recorded playthrough duration, or zero while
// the session is still open.
func (g *Game) Duration() time.Duration {
	if !g.Finished() || g.StartedOn.IsZero() {
		return 0
	}
	return g.FinishedOn.Sub(g.StartedOn.Time)
}

// Question types as tagged by the backend. Only multiple_option is exercised
// by the scoring flow.
const (
	QuestionTypeMultipleOption = "multiple_option"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeFillInBlank    = "fill_in_the_blank"
)

// Question is immutable for the duration of a session.
type Question struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	TipNote     string           `json:"tip_note"`
	Feedback    string           `json:"feedback"`
	Lang        string           `json:"lang"`
	CreatedOn   WireTime         `json:"created_on"`
	Options     []QuestionOption `json:"options"`
}

// OptionByID returns the option whose id matches, accepting either id field.
func (q *Question) OptionByID(id string) *QuestionOption {
	for i := range q.Options {
		if q.Options[i].OptionID() == id {
			return &q.Options[i]
		}
	}
	return nil
}

// QuestionOption carries its identity in either "id" or "option_id" depending
// on which endpoint produced it. Use OptionID, never the raw fields.
type QuestionOption struct {
	ID        string `json:"id,omitempty"`
	AltID     string `json:"option_id,omitempty"`
	Text      string `json:"text_option"`
	IsCorrect int    `json:"is_correct"`
}

// OptionID returns the option's identity regardless of which field the
// backend populated.
func (o QuestionOption) OptionID() string {
	if o.ID != "" {
		return o.ID
	}
	return o.AltID
}

// Answer is a server-side slot for one user's attempt at one question in one
// session. It is opened empty by a probe and finalized with a chosen option;
// once finalized it is immutable.
type Answer struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"group_id"`
	UserID     string    `json:"user_id"`
	QuestionID string    `json:"question_id"`
	QOptionID  string    `json:"q_option_id"`
	IsCorrect  int       `json:"is_correct"`
	StartedOn  WireTime  `json:"started_on"`
	FinishedOn *WireTime `json:"finished_on"`
	GameID     string    `json:"game_id"`
	IsActive   int       `json:"is_active"`
}

// Correct reports whether the finalized answer was scored correct by the
// server. The server's verdict is authoritative; the client never self-scores
// from option flags.
func (a *Answer) Correct() bool {
	return a != nil && a.IsCorrect == 1
}

// Finalized reports whether the slot has been submitted.
func (a *Answer) Finalized() bool {
	return a != nil && a.FinishedOn != nil && !a.FinishedOn.IsZero()
}

// Group is a question bank joinable by code.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Status      string   `json:"status"`
	CreatedBy   string   `json:"created_by"`
	CreatedOn   WireTime `json:"created_on"`
}

// AuthUser is the persisted authenticated-user descriptor. It is loaded once
// at startup and passed into the game engine at construction; the engine
// treats it as read-only.
type AuthUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Valid reports whether a user descriptor is present.
func (u AuthUser) Valid() bool {
	return u.ID != ""
}
