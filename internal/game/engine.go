// Package game drives one quiz session from "not started" through "finished".
// The server is the sole source of truth for score, lives and completion; the
// engine only holds a cached snapshot that it replaces after every mutating
// call. Transitions happen on a single caller flow: the engine is not meant
// to be driven from multiple goroutines, though its read accessors are safe
// to call from a display ticker.
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmorales/periogame/internal/apperr"
	"github.com/dmorales/periogame/internal/backend"
	"github.com/dmorales/periogame/internal/logger"
	"github.com/dmorales/periogame/internal/models"
)

// Phase is the lifecycle state of a session as seen by the client.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseAwaitingStart
	PhaseInProgress
	PhaseAwaitingContinue
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseAwaitingStart:
		return "awaiting_start"
	case PhaseInProgress:
		return "in_progress"
	case PhaseAwaitingContinue:
		return "awaiting_continue"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ErrSessionNotClosed reports the inconsistent state where every question has
// been answered but the server has not set the session's completion time.
// Callers should surface it as a warning, not a crash; the engine never
// invents a transition to Finished for it.
var ErrSessionNotClosed = errors.New("all questions answered but session not closed by server")

// Engine is the session state machine. It owns the current question index and
// phase, caches open answer-slot ids per question so a question is never
// probed twice in one session, and re-fetches the authoritative snapshot
// after every mutating call.
type Engine struct {
	api  backend.GameAPI
	user models.AuthUser
	log  *logger.Logger

	mu         sync.RWMutex
	phase      Phase
	gameID     string
	snapshot   *models.Game
	questions  []models.Question
	index      int
	slots      map[string]string // question id -> open answer slot id
	lastAnswer *models.Answer
}

// New creates an engine for an existing session. The authenticated-user
// descriptor is required: without it the session cannot be started at all.
func New(api backend.GameAPI, user models.AuthUser, gameID string) (*Engine, error) {
	if !user.Valid() {
		return nil, apperr.NewAuthError("no authenticated user")
	}
	if gameID == "" {
		return nil, apperr.NewValidationError("game_id", "cannot be empty")
	}
	return &Engine{
		api:    api,
		user:   user,
		gameID: gameID,
		log:    logger.Default().WithPrefix("game").WithField("game_id", gameID),
		phase:  PhaseNotStarted,
		index:  -1,
		slots:  map[string]string{},
	}, nil
}

// Load fetches the initial session snapshot and positions the phase: Finished
// when the server already closed the session, AwaitingStart otherwise.
func (e *Engine) Load(ctx context.Context) error {
	snap, err := e.api.GetGame(ctx, e.gameID)
	if err != nil {
		e.log.Error("failed to load session: %v", err)
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot = snap
	if snap.Finished() {
		e.phase = PhaseFinished
	} else {
		e.phase = PhaseAwaitingStart
	}
	e.log.Debug("session loaded: phase=%s grade=%d lives=%d", e.phase, snap.Grade, snap.Lives)
	return nil
}

// Start marks the session started on the server, loads the question set
// (once per session lifetime) and scans for the first unanswered question.
// On any failure the phase is unchanged so the user can retry.
func (e *Engine) Start(ctx context.Context) error {
	if p := e.Phase(); p != PhaseAwaitingStart {
		return apperr.NewValidationError("phase", "session cannot start from "+p.String())
	}

	snap, err := e.api.StartGame(ctx, e.gameID, e.user.ID)
	if err != nil {
		e.log.Error("failed to start session: %v", err)
		return err
	}
	e.replaceSnapshot(snap)
	if snap.Finished() {
		e.setPhase(PhaseFinished)
		return nil
	}

	if e.questions == nil {
		questions, err := e.api.GetGroupQuestions(ctx, snap.GroupID)
		if err != nil {
			e.log.Error("failed to load question set: %v", err)
			return err
		}
		e.mu.Lock()
		e.questions = questions
		e.mu.Unlock()
		e.log.Info("question set loaded: %d questions", len(questions))
	}

	return e.position(ctx, 0, PhaseAwaitingStart)
}

// Submit finalizes the current question's open slot with the chosen option,
// then refreshes the snapshot. On finalize failure the phase, index and slot
// id are untouched so the same submission can simply be retried.
func (e *Engine) Submit(ctx context.Context, optionID string) (*models.Answer, error) {
	if p := e.Phase(); p != PhaseInProgress {
		return nil, apperr.NewValidationError("phase", "no question awaiting an answer")
	}
	if optionID == "" {
		return nil, apperr.NewValidationError("option", "no option selected")
	}

	q, ok := e.Current()
	if !ok {
		return nil, apperr.NewValidationError("question", "no current question")
	}
	if q.OptionByID(optionID) == nil {
		return nil, apperr.NewValidationError("option", "option does not belong to the current question")
	}

	e.mu.RLock()
	slotID, held := e.slots[q.ID]
	e.mu.RUnlock()
	if !held {
		return nil, apperr.NewValidationError("answer", "no open answer slot for current question")
	}

	ans, err := e.api.FinalizeAnswer(ctx, e.answerKey(q.ID), slotID, optionID)
	if err != nil {
		// Not recorded as far as we know; keep the slot for a retry.
		e.log.Error("failed to finalize answer: %v", err)
		return nil, err
	}

	e.mu.Lock()
	delete(e.slots, q.ID)
	e.lastAnswer = ans
	e.phase = PhaseAwaitingContinue
	e.mu.Unlock()
	e.log.Info("answer finalized: question=%s correct=%v", q.ID, ans.Correct())

	// Lives, grade and completion only ever come from a fresh snapshot. A
	// failed refresh is not fatal here: the answer is recorded and the next
	// continue refreshes again.
	if err := e.refresh(ctx); err != nil {
		e.log.Warn("snapshot refresh after finalize failed: %v", err)
	}
	return ans, nil
}

// Continue advances past a finalized answer: it clears the per-question
// feedback, refreshes the snapshot and either finishes (completion always
// wins) or scans forward for the next unanswered question.
func (e *Engine) Continue(ctx context.Context) error {
	if p := e.Phase(); p != PhaseAwaitingContinue {
		return apperr.NewValidationError("phase", "nothing to continue from")
	}

	if err := e.refresh(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.lastAnswer = nil
	next := e.index + 1
	e.mu.Unlock()

	if e.Snapshot().Finished() {
		e.setPhase(PhaseFinished)
		return nil
	}
	return e.position(ctx, next, PhaseAwaitingContinue)
}

// position runs the resume scan from the given index, moving to InProgress at
// the first unanswered question. When the scan exhausts the set it defers to
// the snapshot's completion time; if that is still unset the session is in an
// inconsistent state that is reported, never guessed around. On scan failure
// the engine stays in fallback so the triggering action can be retried.
func (e *Engine) position(ctx context.Context, from int, fallback Phase) error {
	idx, err := e.scanFrom(ctx, from)
	if err != nil {
		e.setPhase(fallback)
		return err
	}
	if idx >= 0 {
		e.mu.Lock()
		e.index = idx
		e.phase = PhaseInProgress
		e.mu.Unlock()
		e.log.Debug("positioned at question %d/%d", idx+1, len(e.questions))
		return nil
	}

	// Nothing left unanswered: only the server may declare the session over.
	if err := e.refresh(ctx); err != nil {
		e.setPhase(fallback)
		return err
	}
	if e.Snapshot().Finished() {
		e.setPhase(PhaseFinished)
		return nil
	}
	e.setPhase(fallback)
	e.log.Warn("no unanswered question remains but the server has not closed the session")
	return ErrSessionNotClosed
}

// scanFrom probes questions strictly in order starting at from, returning the
// index of the first one not already answered, or -1 when none remains.
// Probing has server side effects, so a question whose slot id is already
// held is never probed again, and probes never run in parallel. Any failure
// other than "already answered" halts the scan: skipping a question on an
// ambiguous error would let a participant bypass content.
func (e *Engine) scanFrom(ctx context.Context, from int) (int, error) {
	for i := from; i < len(e.questions); i++ {
		q := e.questions[i]

		e.mu.RLock()
		_, held := e.slots[q.ID]
		e.mu.RUnlock()
		if held {
			return i, nil
		}

		ans, err := e.api.ProbeAnswer(ctx, e.answerKey(q.ID))
		if err != nil {
			if apperr.IsAlreadyAnswered(err) {
				continue
			}
			e.log.Error("probe failed at question %d: %v", i, err)
			return 0, err
		}

		e.mu.Lock()
		e.slots[q.ID] = ans.ID
		e.mu.Unlock()
		return i, nil
	}
	return -1, nil
}

// refresh replaces the cached snapshot with a fresh one. Replacement is
// wholesale: lives, grade and completion are always taken from the latest
// snapshot, never computed locally.
func (e *Engine) refresh(ctx context.Context) error {
	snap, err := e.api.GetGame(ctx, e.gameID)
	if err != nil {
		e.log.Error("snapshot refresh failed: %v", err)
		return err
	}
	e.replaceSnapshot(snap)
	return nil
}

func (e *Engine) answerKey(questionID string) backend.AnswerKey {
	return backend.AnswerKey{
		GroupID:    e.Snapshot().GroupID,
		UserID:     e.user.ID,
		QuestionID: questionID,
		GameID:     e.gameID,
	}
}

// replaceSnapshot installs a fresh snapshot. Completion takes priority over
// every other transition: if the server reports the session closed, the
// engine is Finished no matter what flow was in progress.
func (e *Engine) replaceSnapshot(snap *models.Game) {
	e.mu.Lock()
	e.snapshot = snap
	if snap.Finished() {
		e.phase = PhaseFinished
	}
	e.mu.Unlock()
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// Snapshot returns the cached session snapshot. It is stale the moment any
// mutating call happens; display only.
func (e *Engine) Snapshot() *models.Game {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Current returns the question at the engine's index, if one is positioned.
func (e *Engine) Current() (*models.Question, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index < 0 || e.index >= len(e.questions) {
		return nil, false
	}
	return &e.questions[e.index], true
}

// Index returns the zero-based current question index, -1 before positioning.
func (e *Engine) Index() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index
}

// TotalQuestions returns the size of the loaded question set.
func (e *Engine) TotalQuestions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.questions)
}

// LastAnswer returns the most recently finalized answer while feedback is
// being shown, nil otherwise.
func (e *Engine) LastAnswer() *models.Answer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastAnswer
}

// Elapsed returns the derived play duration for display. While the session
// runs it is computed against the wall clock; once finished it is the fixed
// server-recorded duration.
func (e *Engine) Elapsed() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snapshot == nil || e.snapshot.StartedOn.IsZero() {
		return 0
	}
	if e.snapshot.Finished() {
		return e.snapshot.Duration()
	}
	return time.Since(e.snapshot.StartedOn.Time)
}
