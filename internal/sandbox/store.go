// Package sandbox is a local stand-in for the Serious Game backend: the same
// endpoints and envelope over a SQLite database, with the server-side rules
// (scoring, lives, session closing) the real backend owns. It exists for
// development and end-to-end tests; it is not a product backend.
package sandbox

import (
	"context"
	"crypto/rand"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dmorales/periogame/internal/logger"
	"github.com/dmorales/periogame/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Domain outcomes the HTTP layer translates into envelopes.
var (
	ErrActiveGameExists = errors.New("an active game already exists for this user and group")
	ErrQuestionAnswered = errors.New("question already answered in this game")
	ErrSlotFinalized    = errors.New("answer slot already finalized")
	ErrGameFinished     = errors.New("game is already finished")
)

const (
	startingLives = 3
	pointsPerHit  = 100
)

const timeLayout = "2006-01-02 15:04:05"

type Store struct {
	*sql.DB
	log *logger.Logger
}

// Open opens (creating if needed) the sandbox database and applies migrations.
func Open(path string) (*Store, error) {
	log := logger.Default().WithPrefix("sandbox.store")

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL", path)
	log.Info("opening sandbox database: %s", path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open database: %v", err)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1) // SQLite best practice for single writer

	s := &Store{DB: sqlDB, log: log}
	if err := s.applyMigrations(context.Background()); err != nil {
		log.Error("failed to apply migrations: %v", err)
		return nil, err
	}
	log.Debug("sandbox database ready")
	return s, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		version := entry.Name()
		applied, err := s.isMigrationApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + version)
		if err != nil {
			return err
		}
		s.log.Info("applying migration: %s", version)
		if _, err := s.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := s.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var v string
	err := s.QueryRowContext(ctx, `SELECT version FROM schema_migrations WHERE version = ?`, version).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func nowWire() string {
	return time.Now().UTC().Format(timeLayout)
}

func wireTime(s string) models.WireTime {
	t, _ := time.Parse(timeLayout, s)
	return models.WireTime{Time: t}
}

func wireTimePtr(ns sql.NullString) *models.WireTime {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := wireTime(ns.String)
	return &t
}

// CreateGroup inserts a group, filling id and created_on when absent.
func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = newID()
	}
	if g.Status == "" {
		g.Status = "active"
	}
	created := nowWire()
	g.CreatedOn = wireTime(created)

	_, err := s.ExecContext(ctx, `
INSERT INTO groups (id, name, description, code, status, created_by, created_on)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, g.ID, g.Name, g.Description, g.Code, g.Status, g.CreatedBy, created)
	if err != nil {
		s.log.Error("failed to insert group: %v", err)
	}
	return err
}

// GetGroupByCode returns the group with the given join code, or sql.ErrNoRows.
func (s *Store) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	return s.getGroup(ctx, "code", code)
}

// GetGroup returns the group with the given id, or sql.ErrNoRows.
func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return s.getGroup(ctx, "id", id)
}

func (s *Store) getGroup(ctx context.Context, column, value string) (*models.Group, error) {
	var (
		g       models.Group
		created string
	)
	err := s.QueryRowContext(ctx, fmt.Sprintf(`
SELECT id, name, description, code, status, created_by, created_on
FROM groups
WHERE %s = ?
`, column), value).Scan(&g.ID, &g.Name, &g.Description, &g.Code, &g.Status, &g.CreatedBy, &created)
	if err != nil {
		return nil, err
	}
	g.CreatedOn = wireTime(created)
	return &g, nil
}

// HasGroups reports whether any group exists, used to decide seeding.
func (s *Store) HasGroups(ctx context.Context) (bool, error) {
	var n int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertQuestion inserts a question and its options at the given position in
// the group's ordering, filling ids when absent.
func (s *Store) InsertQuestion(ctx context.Context, groupID string, position int, q *models.Question) error {
	if q.ID == "" {
		q.ID = newID()
	}
	if q.Type == "" {
		q.Type = models.QuestionTypeMultipleOption
	}
	if q.Lang == "" {
		q.Lang = "en"
	}
	created := nowWire()
	q.CreatedOn = wireTime(created)

	return s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO questions (id, group_id, position, title, description, type, tip_note, feedback, lang, created_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, q.ID, groupID, position, q.Title, q.Description, q.Type, q.TipNote, q.Feedback, q.Lang, created)
		if err != nil {
			return err
		}
		for i := range q.Options {
			opt := &q.Options[i]
			if opt.OptionID() == "" {
				opt.ID = newID()
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO question_options (id, question_id, text_option, is_correct)
VALUES (?, ?, ?, ?)
`, opt.OptionID(), q.ID, opt.Text, opt.IsCorrect); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListGroupQuestions returns the group's questions in their fixed order,
// options included. Option identity is exposed under "option_id" here, which
// is one side of the backend's inconsistent option id naming.
func (s *Store) ListGroupQuestions(ctx context.Context, groupID string) ([]models.Question, error) {
	query, args, err := sqlBuilder.
		Select("id", "title", "description", "type", "tip_note", "feedback", "lang", "created_on").
		From("questions").
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var (
			q       models.Question
			created string
		)
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Type, &q.TipNote, &q.Feedback, &q.Lang, &created); err != nil {
			return nil, err
		}
		q.CreatedOn = wireTime(created)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		opts, err := s.listOptions(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = opts
	}
	return questions, nil
}

func (s *Store) listOptions(ctx context.Context, questionID string) ([]models.QuestionOption, error) {
	rows, err := s.QueryContext(ctx, `
SELECT id, text_option, is_correct
FROM question_options
WHERE question_id = ?
ORDER BY rowid ASC
`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []models.QuestionOption
	for rows.Next() {
		var o models.QuestionOption
		if err := rows.Scan(&o.AltID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// CountQuestions returns the size of a group's question set.
func (s *Store) CountQuestions(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE group_id = ?`, groupID).Scan(&n)
	return n, err
}

// CreateGame creates a fresh session for the user in the group. A user may
// hold at most one unfinished game per group.
func (s *Store) CreateGame(ctx context.Context, userID, groupID string) (*models.Game, error) {
	var existing string
	err := s.QueryRowContext(ctx, `
SELECT id FROM games WHERE user_id = ? AND group_id = ? AND finished_on IS NULL
`, userID, groupID).Scan(&existing)
	if err == nil {
		return nil, ErrActiveGameExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	id := newID()
	if _, err := s.ExecContext(ctx, `
INSERT INTO games (id, user_id, group_id, status, grade, lifes, created_on)
VALUES (?, ?, ?, 'created', 0, ?, ?)
`, id, userID, groupID, startingLives, nowWire()); err != nil {
		s.log.Error("failed to insert game: %v", err)
		return nil, err
	}
	s.log.Info("game created: id=%s user=%s group=%s", id, userID, groupID)
	return s.GetGame(ctx, id)
}

// GetGame returns the game with derived total_answered/total_questions
// counts, or sql.ErrNoRows.
func (s *Store) GetGame(ctx context.Context, id string) (*models.Game, error) {
	var (
		g                 models.Game
		created           string
		started, finished sql.NullString
	)
	err := s.QueryRowContext(ctx, `
SELECT id, user_id, group_id, status, grade, lifes, created_on, started_on, finished_on
FROM games
WHERE id = ?
`, id).Scan(&g.ID, &g.UserID, &g.GroupID, &g.Status, &g.Grade, &g.Lives, &created, &started, &finished)
	if err != nil {
		return nil, err
	}
	g.CreatedOn = wireTime(created)
	if started.Valid {
		g.StartedOn = wireTime(started.String)
	}
	g.FinishedOn = wireTimePtr(finished)

	if g.TotalQuestions, err = s.CountQuestions(ctx, g.GroupID); err != nil {
		return nil, err
	}
	if err := s.QueryRowContext(ctx, `
SELECT COUNT(*) FROM answers WHERE game_id = ? AND finished_on IS NOT NULL
`, id).Scan(&g.TotalAnswered); err != nil {
		return nil, err
	}
	return &g, nil
}

// StartGame stamps started_on on first call; calling it again is a no-op.
func (s *Store) StartGame(ctx context.Context, id string) (*models.Game, error) {
	if _, err := s.GetGame(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.ExecContext(ctx, `
UPDATE games SET started_on = ?, status = 'started'
WHERE id = ? AND started_on IS NULL
`, nowWire(), id); err != nil {
		return nil, err
	}
	return s.GetGame(ctx, id)
}

// AnswerParams identifies an attempt at a question within a game.
type AnswerParams struct {
	GameID     string
	GroupID    string
	UserID     string
	QuestionID string
}

// OpenAnswer implements the probe: it reports ErrQuestionAnswered when a
// finalized answer exists, returns the existing open slot when one was opened
// earlier, and otherwise creates a new open slot.
func (s *Store) OpenAnswer(ctx context.Context, p AnswerParams) (*models.Answer, error) {
	game, err := s.GetGame(ctx, p.GameID)
	if err != nil {
		return nil, err
	}
	if game.Finished() {
		return nil, ErrGameFinished
	}

	existing, err := s.getAnswerByQuestion(ctx, p.GameID, p.QuestionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		if existing.Finalized() {
			return nil, ErrQuestionAnswered
		}
		return existing, nil
	}

	id := newID()
	if _, err := s.ExecContext(ctx, `
INSERT INTO answers (id, game_id, group_id, user_id, question_id, started_on)
VALUES (?, ?, ?, ?, ?, ?)
`, id, p.GameID, p.GroupID, p.UserID, p.QuestionID, nowWire()); err != nil {
		s.log.Error("failed to open answer slot: %v", err)
		return nil, err
	}
	s.log.Debug("answer slot opened: game=%s question=%s", p.GameID, p.QuestionID)
	return s.getAnswer(ctx, id)
}

// FinalizeAnswer scores the open slot with the chosen option and applies the
// session rules: correct answers add points, wrong answers cost a life, and
// the game is closed when lives hit zero or every question is finalized.
// Finalizing a slot twice fails and never changes the grade again.
func (s *Store) FinalizeAnswer(ctx context.Context, answerID, optionID string) (*models.Answer, error) {
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var (
			gameID, questionID string
			finished           sql.NullString
		)
		err := tx.QueryRowContext(ctx, `
SELECT game_id, question_id, finished_on FROM answers WHERE id = ?
`, answerID).Scan(&gameID, &questionID, &finished)
		if err != nil {
			return err
		}
		if finished.Valid {
			return ErrSlotFinalized
		}

		var correct int
		err = tx.QueryRowContext(ctx, `
SELECT is_correct FROM question_options WHERE id = ? AND question_id = ?
`, optionID, questionID).Scan(&correct)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("option %s does not belong to question %s", optionID, questionID)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE answers SET q_option_id = ?, is_correct = ?, finished_on = ?, is_active = 0
WHERE id = ?
`, optionID, correct, nowWire(), answerID); err != nil {
			return err
		}

		var (
			grade, lives   int
			groupID        string
			gameFinishedOn sql.NullString
		)
		err = tx.QueryRowContext(ctx, `
SELECT grade, lifes, group_id, finished_on FROM games WHERE id = ?
`, gameID).Scan(&grade, &lives, &groupID, &gameFinishedOn)
		if err != nil {
			return err
		}
		if gameFinishedOn.Valid {
			return ErrGameFinished
		}

		if correct == 1 {
			grade += pointsPerHit
		} else {
			lives--
		}

		var total, answered int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE group_id = ?`, groupID).Scan(&total); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers WHERE game_id = ? AND finished_on IS NOT NULL`, gameID).Scan(&answered); err != nil {
			return err
		}

		if lives <= 0 || answered >= total {
			_, err = tx.ExecContext(ctx, `
UPDATE games SET grade = ?, lifes = ?, finished_on = ?, status = 'finished' WHERE id = ?
`, grade, lives, nowWire(), gameID)
			s.log.Info("game closed: id=%s grade=%d lives=%d answered=%d/%d", gameID, grade, lives, answered, total)
		} else {
			_, err = tx.ExecContext(ctx, `
UPDATE games SET grade = ?, lifes = ? WHERE id = ?
`, grade, lives, gameID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.getAnswer(ctx, answerID)
}

func (s *Store) getAnswer(ctx context.Context, id string) (*models.Answer, error) {
	return s.scanAnswer(s.QueryRowContext(ctx, `
SELECT id, game_id, group_id, user_id, question_id, q_option_id, is_correct, is_active, started_on, finished_on
FROM answers
WHERE id = ?
`, id))
}

func (s *Store) getAnswerByQuestion(ctx context.Context, gameID, questionID string) (*models.Answer, error) {
	return s.scanAnswer(s.QueryRowContext(ctx, `
SELECT id, game_id, group_id, user_id, question_id, q_option_id, is_correct, is_active, started_on, finished_on
FROM answers
WHERE game_id = ? AND question_id = ?
`, gameID, questionID))
}

func (s *Store) scanAnswer(row *sql.Row) (*models.Answer, error) {
	var (
		a        models.Answer
		option   sql.NullString
		started  string
		finished sql.NullString
	)
	err := row.Scan(&a.ID, &a.GameID, &a.GroupID, &a.UserID, &a.QuestionID, &option, &a.IsCorrect, &a.IsActive, &started, &finished)
	if err != nil {
		return nil, err
	}
	a.QOptionID = option.String
	a.StartedOn = wireTime(started)
	a.FinishedOn = wireTimePtr(finished)
	return &a, nil
}

// ListAnswers returns a game's answers, optionally only the finalized ones.
func (s *Store) ListAnswers(ctx context.Context, gameID string, onlyFinalized bool) ([]models.Answer, error) {
	query := sqlBuilder.
		Select("id", "game_id", "group_id", "user_id", "question_id", "q_option_id", "is_correct", "is_active", "started_on", "finished_on").
		From("answers").
		Where(squirrel.Eq{"game_id": gameID}).
		OrderBy("started_on ASC")
	if onlyFinalized {
		query = query.Where("finished_on IS NOT NULL")
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var (
			a                models.Answer
			option, finished sql.NullString
			started          string
		)
		if err := rows.Scan(&a.ID, &a.GameID, &a.GroupID, &a.UserID, &a.QuestionID, &option, &a.IsCorrect, &a.IsActive, &started, &finished); err != nil {
			return nil, err
		}
		a.QOptionID = option.String
		a.StartedOn = wireTime(started)
		a.FinishedOn = wireTimePtr(finished)
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
