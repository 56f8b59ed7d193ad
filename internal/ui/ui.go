// Package ui binds the game engine to a terminal: it renders snapshots and
// questions, reads answers from stdin and forwards actions to the engine.
// All state decisions stay in the engine; failures surface as inline
// notices and the prompt is re-shown so the user can always retry.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmorales/periogame/internal/game"
	"github.com/dmorales/periogame/internal/logger"
	"github.com/dmorales/periogame/internal/models"
)

// Runner drives an interactive play session on a terminal.
type Runner struct {
	engine       *game.Engine
	in           *bufio.Scanner
	out          io.Writer
	log          *logger.Logger
	tickInterval time.Duration
	elapsedSecs  atomic.Int64
}

// NewRunner creates a terminal runner for the given engine.
func NewRunner(engine *game.Engine, in io.Reader, out io.Writer, tickInterval time.Duration) *Runner {
	return &Runner{
		engine:       engine,
		in:           bufio.NewScanner(in),
		out:          out,
		log:          logger.Default().WithPrefix("ui"),
		tickInterval: tickInterval,
	}
}

// Run plays the session until it finishes or the user quits.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.engine.Load(ctx); err != nil {
		return err
	}
	if r.engine.Phase() == game.PhaseFinished {
		r.printSummary()
		return nil
	}

	fmt.Fprintln(r.out, "Periodontitis Serious Game")
	fmt.Fprintln(r.out, "Press enter to start the session (or q to quit).")
	if line, ok := r.readLine(); !ok || line == "q" {
		return nil
	}

	for r.engine.Phase() == game.PhaseAwaitingStart {
		err := r.engine.Start(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, game.ErrSessionNotClosed) {
			r.notice("Every question is already answered but the server has not closed this session yet. Try again later.")
			return nil
		}
		r.notice("Could not start the session: %v", err)
		fmt.Fprintln(r.out, "Press enter to retry (or q to quit).")
		if line, ok := r.readLine(); !ok || line == "q" {
			return nil
		}
	}

	// Display-only timer; frozen by the engine once the session finishes.
	ticker := game.WatchElapsed(r.engine, r.tickInterval, func(d time.Duration) {
		r.elapsedSecs.Store(int64(d / time.Second))
	})
	defer ticker.Stop()

	for {
		switch r.engine.Phase() {
		case game.PhaseInProgress:
			if quit := r.playQuestion(ctx); quit {
				return nil
			}
		case game.PhaseAwaitingContinue:
			if quit := r.waitContinue(ctx); quit {
				return nil
			}
		case game.PhaseFinished:
			r.printSummary()
			return nil
		default:
			return nil
		}
	}
}

func (r *Runner) playQuestion(ctx context.Context) (quit bool) {
	q, ok := r.engine.Current()
	if !ok {
		return true
	}
	r.printHeader()
	fmt.Fprintf(r.out, "\n%s\n", q.Description)
	for i, opt := range q.Options {
		fmt.Fprintf(r.out, "  %d) %s\n", i+1, opt.Text)
	}
	fmt.Fprintln(r.out, "Answer with the option number, h for a hint, q to quit.")

	for {
		line, okRead := r.readLine()
		if !okRead || line == "q" {
			return true
		}
		if line == "h" {
			fmt.Fprintf(r.out, "Hint: %s\n", q.TipNote)
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(q.Options) {
			r.notice("Pick a number between 1 and %d.", len(q.Options))
			continue
		}

		ans, err := r.engine.Submit(ctx, q.Options[n-1].OptionID())
		if err != nil {
			// Selection stays usable; submitting again retries the same slot.
			r.notice("Could not save your answer: %v. Answer again to retry.", err)
			continue
		}
		r.printFeedback(ans, q)
		return false
	}
}

func (r *Runner) waitContinue(ctx context.Context) (quit bool) {
	fmt.Fprintln(r.out, "Press enter to continue (or q to quit).")
	for {
		line, ok := r.readLine()
		if !ok || line == "q" {
			return true
		}
		err := r.engine.Continue(ctx)
		if err == nil {
			return false
		}
		if errors.Is(err, game.ErrSessionNotClosed) {
			r.notice("No questions remain but the server has not closed the session. Check back later.")
			return true
		}
		r.notice("Could not continue: %v. Press enter to retry.", err)
	}
}

func (r *Runner) printFeedback(ans *models.Answer, q *models.Question) {
	if ans.Correct() {
		fmt.Fprintf(r.out, "\n%s\n", CorrectLine())
	} else {
		fmt.Fprintf(r.out, "\n%s\n", IncorrectLine())
	}
	if q.Feedback != "" {
		fmt.Fprintf(r.out, "%s\n", q.Feedback)
	}
}

func (r *Runner) printHeader() {
	snap := r.engine.Snapshot()
	if snap == nil {
		return
	}
	fmt.Fprintf(r.out, "\nScore: %d  Question: %d/%d  Lives: %s (%d)  Time: %s\n",
		snap.Grade,
		r.engine.Index()+1, r.engine.TotalQuestions(),
		Hearts(snap.Lives), snap.Lives,
		FormatClock(time.Duration(r.elapsedSecs.Load())*time.Second),
	)
}

func (r *Runner) printSummary() {
	snap := r.engine.Snapshot()
	if snap == nil {
		return
	}
	fmt.Fprintln(r.out, "\nSession finished!")
	fmt.Fprintf(r.out, "Score: %d\n", snap.Grade)
	fmt.Fprintf(r.out, "Questions answered: %d/%d\n", snap.TotalAnswered, snap.TotalQuestions)
	// Final duration comes from the server timestamps, not the live counter.
	fmt.Fprintf(r.out, "Time: %s\n", FormatClock(snap.Duration()))
}

func (r *Runner) notice(format string, args ...any) {
	fmt.Fprintf(r.out, "! "+format+"\n", args...)
}

func (r *Runner) readLine() (string, bool) {
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

// FormatClock renders a duration as m:ss.
func FormatClock(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
