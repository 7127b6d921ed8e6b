package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session/events"
)

const (
	// TickInterval is the countdown cadence while a session is running.
	TickInterval = time.Second
	// ExtensionPromptThreshold is the remaining time at which an extension is offered.
	ExtensionPromptThreshold = 10
	// ExtensionPromptTimeout is how long an unanswered extension offer stays visible.
	ExtensionPromptTimeout = 5 * time.Second
	// MaxQuestions caps the number of question records a session may hold.
	MaxQuestions = 100
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
	NewTicker(d time.Duration) clockwork.Ticker
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the real clock.
func WithClock(clock Clock) Option {
	return func(t *Timer) {
		t.clock = clock
	}
}

// Timer is the session state machine. It owns the question records, the
// countdown and the extension prompt. All methods are safe for concurrent use;
// every operation and every timer callback is serialized by one mutex.
type Timer struct {
	mu    sync.Mutex
	clock Clock

	sessionID            uuid.UUID
	totalQuestions       int
	secondsPerQuestion   int
	currentQuestionIndex int
	remainingSeconds     int
	isRunning            bool
	promptVisible        bool
	promptRaised         bool // prompt already offered for the current question
	completed            bool
	records              []models.QuestionRecord

	// cancellation tokens for the tick cadence and the prompt dismissal
	runCtx       context.Context
	cancelRun    context.CancelFunc
	cancelPrompt context.CancelFunc

	subscribers map[int]chan events.Event
	nextSubID   int
}

// NewTimer creates an idle session timer.
func NewTimer(opts ...Option) *Timer {
	t := &Timer{
		clock:                clockwork.NewRealClock(),
		currentQuestionIndex: 1,
		records:              []models.QuestionRecord{},
		subscribers:          make(map[int]chan events.Event),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Configure discards any previous session and prepares a new one with
// totalQuestions pending records of secondsPerQuestion each.
func (t *Timer) Configure(totalQuestions, secondsPerQuestion int) error {
	if totalQuestions <= 0 {
		return fmt.Errorf("%w: total questions must be positive, got %d", ErrInvalidConfiguration, totalQuestions)
	}
	if totalQuestions > MaxQuestions {
		return fmt.Errorf("%w: total questions must be at most %d, got %d", ErrInvalidConfiguration, MaxQuestions, totalQuestions)
	}
	if secondsPerQuestion <= 0 {
		return fmt.Errorf("%w: seconds per question must be positive, got %d", ErrInvalidConfiguration, secondsPerQuestion)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopCadence()
	t.cancelPromptDismissal()

	records := make([]models.QuestionRecord, totalQuestions)
	for i := range records {
		records[i] = models.QuestionRecord{
			QuestionNumber:  i + 1,
			AllottedSeconds: secondsPerQuestion,
			Status:          models.QuestionStatusPending,
		}
	}

	t.sessionID = uuid.New()
	t.totalQuestions = totalQuestions
	t.secondsPerQuestion = secondsPerQuestion
	t.currentQuestionIndex = 1
	t.remainingSeconds = secondsPerQuestion
	t.isRunning = false
	t.promptVisible = false
	t.promptRaised = false
	t.completed = false
	t.records = records

	log.Info().
		Str("session_id", t.sessionID.String()).
		Int("total_questions", totalQuestions).
		Int("seconds_per_question", secondsPerQuestion).
		Msg("session configured")

	t.emit(events.EventTypeSessionConfigured, events.SessionConfiguredPayload{
		TotalQuestions:     totalQuestions,
		SecondsPerQuestion: secondsPerQuestion,
	})
	return nil
}

// Start begins the countdown. It does nothing when the timer is already
// running, when no session is configured, or when the session is completed.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isRunning || t.completed || t.totalQuestions == 0 {
		log.Debug().
			Bool("running", t.isRunning).
			Bool("completed", t.completed).
			Int("total_questions", t.totalQuestions).
			Msg("start ignored")
		return
	}

	t.isRunning = true
	t.startCadence()
	if t.promptVisible {
		// a prompt left open by Stop gets a fresh dismissal window
		t.schedulePromptDismissal()
	}

	log.Info().
		Str("session_id", t.sessionID.String()).
		Int("question", t.currentQuestionIndex).
		Int("remaining_sec", t.remainingSeconds).
		Msg("session started")

	t.emit(events.EventTypeSessionStarted, events.SessionStartedPayload{
		QuestionNumber:   t.currentQuestionIndex,
		RemainingSeconds: t.remainingSeconds,
		StartedAt:        t.clock.Now(),
	})
}

// Stop halts the countdown and any pending prompt dismissal. Remaining time
// and records are left untouched. Calling Stop when not running is a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopCadence()
	t.cancelPromptDismissal()
	if !t.isRunning {
		return
	}
	t.isRunning = false

	log.Info().
		Str("session_id", t.sessionID.String()).
		Int("question", t.currentQuestionIndex).
		Int("remaining_sec", t.remainingSeconds).
		Msg("session stopped")

	t.emit(events.EventTypeSessionStopped, events.SessionStoppedPayload{
		QuestionNumber:   t.currentQuestionIndex,
		RemainingSeconds: t.remainingSeconds,
		StoppedAt:        t.clock.Now(),
	})
}

// Tick advances the countdown by one second. The running cadence calls it
// once per TickInterval; it does nothing while the timer is not running.
func (t *Timer) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickLocked()
}

func (t *Timer) tickLocked() {
	if !t.isRunning {
		return
	}

	if t.remainingSeconds <= 0 {
		log.Info().
			Str("session_id", t.sessionID.String()).
			Int("question", t.currentQuestionIndex).
			Msg("question timed out")
		t.finalizeLocked(models.QuestionStatusTimedOut)
		return
	}

	t.remainingSeconds--
	t.emit(events.EventTypeTimerTick, events.TimerTickPayload{
		QuestionNumber:   t.currentQuestionIndex,
		RemainingSeconds: t.remainingSeconds,
		TickedAt:         t.clock.Now(),
	})

	if t.remainingSeconds == ExtensionPromptThreshold && !t.promptVisible && !t.promptRaised {
		t.promptVisible = true
		t.promptRaised = true
		dismissAt := t.schedulePromptDismissal()

		log.Debug().
			Str("session_id", t.sessionID.String()).
			Int("question", t.currentQuestionIndex).
			Time("dismiss_at", dismissAt).
			Msg("extension prompt raised")

		t.emit(events.EventTypeExtensionPrompted, events.ExtensionPromptedPayload{
			QuestionNumber:   t.currentQuestionIndex,
			RemainingSeconds: t.remainingSeconds,
			DismissAt:        dismissAt,
		})
	}
}

// GrantExtension adds seconds to the current question's countdown and
// resolves any visible extension prompt. It may also be used without a
// prompt to add time manually.
func (t *Timer) GrantExtension(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: extension must be positive, got %d seconds", ErrInvalidOperation, seconds)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireActive("grant extension"); err != nil {
		return err
	}
	if seconds > math.MaxInt-t.remainingSeconds {
		return fmt.Errorf("%w: extension of %d seconds overflows the countdown", ErrInvalidOperation, seconds)
	}

	t.remainingSeconds += seconds
	record := &t.records[t.currentQuestionIndex-1]
	record.ExtensionsGranted++
	t.promptVisible = false
	t.cancelPromptDismissal()

	log.Info().
		Str("session_id", t.sessionID.String()).
		Int("question", t.currentQuestionIndex).
		Int("seconds", seconds).
		Int("remaining_sec", t.remainingSeconds).
		Msg("extension granted")

	t.emit(events.EventTypeExtensionGranted, events.ExtensionGrantedPayload{
		QuestionNumber:    t.currentQuestionIndex,
		Seconds:           seconds,
		RemainingSeconds:  t.remainingSeconds,
		ExtensionsGranted: record.ExtensionsGranted,
	})
	return nil
}

// DeclineExtension hides a visible extension prompt. No-op otherwise.
func (t *Timer) DeclineExtension() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.promptVisible {
		return
	}
	t.promptVisible = false
	t.cancelPromptDismissal()

	log.Debug().
		Str("session_id", t.sessionID.String()).
		Int("question", t.currentQuestionIndex).
		Msg("extension declined")

	t.emit(events.EventTypeExtensionDeclined, events.ExtensionDeclinedPayload{
		QuestionNumber: t.currentQuestionIndex,
	})
}

// MarkDone finalizes the current question as done and moves on.
func (t *Timer) MarkDone() error {
	return t.finish(models.QuestionStatusDone, "mark question done")
}

// MarkSkipped finalizes the current question as skipped and moves on.
func (t *Timer) MarkSkipped() error {
	return t.finish(models.QuestionStatusSkipped, "skip question")
}

func (t *Timer) finish(status models.QuestionStatus, op string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireActive(op); err != nil {
		return err
	}
	t.finalizeLocked(status)
	return nil
}

// finalizeLocked records the outcome of the current question and advances.
func (t *Timer) finalizeLocked(status models.QuestionStatus) {
	record := &t.records[t.currentQuestionIndex-1]
	// Time spent is measured against the allotted budget, so extensions that
	// leave more than the budget remaining produce a negative value.
	record.TimeSpentSeconds = record.AllottedSeconds - t.remainingSeconds
	record.Status = status

	log.Info().
		Str("session_id", t.sessionID.String()).
		Int("question", record.QuestionNumber).
		Str("status", string(status)).
		Int("time_spent_sec", record.TimeSpentSeconds).
		Msg("question finalized")

	t.emit(events.EventTypeQuestionFinalized, events.QuestionFinalizedPayload{Record: *record})
	t.advanceLocked()
}

func (t *Timer) advanceLocked() {
	t.promptVisible = false
	t.cancelPromptDismissal()

	if t.currentQuestionIndex < t.totalQuestions {
		t.currentQuestionIndex++
		t.remainingSeconds = t.secondsPerQuestion
		t.promptRaised = false

		t.emit(events.EventTypeQuestionStarted, events.QuestionStartedPayload{
			QuestionNumber:   t.currentQuestionIndex,
			RemainingSeconds: t.remainingSeconds,
		})
		return
	}

	t.stopCadence()
	t.isRunning = false
	t.completed = true

	stats := ComputeStats(t.records)
	log.Info().
		Str("session_id", t.sessionID.String()).
		Int("completed", stats.CompletedCount).
		Int("skipped", stats.SkippedCount).
		Int("timed_out", stats.TimeoutCount).
		Int("total_time_sec", stats.TotalTimeSpent).
		Msg("session completed")

	t.emit(events.EventTypeSessionCompleted, events.SessionCompletedPayload{
		CompletedAt: t.clock.Now(),
		Stats:       stats,
	})
}

// Reset stops the clock and returns the timer to its idle defaults.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopCadence()
	t.cancelPromptDismissal()

	if t.totalQuestions == 0 && len(t.records) == 0 {
		return
	}

	previous := t.sessionID
	t.sessionID = uuid.Nil
	t.totalQuestions = 0
	t.secondsPerQuestion = 0
	t.currentQuestionIndex = 1
	t.remainingSeconds = 0
	t.isRunning = false
	t.promptVisible = false
	t.promptRaised = false
	t.completed = false
	t.records = []models.QuestionRecord{}

	log.Info().Str("session_id", previous.String()).Msg("session reset")

	t.emit(events.EventTypeSessionReset, events.SessionResetPayload{
		PreviousSessionID: previous.String(),
	})
}

// Snapshot returns a copy of the current session state.
func (t *Timer) Snapshot() models.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Stats returns aggregate statistics for the current records.
func (t *Timer) Stats() models.SessionStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ComputeStats(t.records)
}

func (t *Timer) snapshotLocked() models.SessionState {
	records := make([]models.QuestionRecord, len(t.records))
	copy(records, t.records)

	state := models.SessionState{
		Phase:                  t.phaseLocked(),
		TotalQuestions:         t.totalQuestions,
		SecondsPerQuestion:     t.secondsPerQuestion,
		CurrentQuestionIndex:   t.currentQuestionIndex,
		RemainingSeconds:       t.remainingSeconds,
		IsRunning:              t.isRunning,
		ExtensionPromptVisible: t.promptVisible,
		SessionCompleted:       t.completed,
		Records:                records,
	}
	if t.sessionID != uuid.Nil {
		state.SessionID = t.sessionID.String()
	}
	return state
}

func (t *Timer) phaseLocked() models.Phase {
	switch {
	case t.totalQuestions == 0:
		return models.PhaseIdle
	case t.completed:
		return models.PhaseCompleted
	case t.isRunning && t.promptVisible:
		return models.PhaseExtensionPending
	case t.isRunning:
		return models.PhaseRunning
	default:
		return models.PhaseConfigured
	}
}

func (t *Timer) requireActive(op string) error {
	if t.totalQuestions == 0 {
		return fmt.Errorf("%w: cannot %s without a configured session", ErrInvalidOperation, op)
	}
	if t.completed {
		return fmt.Errorf("%w: cannot %s after the session completed", ErrInvalidOperation, op)
	}
	return nil
}
