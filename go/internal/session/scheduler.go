package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/session/events"
)

// startCadence arms the one-second ticker for a new run. The run context is
// the cancellation token for every scheduled callback of this run.
// Caller must hold t.mu.
func (t *Timer) startCadence() {
	t.stopCadence()

	ctx, cancel := context.WithCancel(context.Background())
	t.runCtx = ctx
	t.cancelRun = cancel

	// Created here, not in the goroutine, so the ticker exists once Start returns.
	ticker := t.clock.NewTicker(TickInterval)
	go t.runCadence(ctx, ticker)

	log.Debug().
		Str("session_id", t.sessionID.String()).
		Dur("interval", TickInterval).
		Msg("tick cadence started")
}

// stopCadence cancels the current run, if any. Safe to call repeatedly.
// Caller must hold t.mu.
func (t *Timer) stopCadence() {
	if t.cancelRun == nil {
		return
	}
	t.cancelRun()
	t.cancelRun = nil
	t.runCtx = nil
	// prompt dismissal is a child of the run context
	t.cancelPrompt = nil

	log.Debug().Str("session_id", t.sessionID.String()).Msg("tick cadence stopped")
}

func (t *Timer) runCadence(ctx context.Context, ticker clockwork.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.handleScheduledTick(ctx)
		}
	}
}

// handleScheduledTick applies a tick fired by the cadence, unless the run it
// belongs to was cancelled while the tick was in flight.
func (t *Timer) handleScheduledTick(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Err() != nil {
		log.Debug().Msg("dropping tick from cancelled run")
		return
	}
	t.tickLocked()
}

// schedulePromptDismissal replaces any pending dismissal with a new one-shot
// timer and returns its deadline. Caller must hold t.mu and have an active run.
func (t *Timer) schedulePromptDismissal() time.Time {
	t.cancelPromptDismissal()

	parent := t.runCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	t.cancelPrompt = cancel

	deadline := t.clock.Now().Add(ExtensionPromptTimeout)
	timer := t.clock.NewTimer(ExtensionPromptTimeout)

	go func(question int, tm clockwork.Timer) {
		select {
		case <-tm.Chan():
			t.handlePromptTimeout(ctx, question)
		case <-ctx.Done():
			stopAndDrainTimer(tm)
		}
	}(t.currentQuestionIndex, timer)

	return deadline
}

// cancelPromptDismissal cancels a pending dismissal, if any.
// Caller must hold t.mu.
func (t *Timer) cancelPromptDismissal() {
	if t.cancelPrompt == nil {
		return
	}
	t.cancelPrompt()
	t.cancelPrompt = nil
}

// handlePromptTimeout hides the prompt when nobody answered it in time. The
// prompt state is checked first; a resolved or cancelled prompt is left alone.
func (t *Timer) handlePromptTimeout(ctx context.Context, question int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Err() != nil || !t.promptVisible || question != t.currentQuestionIndex {
		return
	}
	t.promptVisible = false
	t.cancelPromptDismissal()

	log.Debug().
		Str("session_id", t.sessionID.String()).
		Int("question", question).
		Msg("extension prompt dismissed after timeout")

	t.emit(events.EventTypeExtensionPromptDismissed, events.ExtensionPromptDismissedPayload{
		QuestionNumber: question,
	})
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
