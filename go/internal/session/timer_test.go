package session

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session/events"
)

func newTestTimer(t *testing.T) (*Timer, *clockwork.FakeClock, <-chan events.Event) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	timer := NewTimer(WithClock(clock))
	ch, unsubscribe := timer.Subscribe(1024)
	t.Cleanup(func() {
		timer.Reset()
		unsubscribe()
	})
	return timer, clock, ch
}

func waitForEvent(t *testing.T, ch <-chan events.Event, want events.EventType) events.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

// drainEvents collects whatever arrives within the settle window.
func drainEvents(ch <-chan events.Event, settle time.Duration) []events.Event {
	var got []events.Event
	deadline := time.After(settle)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			return got
		}
	}
}

func tickN(timer *Timer, n int) {
	for i := 0; i < n; i++ {
		timer.Tick()
	}
}

func TestNewTimer_Idle(t *testing.T) {
	timer, _, _ := newTestTimer(t)

	want := models.SessionState{
		Phase:                models.PhaseIdle,
		CurrentQuestionIndex: 1,
		Records:              []models.QuestionRecord{},
	}
	if diff := cmp.Diff(want, timer.Snapshot()); diff != "" {
		t.Errorf("idle snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name      string
		questions int
		seconds   int
	}{
		{name: "single question", questions: 1, seconds: 1},
		{name: "default setup", questions: 10, seconds: 120},
		{name: "upper ui bound", questions: 100, seconds: 655},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer, _, _ := newTestTimer(t)

			if err := timer.Configure(tt.questions, tt.seconds); err != nil {
				t.Fatalf("Configure failed: %v", err)
			}

			state := timer.Snapshot()
			if len(state.Records) != tt.questions {
				t.Fatalf("len(Records) = %d, want %d", len(state.Records), tt.questions)
			}
			for i, r := range state.Records {
				want := models.QuestionRecord{
					QuestionNumber:  i + 1,
					AllottedSeconds: tt.seconds,
					Status:          models.QuestionStatusPending,
				}
				if r != want {
					t.Errorf("Records[%d] = %+v, want %+v", i, r, want)
				}
			}
			if state.CurrentQuestionIndex != 1 {
				t.Errorf("CurrentQuestionIndex = %d, want 1", state.CurrentQuestionIndex)
			}
			if state.RemainingSeconds != tt.seconds {
				t.Errorf("RemainingSeconds = %d, want %d", state.RemainingSeconds, tt.seconds)
			}
			if state.IsRunning || state.SessionCompleted || state.ExtensionPromptVisible {
				t.Errorf("unexpected flags: %+v", state)
			}
			if state.Phase != models.PhaseConfigured {
				t.Errorf("Phase = %s, want %s", state.Phase, models.PhaseConfigured)
			}
			if state.SessionID == "" {
				t.Error("expected a session id")
			}
		})
	}
}

func TestConfigure_Invalid(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	if err := timer.Configure(2, 30); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	before := timer.Snapshot()

	for _, args := range [][2]int{{0, 30}, {-1, 30}, {5, 0}, {5, -10}, {0, 0}, {MaxQuestions + 1, 30}, {math.MaxInt, 10}} {
		err := timer.Configure(args[0], args[1])
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("Configure(%d, %d) error = %v, want ErrInvalidConfiguration", args[0], args[1], err)
		}
	}

	if diff := cmp.Diff(before, timer.Snapshot()); diff != "" {
		t.Errorf("rejected configure changed state (-before +after):\n%s", diff)
	}
}

func TestConfigure_ReplacesPreviousSession(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	if err := timer.Configure(3, 30); err != nil {
		t.Fatal(err)
	}
	first := timer.Snapshot().SessionID
	timer.Start()
	if err := timer.MarkDone(); err != nil {
		t.Fatal(err)
	}

	if err := timer.Configure(2, 45); err != nil {
		t.Fatal(err)
	}
	state := timer.Snapshot()
	if state.SessionID == first {
		t.Error("expected a new session id")
	}
	if state.IsRunning {
		t.Error("expected reconfigured session to be stopped")
	}
	if state.CurrentQuestionIndex != 1 || state.RemainingSeconds != 45 {
		t.Errorf("index/remaining = %d/%d, want 1/45", state.CurrentQuestionIndex, state.RemainingSeconds)
	}
	for _, r := range state.Records {
		if r.Status != models.QuestionStatusPending {
			t.Errorf("record %d carried over status %s", r.QuestionNumber, r.Status)
		}
	}
}

func TestStart(t *testing.T) {
	t.Run("unconfigured is a no-op", func(t *testing.T) {
		timer, _, _ := newTestTimer(t)
		timer.Start()
		if timer.Snapshot().IsRunning {
			t.Error("expected timer not to run without a session")
		}
	})

	t.Run("idempotent while running", func(t *testing.T) {
		timer, _, ch := newTestTimer(t)
		if err := timer.Configure(1, 60); err != nil {
			t.Fatal(err)
		}
		timer.Start()
		timer.Start()

		started := 0
		for _, ev := range drainEvents(ch, 50*time.Millisecond) {
			if ev.Type == events.EventTypeSessionStarted {
				started++
			}
		}
		if started != 1 {
			t.Errorf("SessionStarted emitted %d times, want 1", started)
		}
		if state := timer.Snapshot(); !state.IsRunning || state.Phase != models.PhaseRunning {
			t.Errorf("state = %+v, want running", state)
		}
	})

	t.Run("completed is a no-op", func(t *testing.T) {
		timer, _, _ := newTestTimer(t)
		if err := timer.Configure(1, 60); err != nil {
			t.Fatal(err)
		}
		if err := timer.MarkDone(); err != nil {
			t.Fatal(err)
		}
		timer.Start()
		if timer.Snapshot().IsRunning {
			t.Error("expected completed session not to restart")
		}
	})
}

func TestStop(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	timer.Stop() // idle

	if err := timer.Configure(2, 60); err != nil {
		t.Fatal(err)
	}
	timer.Start()
	tickN(timer, 3)
	timer.Stop()
	timer.Stop()

	state := timer.Snapshot()
	if state.IsRunning {
		t.Error("expected timer to be stopped")
	}
	if state.RemainingSeconds != 57 {
		t.Errorf("RemainingSeconds = %d, want 57", state.RemainingSeconds)
	}

	timer.Tick()
	if got := timer.Snapshot().RemainingSeconds; got != 57 {
		t.Errorf("Tick while stopped changed remaining to %d", got)
	}
}

func TestTick_Monotonic(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	if err := timer.Configure(1, 40); err != nil {
		t.Fatal(err)
	}
	timer.Start()

	for want := 39; want >= 0; want-- {
		timer.Tick()
		state := timer.Snapshot()
		if state.RemainingSeconds != want {
			t.Fatalf("RemainingSeconds = %d, want %d", state.RemainingSeconds, want)
		}
		if state.Records[0].Status != models.QuestionStatusPending {
			t.Fatalf("question finalized early at %d", want)
		}
	}
}

func TestTick_ExtensionPromptThreshold(t *testing.T) {
	timer, _, ch := newTestTimer(t)
	if err := timer.Configure(2, 12); err != nil {
		t.Fatal(err)
	}
	timer.Start()

	timer.Tick()
	if timer.Snapshot().ExtensionPromptVisible {
		t.Fatal("prompt raised at 11 seconds")
	}

	timer.Tick()
	state := timer.Snapshot()
	if !state.ExtensionPromptVisible {
		t.Fatal("expected prompt at 10 seconds")
	}
	if state.Phase != models.PhaseExtensionPending {
		t.Errorf("Phase = %s, want %s", state.Phase, models.PhaseExtensionPending)
	}
	ev := waitForEvent(t, ch, events.EventTypeExtensionPrompted)
	payload := ev.Payload.(events.ExtensionPromptedPayload)
	if payload.QuestionNumber != 1 || payload.RemainingSeconds != 10 {
		t.Errorf("payload = %+v", payload)
	}

	timer.DeclineExtension()
	if timer.Snapshot().ExtensionPromptVisible {
		t.Fatal("expected decline to clear the prompt")
	}

	// Pass back above the threshold; the prompt is offered once per question.
	if err := timer.GrantExtension(5); err != nil {
		t.Fatal(err)
	}
	tickN(timer, 5)
	state = timer.Snapshot()
	if state.RemainingSeconds != 10 {
		t.Fatalf("RemainingSeconds = %d, want 10", state.RemainingSeconds)
	}
	if state.ExtensionPromptVisible {
		t.Error("prompt raised twice for the same question")
	}

	// The next question gets its own prompt.
	if err := timer.MarkDone(); err != nil {
		t.Fatal(err)
	}
	tickN(timer, 2)
	if !timer.Snapshot().ExtensionPromptVisible {
		t.Error("expected prompt for the second question")
	}
}

func TestTick_NoPromptWhenBudgetIsThreshold(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	if err := timer.Configure(1, 10); err != nil {
		t.Fatal(err)
	}
	timer.Start()
	timer.Tick()
	if timer.Snapshot().ExtensionPromptVisible {
		t.Error("prompt is only raised by the tick that reaches exactly 10")
	}
}

func TestTick_TimeoutAdvances(t *testing.T) {
	timer, _, ch := newTestTimer(t)
	if err := timer.Configure(2, 3); err != nil {
		t.Fatal(err)
	}
	timer.Start()

	tickN(timer, 3)
	state := timer.Snapshot()
	if state.RemainingSeconds != 0 || state.CurrentQuestionIndex != 1 {
		t.Fatalf("after draining: index=%d remaining=%d", state.CurrentQuestionIndex, state.RemainingSeconds)
	}

	timer.Tick()
	state = timer.Snapshot()
	if state.CurrentQuestionIndex != 2 || state.RemainingSeconds != 3 {
		t.Fatalf("after timeout: index=%d remaining=%d, want 2/3", state.CurrentQuestionIndex, state.RemainingSeconds)
	}
	want := models.QuestionRecord{QuestionNumber: 1, AllottedSeconds: 3, TimeSpentSeconds: 3, Status: models.QuestionStatusTimedOut}
	if state.Records[0] != want {
		t.Errorf("Records[0] = %+v, want %+v", state.Records[0], want)
	}

	ev := waitForEvent(t, ch, events.EventTypeQuestionFinalized)
	if got := ev.Payload.(events.QuestionFinalizedPayload).Record; got != want {
		t.Errorf("finalized payload = %+v, want %+v", got, want)
	}
	waitForEvent(t, ch, events.EventTypeQuestionStarted)
}

func TestGrantExtension(t *testing.T) {
	timer, _, _ := newTestTimer(t)

	if err := timer.GrantExtension(30); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("grant without session error = %v, want ErrInvalidOperation", err)
	}

	if err := timer.Configure(1, 60); err != nil {
		t.Fatal(err)
	}
	before := timer.Snapshot()
	for _, seconds := range []int{0, -30} {
		if err := timer.GrantExtension(seconds); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("GrantExtension(%d) error = %v, want ErrInvalidOperation", seconds, err)
		}
	}
	if diff := cmp.Diff(before, timer.Snapshot()); diff != "" {
		t.Errorf("rejected grant changed state:\n%s", diff)
	}

	// Manual add without a prompt, even while not running.
	if err := timer.GrantExtension(30); err != nil {
		t.Fatal(err)
	}
	if err := timer.GrantExtension(60); err != nil {
		t.Fatal(err)
	}
	state := timer.Snapshot()
	if state.RemainingSeconds != 150 {
		t.Errorf("RemainingSeconds = %d, want 150", state.RemainingSeconds)
	}
	if state.Records[0].ExtensionsGranted != 2 {
		t.Errorf("ExtensionsGranted = %d, want 2", state.Records[0].ExtensionsGranted)
	}

	// A grant that would wrap the countdown is refused.
	if err := timer.GrantExtension(math.MaxInt); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("GrantExtension(MaxInt) error = %v, want ErrInvalidOperation", err)
	}
	if diff := cmp.Diff(state, timer.Snapshot()); diff != "" {
		t.Errorf("overflowing grant changed state:\n%s", diff)
	}
	timer.Start()
	timer.Tick()
	if got := timer.Snapshot().RemainingSeconds; got != 149 {
		t.Errorf("RemainingSeconds after tick = %d, want 149", got)
	}
	timer.Stop()

	if err := timer.MarkDone(); err != nil {
		t.Fatal(err)
	}
	if err := timer.GrantExtension(30); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("grant after completion error = %v, want ErrInvalidOperation", err)
	}
}

func TestDeclineExtension_NoPrompt(t *testing.T) {
	timer, _, ch := newTestTimer(t)
	timer.DeclineExtension()

	if err := timer.Configure(1, 60); err != nil {
		t.Fatal(err)
	}
	before := timer.Snapshot()
	timer.DeclineExtension()
	if diff := cmp.Diff(before, timer.Snapshot()); diff != "" {
		t.Errorf("decline without prompt changed state:\n%s", diff)
	}
	for _, ev := range drainEvents(ch, 20*time.Millisecond) {
		if ev.Type == events.EventTypeExtensionDeclined {
			t.Error("unexpected ExtensionDeclined event")
		}
	}
}

func TestMarkDoneAndSkipped(t *testing.T) {
	timer, _, _ := newTestTimer(t)

	if err := timer.MarkDone(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("MarkDone without session error = %v, want ErrInvalidOperation", err)
	}
	if err := timer.MarkSkipped(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("MarkSkipped without session error = %v, want ErrInvalidOperation", err)
	}

	if err := timer.Configure(3, 100); err != nil {
		t.Fatal(err)
	}
	timer.Start()
	tickN(timer, 40)
	if err := timer.MarkDone(); err != nil {
		t.Fatal(err)
	}

	state := timer.Snapshot()
	if state.CurrentQuestionIndex != 2 || state.RemainingSeconds != 100 {
		t.Fatalf("index/remaining = %d/%d, want 2/100", state.CurrentQuestionIndex, state.RemainingSeconds)
	}
	if r := state.Records[0]; r.Status != models.QuestionStatusDone || r.TimeSpentSeconds != 40 {
		t.Errorf("Records[0] = %+v, want Done after 40s", r)
	}
	if !state.IsRunning {
		t.Error("expected the clock to keep running across questions")
	}

	tickN(timer, 7)
	if err := timer.MarkSkipped(); err != nil {
		t.Fatal(err)
	}
	state = timer.Snapshot()
	if r := state.Records[1]; r.Status != models.QuestionStatusSkipped || r.TimeSpentSeconds != 7 {
		t.Errorf("Records[1] = %+v, want Skipped after 7s", r)
	}
	if state.Records[2].Status != models.QuestionStatusPending {
		t.Errorf("Records[2] = %+v, want Pending", state.Records[2])
	}
}

func TestAdvance_ClearsPrompt(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	if err := timer.Configure(2, 11); err != nil {
		t.Fatal(err)
	}
	timer.Start()
	timer.Tick()
	if !timer.Snapshot().ExtensionPromptVisible {
		t.Fatal("expected prompt")
	}
	if err := timer.MarkSkipped(); err != nil {
		t.Fatal(err)
	}
	if timer.Snapshot().ExtensionPromptVisible {
		t.Error("expected advance to clear the prompt")
	}
}

func TestCompletion_IsTerminal(t *testing.T) {
	timer, _, ch := newTestTimer(t)
	if err := timer.Configure(2, 20); err != nil {
		t.Fatal(err)
	}
	timer.Start()
	if err := timer.MarkDone(); err != nil {
		t.Fatal(err)
	}
	tickN(timer, 5)
	if err := timer.MarkDone(); err != nil {
		t.Fatal(err)
	}

	state := timer.Snapshot()
	if !state.SessionCompleted || state.IsRunning {
		t.Fatalf("completed=%v running=%v, want true/false", state.SessionCompleted, state.IsRunning)
	}
	if state.Phase != models.PhaseCompleted {
		t.Errorf("Phase = %s, want %s", state.Phase, models.PhaseCompleted)
	}
	if state.CurrentQuestionIndex != 2 {
		t.Errorf("CurrentQuestionIndex = %d, want 2", state.CurrentQuestionIndex)
	}

	ev := waitForEvent(t, ch, events.EventTypeSessionCompleted)
	if stats := ev.Payload.(events.SessionCompletedPayload).Stats; stats.CompletedCount != 2 || stats.TotalTimeSpent != 5 {
		t.Errorf("completion stats = %+v", stats)
	}

	if err := timer.MarkDone(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("MarkDone after completion error = %v", err)
	}
	if err := timer.MarkSkipped(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("MarkSkipped after completion error = %v", err)
	}
	timer.Tick()
	timer.Start()
	timer.Stop()
	if diff := cmp.Diff(state, timer.Snapshot()); diff != "" {
		t.Errorf("completed session mutated (-want +got):\n%s", diff)
	}
}

// Source-faithful walkthrough: time spent is measured against the allotted
// budget, so the extended third question records a negative value.
func TestSessionWalkthrough(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	if err := timer.Configure(3, 10); err != nil {
		t.Fatal(err)
	}
	timer.Start()

	tickN(timer, 10)
	state := timer.Snapshot()
	if state.RemainingSeconds != 0 || state.CurrentQuestionIndex != 1 {
		t.Fatalf("after 10 ticks: index=%d remaining=%d", state.CurrentQuestionIndex, state.RemainingSeconds)
	}
	timer.Tick() // expiry tick
	state = timer.Snapshot()
	if state.CurrentQuestionIndex != 2 || state.RemainingSeconds != 10 {
		t.Fatalf("after expiry: index=%d remaining=%d", state.CurrentQuestionIndex, state.RemainingSeconds)
	}

	if err := timer.MarkDone(); err != nil {
		t.Fatal(err)
	}

	tickN(timer, 5)
	if err := timer.GrantExtension(30); err != nil {
		t.Fatal(err)
	}
	state = timer.Snapshot()
	if state.RemainingSeconds != 35 || state.Records[2].ExtensionsGranted != 1 {
		t.Fatalf("after extension: remaining=%d extensions=%d", state.RemainingSeconds, state.Records[2].ExtensionsGranted)
	}

	if err := timer.MarkSkipped(); err != nil {
		t.Fatal(err)
	}

	want := []models.QuestionRecord{
		{QuestionNumber: 1, AllottedSeconds: 10, TimeSpentSeconds: 10, Status: models.QuestionStatusTimedOut},
		{QuestionNumber: 2, AllottedSeconds: 10, TimeSpentSeconds: 0, Status: models.QuestionStatusDone},
		{QuestionNumber: 3, AllottedSeconds: 10, TimeSpentSeconds: -25, Status: models.QuestionStatusSkipped, ExtensionsGranted: 1},
	}
	state = timer.Snapshot()
	if diff := cmp.Diff(want, state.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if !state.SessionCompleted || state.IsRunning {
		t.Errorf("completed=%v running=%v", state.SessionCompleted, state.IsRunning)
	}

	stats := timer.Stats()
	wantStats := models.SessionStats{TotalTimeSpent: -15, CompletedCount: 1, SkippedCount: 1, TimeoutCount: 1, ExtensionsGranted: 1}
	if stats != wantStats {
		t.Errorf("Stats() = %+v, want %+v", stats, wantStats)
	}
}

func TestReset(t *testing.T) {
	timer, clock, ch := newTestTimer(t)
	if err := timer.Configure(4, 11); err != nil {
		t.Fatal(err)
	}
	timer.Start()
	timer.Tick()
	if err := timer.GrantExtension(30); err != nil {
		t.Fatal(err)
	}
	if err := timer.MarkSkipped(); err != nil {
		t.Fatal(err)
	}
	timer.Tick()

	timer.Reset()
	timer.Reset()

	want := models.SessionState{
		Phase:                models.PhaseIdle,
		CurrentQuestionIndex: 1,
		Records:              []models.QuestionRecord{},
	}
	if diff := cmp.Diff(want, timer.Snapshot()); diff != "" {
		t.Errorf("reset snapshot mismatch (-want +got):\n%s", diff)
	}

	resets := 0
	for _, ev := range drainEvents(ch, 20*time.Millisecond) {
		if ev.Type == events.EventTypeSessionReset {
			resets++
		}
	}
	if resets != 1 {
		t.Errorf("SessionReset emitted %d times, want 1", resets)
	}

	clock.Advance(10 * time.Second)
	for _, ev := range drainEvents(ch, 50*time.Millisecond) {
		t.Errorf("unexpected %s event after reset", ev.Type)
	}
}

func TestCadence_TicksEverySecond(t *testing.T) {
	timer, clock, ch := newTestTimer(t)
	if err := timer.Configure(1, 3); err != nil {
		t.Fatal(err)
	}
	timer.Start()

	for _, want := range []int{2, 1, 0} {
		clock.Advance(TickInterval)
		ev := waitForEvent(t, ch, events.EventTypeTimerTick)
		if got := ev.Payload.(events.TimerTickPayload).RemainingSeconds; got != want {
			t.Fatalf("tick remaining = %d, want %d", got, want)
		}
	}

	clock.Advance(TickInterval)
	ev := waitForEvent(t, ch, events.EventTypeQuestionFinalized)
	if got := ev.Payload.(events.QuestionFinalizedPayload).Record.Status; got != models.QuestionStatusTimedOut {
		t.Errorf("status = %s, want %s", got, models.QuestionStatusTimedOut)
	}
	waitForEvent(t, ch, events.EventTypeSessionCompleted)

	if state := timer.Snapshot(); state.IsRunning || !state.SessionCompleted {
		t.Errorf("state after timeout = %+v", state)
	}
}

func TestCadence_StopCancelsTicks(t *testing.T) {
	timer, clock, ch := newTestTimer(t)
	if err := timer.Configure(1, 60); err != nil {
		t.Fatal(err)
	}
	timer.Start()
	clock.Advance(TickInterval)
	waitForEvent(t, ch, events.EventTypeTimerTick)

	timer.Stop()
	clock.Advance(5 * TickInterval)
	for _, ev := range drainEvents(ch, 50*time.Millisecond) {
		if ev.Type == events.EventTypeTimerTick {
			t.Error("tick delivered after Stop")
		}
	}
	if got := timer.Snapshot().RemainingSeconds; got != 59 {
		t.Errorf("RemainingSeconds = %d, want 59", got)
	}

	// Resuming picks up where it stopped.
	timer.Start()
	clock.Advance(TickInterval)
	ev := waitForEvent(t, ch, events.EventTypeTimerTick)
	if got := ev.Payload.(events.TimerTickPayload).RemainingSeconds; got != 58 {
		t.Errorf("RemainingSeconds after resume = %d, want 58", got)
	}
}

func TestPromptAutoDismiss(t *testing.T) {
	timer, clock, ch := newTestTimer(t)
	if err := timer.Configure(1, 15); err != nil {
		t.Fatal(err)
	}
	timer.Start()

	for i := 0; i < 5; i++ {
		clock.Advance(TickInterval)
		waitForEvent(t, ch, events.EventTypeTimerTick)
	}
	if !timer.Snapshot().ExtensionPromptVisible {
		t.Fatal("expected prompt at 10 seconds")
	}

	for i := 0; i < 4; i++ {
		clock.Advance(TickInterval)
		waitForEvent(t, ch, events.EventTypeTimerTick)
	}
	if !timer.Snapshot().ExtensionPromptVisible {
		t.Fatal("prompt dismissed before 5 seconds")
	}

	clock.Advance(TickInterval)
	ev := waitForEvent(t, ch, events.EventTypeExtensionPromptDismissed)
	if got := ev.Payload.(events.ExtensionPromptDismissedPayload).QuestionNumber; got != 1 {
		t.Errorf("QuestionNumber = %d, want 1", got)
	}

	state := timer.Snapshot()
	if state.ExtensionPromptVisible {
		t.Error("expected prompt to be dismissed")
	}
	if state.Records[0].ExtensionsGranted != 0 || state.Records[0].Status != models.QuestionStatusPending {
		t.Errorf("dismissal touched the record: %+v", state.Records[0])
	}
}

func TestPromptAutoDismiss_ResolvedFirst(t *testing.T) {
	resolve := map[string]func(*Timer) error{
		"grant":   func(tm *Timer) error { return tm.GrantExtension(30) },
		"decline": func(tm *Timer) error { tm.DeclineExtension(); return nil },
		"stop":    func(tm *Timer) error { tm.Stop(); return nil },
	}

	for name, fn := range resolve {
		t.Run(name, func(t *testing.T) {
			timer, clock, ch := newTestTimer(t)
			if err := timer.Configure(1, 11); err != nil {
				t.Fatal(err)
			}
			timer.Start()
			timer.Tick()
			waitForEvent(t, ch, events.EventTypeExtensionPrompted)

			if err := fn(timer); err != nil {
				t.Fatal(err)
			}
			clock.Advance(ExtensionPromptTimeout)

			for _, ev := range drainEvents(ch, 50*time.Millisecond) {
				if ev.Type == events.EventTypeExtensionPromptDismissed {
					t.Error("dismissal fired after the prompt was resolved")
				}
			}
		})
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	timer := NewTimer(WithClock(clockwork.NewFakeClock()))
	ch, unsubscribe := timer.Subscribe(0)

	if err := timer.Configure(1, 30); err != nil {
		t.Fatal(err)
	}
	ev := <-ch
	if ev.Type != events.EventTypeSessionConfigured {
		t.Fatalf("first event = %s, want %s", ev.Type, events.EventTypeSessionConfigured)
	}
	if ev.SessionID == "" || ev.SessionID != ev.State.SessionID {
		t.Errorf("event session id = %q, state session id = %q", ev.SessionID, ev.State.SessionID)
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	timer.Start()
	timer.Stop()
}

func TestTimer_ConcurrentOperations(t *testing.T) {
	timer, clock, _ := newTestTimer(t)
	if err := timer.Configure(50, 20); err != nil {
		t.Fatal(err)
	}
	timer.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch (i + j) % 5 {
				case 0:
					timer.Tick()
				case 1:
					_ = timer.GrantExtension(1)
				case 2:
					timer.DeclineExtension()
				case 3:
					_ = timer.MarkDone()
				case 4:
					_ = timer.Snapshot()
				}
			}
		}(i)
	}
	go clock.Advance(3 * TickInterval)
	wg.Wait()

	state := timer.Snapshot()
	current := state.CurrentQuestionIndex - 1
	for i, r := range state.Records {
		switch {
		case i < current, i == current && state.SessionCompleted:
			if !r.Status.IsTerminal() {
				t.Errorf("record %d is %s, want a terminal status", r.QuestionNumber, r.Status)
			}
		default:
			if r.Status != models.QuestionStatusPending {
				t.Errorf("record %d is %s, want %s", r.QuestionNumber, r.Status, models.QuestionStatusPending)
			}
		}
	}
	if state.SessionCompleted && state.IsRunning {
		t.Error("completed and running at the same time")
	}
}
