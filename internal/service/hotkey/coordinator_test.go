package hotkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func ctrlC(at time.Time) KeyEvent {
	return KeyEvent{VK: vkC, Down: true, Ctrl: true, At: at}
}

func runScripted(t *testing.T, cfg Config, steps []ScriptedKey) (Service, context.CancelFunc, chan error) {
	t.Helper()

	svc := NewWithSource(cfg, &ScriptedSource{Steps: steps}, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- svc.Run(ctx) }()
	return svc, cancel, errc
}

func waitEvent(t *testing.T, events <-chan Event, timeout time.Duration) Event {
	t.Helper()

	select {
	case ev := <-events:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func expectNoEvent(t *testing.T, events <-chan Event, within time.Duration) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(within):
	}
}

func TestCoordinatorEmitsDoubleCopy(t *testing.T) {
	t.Parallel()

	steps := []ScriptedKey{
		{After: 5 * time.Millisecond, Event: ctrlC(time.Time{})},
		{After: 20 * time.Millisecond, Event: ctrlC(time.Time{})},
	}
	svc, cancel, errc := runScripted(t, Config{Interval: 300 * time.Millisecond}, steps)
	defer cancel()

	ev := waitEvent(t, svc.Events(), 2*time.Second)
	if ev.Type != EventDoubleCopy {
		t.Fatalf("unexpected event type: %v", ev.Type)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected run error: %v", err)
	}
}

func TestCoordinatorSlowPairDoesNotFire(t *testing.T) {
	t.Parallel()

	steps := []ScriptedKey{
		{After: 5 * time.Millisecond, Event: ctrlC(time.Time{})},
		{After: 200 * time.Millisecond, Event: ctrlC(time.Time{})},
	}
	svc, cancel, _ := runScripted(t, Config{Interval: 50 * time.Millisecond}, steps)
	defer cancel()

	expectNoEvent(t, svc.Events(), 400*time.Millisecond)
}

func TestCoordinatorFourQuickCopiesFireTwice(t *testing.T) {
	t.Parallel()

	steps := make([]ScriptedKey, 4)
	for i := range steps {
		steps[i] = ScriptedKey{After: 10 * time.Millisecond, Event: ctrlC(time.Time{})}
	}
	svc, cancel, _ := runScripted(t, Config{Interval: 300 * time.Millisecond}, steps)
	defer cancel()

	waitEvent(t, svc.Events(), 2*time.Second)
	waitEvent(t, svc.Events(), 2*time.Second)
	expectNoEvent(t, svc.Events(), 150*time.Millisecond)
}

// Служебные клавиши и события без Ctrl между двумя копированиями не мешают
// распознаванию, а сами пару не образуют.
func TestCoordinatorExcludedAndPassKeysDoNotBreakPair(t *testing.T) {
	t.Parallel()

	steps := []ScriptedKey{
		{After: 5 * time.Millisecond, Event: ctrlC(time.Time{})},
		{After: 5 * time.Millisecond, Event: KeyEvent{VK: vkKana, Down: true}},
		{After: 5 * time.Millisecond, Event: KeyEvent{VK: 0x41, Down: true}},
		{After: 5 * time.Millisecond, Event: ctrlC(time.Time{})},
	}
	svc, cancel, _ := runScripted(t, Config{Interval: 300 * time.Millisecond}, steps)
	defer cancel()

	ev := waitEvent(t, svc.Events(), 2*time.Second)
	if ev.Type != EventDoubleCopy {
		t.Fatalf("unexpected event type: %v", ev.Type)
	}
}

func TestCoordinatorSingleCopyDoesNotFire(t *testing.T) {
	t.Parallel()

	steps := []ScriptedKey{
		{After: 5 * time.Millisecond, Event: ctrlC(time.Time{})},
		{After: 5 * time.Millisecond, Event: KeyEvent{VK: vkC, Down: false, Ctrl: true}},
	}
	svc, cancel, _ := runScripted(t, Config{Interval: 100 * time.Millisecond}, steps)
	defer cancel()

	expectNoEvent(t, svc.Events(), 300*time.Millisecond)
}

// После MaxFaults сбоев классификация замирает, по истечении FaultReset
// счётчик сбрасывается и распознавание продолжает работать.
func TestCoordinatorFaultFreezeAndRecovery(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Config{Interval: time.Second, MaxFaults: 3, FaultReset: 50 * time.Millisecond}, nil, zap.NewNop().Sugar())

	c.faults = 3
	c.lastFaultAt = time.Now()

	base := time.Now()
	c.handle(ctrlC(base))
	c.handle(ctrlC(base.Add(10 * time.Millisecond)))

	select {
	case ev := <-c.out:
		t.Fatalf("frozen coordinator emitted event: %+v", ev)
	default:
	}

	// давность сбоя превысила FaultReset
	c.lastFaultAt = time.Now().Add(-100 * time.Millisecond)

	c.handle(ctrlC(base.Add(20 * time.Millisecond)))
	if c.faults != 0 {
		t.Fatalf("fault counter not reset: %d", c.faults)
	}
	c.handle(ctrlC(base.Add(30 * time.Millisecond)))

	select {
	case ev := <-c.out:
		if ev.Type != EventDoubleCopy {
			t.Fatalf("unexpected event type: %v", ev.Type)
		}
	default:
		t.Fatal("recovered coordinator did not emit event")
	}
}

func TestCoordinatorEventsChannelClosesAfterRun(t *testing.T) {
	t.Parallel()

	svc, cancel, errc := runScripted(t, Config{}, nil)
	cancel()
	<-errc

	if _, ok := <-svc.Events(); ok {
		t.Fatal("events channel must be closed after Run returns")
	}
}
