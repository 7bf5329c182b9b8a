package single

import "testing"

func TestPortDeterministicAndInRange(t *testing.T) {
	a := Port("ClipTranslator")
	b := Port("ClipTranslator")
	if a != b {
		t.Fatalf("port not deterministic: %d vs %d", a, b)
	}
	if a < 40000 || a >= 50000 {
		t.Fatalf("port %d outside [40000, 50000)", a)
	}
}

func TestSecondAcquireFailsUntilRelease(t *testing.T) {
	const name = "single-guard-test"

	first, err := Acquire(name)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := Acquire(name); err == nil {
		t.Fatal("second acquire succeeded while lock held")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	third, err := Acquire(name)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = third.Release()
}

func TestReleaseOnNilGuard(t *testing.T) {
	var g *Guard
	if err := g.Release(); err != nil {
		t.Fatalf("nil release: %v", err)
	}
}
