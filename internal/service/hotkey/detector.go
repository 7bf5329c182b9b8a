package hotkey

import "time"

// DoubleCopyDetector распознает двойное нажатие Ctrl+C. Хранится единственная
// отметка времени: значимы только последовательные пары, а сработавшая пара
// сбрасывает окно, и третий быстрый повтор не даёт второго срабатывания без
// новой пары. Не потокобезопасен: владелец — горутина координатора.
type DoubleCopyDetector struct {
	interval time.Duration
	last     time.Time
}

func NewDoubleCopyDetector(interval time.Duration) *DoubleCopyDetector {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &DoubleCopyDetector{interval: interval}
}

// OnSignal регистрирует сигнал копирования; true — пара собрана в пределах окна.
func (d *DoubleCopyDetector) OnSignal(now time.Time) bool {
	if !d.last.IsZero() && now.Sub(d.last) <= d.interval {
		d.last = time.Time{}
		return true
	}
	d.last = now
	return false
}

// Reset сбрасывает накопленное состояние.
func (d *DoubleCopyDetector) Reset() {
	d.last = time.Time{}
}

// Interval возвращает действующее окно двойного нажатия.
func (d *DoubleCopyDetector) Interval() time.Duration { return d.interval }
