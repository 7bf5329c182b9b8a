package history

import (
	"sync"
	"time"
)

// Entry — один выполненный перевод.
type Entry struct {
	Source       string    `json:"source"`
	Translated   string    `json:"translated"`
	DetectedLang string    `json:"detected_lang"`
	TargetLang   string    `json:"target_lang"`
	At           time.Time `json:"at"`
}

// Log — потокобезопасный журнал переводов фиксированной ёмкости.
type Log struct {
	cap     int
	entries []Entry
	mu      sync.Mutex
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 100
	}
	return &Log{cap: capacity, entries: make([]Entry, 0, capacity)}
}

// Add добавляет запись, при переполнении удаляет самую старую.
func (l *Log) Add(e Entry) {
	if e.Translated == "" {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	l.mu.Lock()
	if len(l.entries) == l.cap {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.cap-1]
	}
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Recent возвращает до n последних записей, новые впереди.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
