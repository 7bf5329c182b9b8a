package clipboard

import "errors"

// Clipboard — синхронный доступ к системному буферу обмена. Чтение отдаёт
// текст как есть, без обрезки: решение о «пустоте» принимает вызывающий.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// ErrUnavailable: буфер занят другим процессом или формат не текстовый.
var ErrUnavailable = errors.New("clipboard: unavailable")

// New возвращает платформенную реализацию (Windows).
func New() (Clipboard, error) { return newPlatform() }
