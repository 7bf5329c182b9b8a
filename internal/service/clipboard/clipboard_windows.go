//go:build windows

package clipboard

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

type winClipboard struct{}

func newPlatform() (Clipboard, error) { return &winClipboard{}, nil }

func (w *winClipboard) ReadText() (string, error) {
	if !win.IsClipboardFormatAvailable(win.CF_UNICODETEXT) {
		// нет текста — это не ошибка, переводить просто нечего
		return "", nil
	}
	if !win.OpenClipboard(0) {
		return "", fmt.Errorf("%w: open failed", ErrUnavailable)
	}
	defer win.CloseClipboard()

	h := win.HGLOBAL(win.GetClipboardData(win.CF_UNICODETEXT))
	if h == 0 {
		return "", fmt.Errorf("%w: no data handle", ErrUnavailable)
	}
	p := win.GlobalLock(h)
	if p == nil {
		return "", fmt.Errorf("%w: lock failed", ErrUnavailable)
	}
	defer win.GlobalUnlock(h)

	// Считать нуль-терминированную UTF-16 строку
	u16 := (*[1 << 20]uint16)(p) // ограничение 1М элементов
	var n int
	for n = 0; n < len(u16) && u16[n] != 0; n++ {
	}
	if n == 0 {
		return "", nil
	}
	return syscall.UTF16ToString(u16[:n]), nil
}

func (w *winClipboard) WriteText(text string) error {
	u16, err := syscall.UTF16FromString(text)
	if err != nil {
		return fmt.Errorf("clipboard: encode text: %w", err)
	}

	if !win.OpenClipboard(0) {
		return fmt.Errorf("%w: open failed", ErrUnavailable)
	}
	defer win.CloseClipboard()

	win.EmptyClipboard()

	size := uintptr(len(u16)) * unsafe.Sizeof(u16[0])
	h := win.GlobalAlloc(win.GHND, size)
	if h == 0 {
		return fmt.Errorf("%w: alloc failed", ErrUnavailable)
	}
	p := win.GlobalLock(h)
	if p == nil {
		win.GlobalFree(h)
		return fmt.Errorf("%w: lock failed", ErrUnavailable)
	}
	win.MoveMemory(p, unsafe.Pointer(&u16[0]), size)
	win.GlobalUnlock(h)

	if win.SetClipboardData(win.CF_UNICODETEXT, win.HANDLE(h)) == 0 {
		// при неудаче память остаётся за нами
		win.GlobalFree(h)
		return fmt.Errorf("%w: set data failed", ErrUnavailable)
	}
	return nil
}
