//go:build windows

package hotkey

import (
	"context"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
)

// Обёртки для функций, которых может не быть в lxn/win
var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const whKeyboardLL = 13

// kbdllHookStruct повторяет KBDLLHOOKSTRUCT из WinAPI.
type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winSource struct{}

func newWinSource() (RawSource, error) { return &winSource{}, nil }

func (w *winSource) Run(ctx context.Context, out chan<- KeyEvent) {
	// Хук и цикл сообщений должны жить в закрепленном системном потоке
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	className := syscall.StringToUTF16Ptr("ClipTranslatorHiddenWindowClass")

	// Регистрация класса скрытого окна: оно держит цикл сообщений и даёт
	// аккуратно завершиться по отмене контекста
	var wc win.WNDCLASSEX
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	wc.LpfnWndProc = syscall.NewCallback(func(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
		switch msg {
		case win.WM_DESTROY:
			win.PostQuitMessage(0)
			return 0
		}
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	})
	wc.HInstance = win.GetModuleHandle(nil)
	wc.HCursor = win.LoadCursor(0, (*uint16)(unsafe.Pointer(uintptr(win.IDC_ARROW))))
	wc.LpszClassName = className
	if win.RegisterClassEx(&wc) == 0 {
		// возможно, уже зарегистрирован — пробуем продолжить
	}

	hwnd := win.CreateWindowEx(
		0,
		className,
		syscall.StringToUTF16Ptr("ClipTranslatorHiddenWindow"),
		0,
		0, 0, 0, 0, // x, y, width, height
		0, // parent
		0, // menu
		wc.HInstance,
		nil,
	)
	if hwnd == 0 {
		return
	}

	// Низкоуровневый хук клавиатуры. Обработчик снимает модификаторы в момент
	// события, отдаёт KeyEvent неблокирующей отправкой и сразу возвращает
	// событие системе: мы наблюдаем, а не перехватываем.
	var hook uintptr
	hookProc := syscall.NewCallback(func(nCode int32, wParam, lParam uintptr) uintptr {
		if nCode >= 0 && lParam != 0 {
			kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			down := wParam == win.WM_KEYDOWN || wParam == win.WM_SYSKEYDOWN
			ev := KeyEvent{
				VK:    kb.VkCode,
				Down:  down,
				Ctrl:  keyHeld(win.VK_CONTROL),
				Alt:   keyHeld(win.VK_MENU),
				Shift: keyHeld(win.VK_SHIFT),
				At:    time.Now(),
			}
			select {
			case out <- ev:
			default:
			}
		}
		r, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
		return r
	})

	if procSetWindowsHookEx.Find() != nil {
		win.DestroyWindow(hwnd)
		return
	}
	h, _, _ := procSetWindowsHookEx.Call(
		whKeyboardLL,
		hookProc,
		uintptr(win.GetModuleHandle(nil)),
		0,
	)
	if h == 0 {
		win.DestroyWindow(hwnd)
		return
	}
	hook = h

	// Цикл сообщений до отмены контекста
	msg := new(win.MSG)
	done := make(chan struct{}, 1)
	go func() {
		<-ctx.Done()
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
		done <- struct{}{}
	}()

	for {
		r := win.GetMessage(msg, 0, 0, 0)
		if r == 0 || r == -1 { // WM_QUIT или ошибка
			break
		}
		win.TranslateMessage(msg)
		win.DispatchMessage(msg)
		select {
		case <-done:
			break
		default:
		}
	}

	// Очистка
	_, _, _ = procUnhookWindowsHookEx.Call(hook)
	win.DestroyWindow(hwnd)
}

// keyHeld проверяет, зажата ли клавиша в данный момент.
func keyHeld(vk int32) bool {
	if procGetAsyncKeyState.Find() != nil {
		return false
	}
	r, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return uint16(r)&0x8000 != 0
}
