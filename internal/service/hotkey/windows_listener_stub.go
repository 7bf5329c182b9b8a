//go:build !windows

package hotkey

import "errors"

// На не-Windows платформах низкоуровневый хук клавиатуры недоступен.
func newWinSource() (RawSource, error) {
	return nil, errors.New("hotkey: keyboard hook unavailable on this platform")
}
