//go:build !windows

package clipboard

import "errors"

func newPlatform() (Clipboard, error) {
	return nil, errors.New("clipboard: not supported on this platform")
}
