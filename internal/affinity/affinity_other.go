//go:build !linux

package affinity

import "errors"

func pinPlatform(cpu int) error {
	return errors.New("affinity: not supported on this platform")
}
