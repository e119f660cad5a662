//go:build !cuda || purego || js

package gpuvision

func acceleratorDeviceCount() int { return 0 }

func newAcceleratedBackend() (backend, error) {
	return nil, ErrAcceleratorUnavailable
}
