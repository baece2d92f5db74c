package av

import "errors"

var (
	// ErrNoDevices is returned when a worker is created without its device
	// collaborator.
	ErrNoDevices = errors.New("media devices required")

	// ErrNoMediaEngine is returned when a worker is created without the
	// media engine.
	ErrNoMediaEngine = errors.New("media engine required")

	// ErrDeviceIndex indicates a device index outside the enumerated range.
	ErrDeviceIndex = errors.New("device index out of range")

	// ErrDeviceClosed is returned by devices read or written while closed.
	ErrDeviceClosed = errors.New("device not open")
)
