package sbt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLeafLoader is returned by Load when LoadOptions.LeafLoader is nil.
	ErrNoLeafLoader = errors.New("sbt: no leaf loader")
	// ErrUnsupportedBackend is returned by Load for descriptors naming a
	// storage backend it cannot open on its own.
	ErrUnsupportedBackend = errors.New("sbt: unsupported storage backend")
	// ErrInvalidDescriptor is returned for malformed tree descriptors.
	ErrInvalidDescriptor = errors.New("sbt: invalid descriptor")
)

// VersionMismatchError is returned when a descriptor has a format version
// that cannot be read.
type VersionMismatchError struct {
	Version   int
	Supported int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("sbt: descriptor version %d is not supported (current version is %d, oldest readable is %d)",
		e.Version, e.Supported, MinVersion)
}
