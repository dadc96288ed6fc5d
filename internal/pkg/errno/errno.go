// Package errno defines the error taxonomy shared by the storage layer and
// its callers. Three classes exist and callers are expected to tell them
// apart:
//
//   - ConnectionError: a backend is unreachable or unopenable. The sync
//     coordinator is the only component allowed to recover from this class
//     (by falling back to the filesystem store).
//   - StorageError: a row-level engine failure such as a malformed statement
//     or a constraint violation. Never treated as "not found", never
//     recovered silently.
//   - SynapseError: configuration failures, unsupported backend types,
//     schema initialization failures, and wrapped filesystem I/O errors.
//     Fatal to the operation in progress.
package errno

import (
	"errors"
	"fmt"
)

// ConnectionError marks a backend as unreachable or unopenable.
type ConnectionError struct {
	Engine string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Engine, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError wraps err as a connection-class failure of engine.
func NewConnectionError(engine string, err error) *ConnectionError {
	return &ConnectionError{Engine: engine, Err: err}
}

// IsConnection reports whether err is (or wraps) a connection-class failure.
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// StorageError marks a row-level engine failure.
type StorageError struct {
	Engine string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Engine, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a row-level failure of op on engine.
func NewStorageError(engine, op string, err error) *StorageError {
	return &StorageError{Engine: engine, Op: op, Err: err}
}

// SynapseError is the catch-all for configuration resolution failures,
// unsupported backend types, schema initialization failures, and wrapped
// filesystem I/O errors. The original cause is always preserved.
type SynapseError struct {
	Op  string
	Err error
}

func (e *SynapseError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SynapseError) Unwrap() error { return e.Err }

// NewSynapseError wraps err with the failing operation description.
func NewSynapseError(op string, err error) *SynapseError {
	return &SynapseError{Op: op, Err: err}
}

// Synapsef builds a SynapseError with a formatted operation description and
// no underlying cause.
func Synapsef(format string, args ...interface{}) *SynapseError {
	return &SynapseError{Op: fmt.Sprintf(format, args...)}
}
