package errdefs

import "errors"

func isErr[T any](err error) bool {
	var target T
	return errors.As(err, &target)
}

// IsNotFound reports whether err or any error in its tree implements
// ErrNotFound.
func IsNotFound(err error) bool {
	return isErr[ErrNotFound](err)
}

// IsInvalidParameter reports whether err or any error in its tree
// implements ErrInvalidParameter.
func IsInvalidParameter(err error) bool {
	return isErr[ErrInvalidParameter](err)
}

// IsDataLoss reports whether err or any error in its tree implements
// ErrDataLoss.
func IsDataLoss(err error) bool {
	return isErr[ErrDataLoss](err)
}

// IsSystem reports whether err or any error in its tree implements
// ErrSystem.
func IsSystem(err error) bool {
	return isErr[ErrSystem](err)
}
