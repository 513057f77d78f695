package alerts

import "errors"

// ErrNotFound reports an unknown alert id.
var ErrNotFound = errors.New("alert not found")

// ErrAlreadyAcknowledged reports a second acknowledge on the same alert.
var ErrAlreadyAcknowledged = errors.New("alert already acknowledged")

// ErrAlreadyResolved reports a second resolve on the same alert.
var ErrAlreadyResolved = errors.New("alert already resolved")

// ValidationError reports a rejected alert field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
