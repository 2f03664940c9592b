package dal

import "errors"

var (
	// ErrIncompletePrediction is returned when a submission lacks name, fighter or round
	ErrIncompletePrediction = errors.New("incomplete prediction")
	// ErrUnknownDriver is returned by Open for an unsupported driver name
	ErrUnknownDriver = errors.New("unknown db driver")
)
