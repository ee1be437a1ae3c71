package estimation

import "github.com/pkg/errors"

var (
	// ErrNonPositiveDt is returned when an update arrives with a timestamp at or before the
	// model's last update. The model is left untouched.
	ErrNonPositiveDt = errors.New("non-positive time step")

	// ErrInvalidMeasurement is returned for a measurement with non-positive or non-finite range.
	ErrInvalidMeasurement = errors.New("invalid range-bearing measurement")

	// ErrSingularInnovation is returned when the innovation covariance cannot be inverted.
	ErrSingularInnovation = errors.New("singular innovation covariance")

	// ErrNumericalHazard is returned when an update would leave the state non-finite or the
	// inverse range non-positive. The model is restored to its pre-update estimate.
	ErrNumericalHazard = errors.New("edge model numerical hazard")
)
