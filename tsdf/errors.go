package tsdf

import "github.com/pkg/errors"

// Sentinel errors for the conditions the integrator must distinguish from an internal fault.
var (
	// ErrMismatchedLengths is returned when IntegratePointCloud is called with pointsC and
	// colors of different lengths.
	ErrMismatchedLengths = errors.New("tsdf: points and colors must have equal length")

	// ErrInvalidConfig is wrapped by TsdfIntegrator construction when the integrator config fails
	// validation.
	ErrInvalidConfig = errors.New("tsdf: invalid integrator configuration")
)
