package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// motionEstimator smooths blob's centroid with 2D Kalman filter.
// It never takes part in association: it only feeds TrackedEntity.GetEstimate
type motionEstimator struct {
	tracker *kalman_filter.Kalman2D
}

func newMotionEstimator(start Point, dt float64) *motionEstimator {
	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(start.X, start.Y))
	return &motionEstimator{
		tracker: kf,
	}
}

// step executes prediction and then corrects state with the measured centroid
func (estimator *motionEstimator) step(measured Point) (Point, error) {
	estimator.tracker.Predict()
	err := estimator.tracker.Update(measured.X, measured.Y)
	if err != nil {
		return measured, errors.Wrap(err, "Can't update motion estimator")
	}
	stateX, stateY := estimator.tracker.GetState()
	return Point{X: stateX, Y: stateY}, nil
}
