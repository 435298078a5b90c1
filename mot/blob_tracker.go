package mot

import (
	"io"
	"log/slog"
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrEvenNeighbours is returned when number of nearest neighbours is not a positive odd number
	ErrEvenNeighbours = errors.New("number of neighbours must be positive odd number")
	// ErrNegativeThreshold is returned when distance threshold is negative or NaN
	ErrNegativeThreshold = errors.New("threshold must be non-negative")
	// ErrInvalidTimeStep is returned when motion estimation time step is not positive
	ErrInvalidTimeStep = errors.New("time step must be positive")
)

const (
	// DefaultNeighbours is number of nearest detections which vote for the match
	DefaultNeighbours = 3
	// DefaultEarlyExitThreshold disables early exit (only exact position hit returns immediately)
	DefaultEarlyExitThreshold = 0.0
	// DefaultMovedEpsilon is minimal displacement (normalized units) for "moved" event
	DefaultMovedEpsilon = 0.001

	// unclaimed marks detection which has not been claimed by any track in current frame
	unclaimed = -1
)

// trackState is alive/dead tag of a track inside single Update call
type trackState uint8

const (
	trackAlive trackState = iota
	trackDead
)

// track is tracker's storage record: the entity itself plus per-frame bookkeeping
type track struct {
	entity    TrackedEntity
	state     trackState
	detection int
	motion    *motionEstimator
}

// BlobTracker assigns stable identifiers to blobs detected independently on successive frames.
// It is not safe for concurrent use: frames must be passed one by one from a single goroutine.
type BlobTracker struct {
	// Tracks in order of appearance. Earlier tracks are reconciled first
	tracks []track
	// Next identifier. Starts from 1 and is never reset (even by Reset())
	idCounter int32
	// Number of nearest neighbours for voting. Default is 3
	k int
	// Any detection closer than this is matched immediately. Default is 0
	earlyExitThreshold float64
	// Minimal displacement for "moved" event. Default is 0.001
	movedEpsilon float64
	// Time step for Kalman motion estimate. Zero means estimation is disabled
	motionTimeStep float64

	beganSig *blobSignal
	movedSig *blobSignal
	endedSig *blobSignal

	logger *slog.Logger
}

// NewBlobTrackerDefault creates default instance of BlobTracker
func NewBlobTrackerDefault() *BlobTracker {
	return &BlobTracker{
		tracks:             make([]track, 0),
		idCounter:          1,
		k:                  DefaultNeighbours,
		earlyExitThreshold: DefaultEarlyExitThreshold,
		movedEpsilon:       DefaultMovedEpsilon,
		beganSig:           newBlobSignal(EventBegan),
		movedSig:           newBlobSignal(EventMoved),
		endedSig:           newBlobSignal(EventEnded),
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NewBlobTracker creates new instance of BlobTracker
func NewBlobTracker(k int, earlyExitThreshold, movedEpsilon float64) (*BlobTracker, error) {
	if k < 1 || k%2 == 0 {
		return nil, errors.Wrapf(ErrEvenNeighbours, "got %d", k)
	}
	if math.IsNaN(earlyExitThreshold) || earlyExitThreshold < 0 {
		return nil, errors.Wrapf(ErrNegativeThreshold, "early exit threshold %f", earlyExitThreshold)
	}
	if math.IsNaN(movedEpsilon) || movedEpsilon < 0 {
		return nil, errors.Wrapf(ErrNegativeThreshold, "moved epsilon %f", movedEpsilon)
	}
	tracker := NewBlobTrackerDefault()
	tracker.k = k
	tracker.earlyExitThreshold = earlyExitThreshold
	tracker.movedEpsilon = movedEpsilon
	return tracker, nil
}

// SetLogger sets logger for reconciliation diagnostics. Nil restores the discarding logger
func (tracker *BlobTracker) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tracker.logger = logger
}

// EnableMotionEstimate attaches Kalman filter with given time step to every track created afterwards
func (tracker *BlobTracker) EnableMotionEstimate(dt float64) error {
	if math.IsNaN(dt) || dt <= 0 {
		return errors.Wrapf(ErrInvalidTimeStep, "got %f", dt)
	}
	tracker.motionTimeStep = dt
	return nil
}

// Update advances tracker by one frame.
//
// It runs in three phases:
//  1. Every track (in order) picks the closest detection. Track without candidates dies.
//     When detection has been claimed already, the track closer to it keeps the claim and the other one dies.
//     The loser does not try to get any other detection.
//  2. Dead tracks are removed, live ones take geometry of their detections.
//  3. Unclaimed detections start new tracks.
//
// Handlers are called synchronously while Update is running: ended, then moved, then began.
func (tracker *BlobTracker) Update(detections []Detection) {
	claims := make([]int, len(detections))
	for i := range claims {
		claims[i] = unclaimed
	}

	// Step 1: claim resolution
	for i := range tracker.tracks {
		current := &tracker.tracks[i]
		winner := findClosestMatch(detections, current.entity.position, tracker.k, tracker.earlyExitThreshold)
		if winner == noMatch {
			tracker.kill(i)
			continue
		}
		owner := claims[winner]
		if owner == unclaimed || tracker.tracks[owner].state == trackDead {
			tracker.claim(claims, winner, i)
			continue
		}
		target := detections[winner].Position
		distOwner := tracker.tracks[owner].entity.DistanceTo(target)
		distCurrent := current.entity.DistanceTo(target)
		tracker.logger.Debug("detection conflict",
			"detection", winner,
			"owner", tracker.tracks[owner].entity.id, "owner_distance", distOwner,
			"contender", current.entity.id, "contender_distance", distCurrent,
		)
		if distCurrent < distOwner {
			tracker.claim(claims, winner, i)
			tracker.kill(owner)
		} else {
			tracker.kill(i)
		}
	}

	// Step 2: prune dead tracks and update live ones
	alive := tracker.tracks[:0]
	for i := range tracker.tracks {
		if tracker.tracks[i].state == trackDead {
			continue
		}
		alive = append(alive, tracker.tracks[i])
	}
	// Drop references kept in the tail
	for i := len(alive); i < len(tracker.tracks); i++ {
		tracker.tracks[i] = track{}
	}
	tracker.tracks = alive

	for i := range tracker.tracks {
		current := &tracker.tracks[i]
		current.entity.assign(detections[current.detection])
		tracker.estimate(current)
		if current.entity.Displacement() > tracker.movedEpsilon {
			tracker.movedSig.emit(current.entity)
		}
	}

	// Step 3: register new tracks
	for j := range detections {
		if claims[j] != unclaimed {
			continue
		}
		created := track{
			entity:    newTrackedEntity(tracker.idCounter, detections[j]),
			state:     trackAlive,
			detection: j,
		}
		tracker.idCounter++
		if tracker.motionTimeStep > 0 {
			created.motion = newMotionEstimator(created.entity.position, tracker.motionTimeStep)
			created.entity.estimate = created.entity.position
			created.entity.hasEstimate = true
		}
		tracker.tracks = append(tracker.tracks, created)
		tracker.logger.Debug("track began", "id", created.entity.id, "detection", j)
		tracker.beganSig.emit(created.entity)
	}
}

// claim assigns detection to the track
func (tracker *BlobTracker) claim(claims []int, detection, trackIdx int) {
	claims[detection] = trackIdx
	tracker.tracks[trackIdx].detection = detection
}

// kill marks track as dead and emits "ended" right away. Track is removed on the second step
func (tracker *BlobTracker) kill(trackIdx int) {
	dead := &tracker.tracks[trackIdx]
	dead.state = trackDead
	dead.detection = unclaimed
	tracker.logger.Debug("track ended", "id", dead.entity.id)
	tracker.endedSig.emit(dead.entity)
}

// estimate feeds new centroid into Kalman filter (if any)
func (tracker *BlobTracker) estimate(current *track) {
	if current.motion == nil {
		return
	}
	estimated, err := current.motion.step(current.entity.position)
	if err != nil {
		tracker.logger.Warn("motion estimate failed", "id", current.entity.id, "error", err)
	}
	current.entity.estimate = estimated
	current.entity.hasEstimate = true
}

// Reset drops all tracks immediately. No "ended" events are emitted. Identifier counter keeps its value
func (tracker *BlobTracker) Reset() {
	tracker.tracks = make([]track, 0)
}

// GetTrackedEntities returns snapshot of live tracks in reconciliation order
func (tracker *BlobTracker) GetTrackedEntities() []TrackedEntity {
	entities := make([]TrackedEntity, len(tracker.tracks))
	for i := range tracker.tracks {
		entities[i] = tracker.tracks[i].entity.snapshot()
	}
	return entities
}

// GetNumBlobs returns number of live tracks
func (tracker *BlobTracker) GetNumBlobs() int {
	return len(tracker.tracks)
}

// ConnectBlobsBegan registers handler for "began" events
func (tracker *BlobTracker) ConnectBlobsBegan(handler BlobHandler) Connection {
	return tracker.beganSig.connect(handler)
}

// ConnectBlobsMoved registers handler for "moved" events
func (tracker *BlobTracker) ConnectBlobsMoved(handler BlobHandler) Connection {
	return tracker.movedSig.connect(handler)
}

// ConnectBlobsEnded registers handler for "ended" events
func (tracker *BlobTracker) ConnectBlobsEnded(handler BlobHandler) Connection {
	return tracker.endedSig.connect(handler)
}

// ConnectBlobCallbacks registers handlers for all three channels at once
func (tracker *BlobTracker) ConnectBlobCallbacks(began, moved, ended BlobHandler) [3]Connection {
	return [3]Connection{
		tracker.ConnectBlobsBegan(began),
		tracker.ConnectBlobsMoved(moved),
		tracker.ConnectBlobsEnded(ended),
	}
}

// Disconnect unregisters single handler. Returns false if it has been unregistered already
func (tracker *BlobTracker) Disconnect(conn Connection) bool {
	signal := tracker.signal(conn.kind)
	if signal == nil {
		return false
	}
	return signal.disconnect(conn.id)
}

// DisconnectBlobCallbacks unregisters every handler on every channel
func (tracker *BlobTracker) DisconnectBlobCallbacks() {
	tracker.beganSig.disconnectAll()
	tracker.movedSig.disconnectAll()
	tracker.endedSig.disconnectAll()
}

// NumHandlers returns number of handlers registered for the given channel
func (tracker *BlobTracker) NumHandlers(kind EventKind) int {
	signal := tracker.signal(kind)
	if signal == nil {
		return 0
	}
	return signal.len()
}

func (tracker *BlobTracker) signal(kind EventKind) *blobSignal {
	switch kind {
	case EventBegan:
		return tracker.beganSig
	case EventMoved:
		return tracker.movedSig
	case EventEnded:
		return tracker.endedSig
	default:
		return nil
	}
}
