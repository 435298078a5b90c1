package mot

// Detection is a single blob observed on one frame. It carries no identity.
// Bounds and Hull are optional: nil means the detector did not compute them.
type Detection struct {
	Position Point
	Bounds   *Rectangle
	Hull     Hull
}

// NewDetection creates detection with centroid only
func NewDetection(position Point) Detection {
	return Detection{
		Position: position,
	}
}

// NewDetectionWithBounds creates detection with centroid and bounding box
func NewDetectionWithBounds(position Point, bounds Rectangle) Detection {
	return Detection{
		Position: position,
		Bounds:   &bounds,
	}
}

// TrackedEntity is a blob identity which lives across frames.
// Values returned by the tracker are snapshots: changing them does not affect the tracker.
type TrackedEntity struct {
	id               int32
	position         Point
	previousPosition Point
	bounds           *Rectangle
	hull             Hull
	estimate         Point
	hasEstimate      bool
}

func newTrackedEntity(id int32, detection Detection) TrackedEntity {
	return TrackedEntity{
		id:               id,
		position:         detection.Position,
		previousPosition: detection.Position,
		bounds:           copyBounds(detection.Bounds),
		hull:             detection.Hull.Clone(),
	}
}

func copyBounds(bounds *Rectangle) *Rectangle {
	if bounds == nil {
		return nil
	}
	cp := *bounds
	return &cp
}

// assign replaces geometry with the matched detection and remembers the old centroid
func (entity *TrackedEntity) assign(detection Detection) {
	entity.previousPosition = entity.position
	entity.position = detection.Position
	entity.bounds = copyBounds(detection.Bounds)
	entity.hull = detection.Hull.Clone()
}

// snapshot returns copy which shares no memory with the entity
func (entity TrackedEntity) snapshot() TrackedEntity {
	cp := entity
	cp.bounds = copyBounds(entity.bounds)
	cp.hull = entity.hull.Clone()
	return cp
}

// GetID returns blob's identifier
func (entity TrackedEntity) GetID() int32 {
	return entity.id
}

// GetCenter returns blob's current centroid
func (entity TrackedEntity) GetCenter() Point {
	return entity.position
}

// GetPrevCenter returns blob's centroid on the previous frame
func (entity TrackedEntity) GetPrevCenter() Point {
	return entity.previousPosition
}

// GetBBox returns blob's bounding box and whether detector provided one
func (entity TrackedEntity) GetBBox() (Rectangle, bool) {
	if entity.bounds == nil {
		return Rectangle{}, false
	}
	return *entity.bounds, true
}

// GetHull returns copy of blob's convex hull (nil if not computed)
func (entity TrackedEntity) GetHull() Hull {
	return entity.hull.Clone()
}

// GetEstimate returns Kalman-filtered centroid. Second value is false when motion estimation is disabled.
func (entity TrackedEntity) GetEstimate() (Point, bool) {
	return entity.estimate, entity.hasEstimate
}

// Displacement returns distance between previous and current centroids
func (entity TrackedEntity) Displacement() float64 {
	return euclideanDistance(entity.previousPosition, entity.position)
}

// DistanceTo returns distance from blob's centroid to the given point
func (entity TrackedEntity) DistanceTo(point Point) float64 {
	return euclideanDistance(entity.position, point)
}
