package mot

import (
	"github.com/google/uuid"
)

// EventKind is lifecycle stage of tracked blob
type EventKind uint16

const (
	// EventBegan is emitted when detection starts a new track
	EventBegan EventKind = iota
	// EventMoved is emitted when matched blob moved further than moved epsilon
	EventMoved
	// EventEnded is emitted when track dies
	EventEnded
)

func (kind EventKind) String() string {
	switch kind {
	case EventBegan:
		return "began"
	case EventMoved:
		return "moved"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// BlobEvent is a snapshot of the blob at the moment event has been emitted
type BlobEvent struct {
	kind EventKind
	blob TrackedEntity
}

func newBlobEvent(kind EventKind, blob TrackedEntity) BlobEvent {
	return BlobEvent{
		kind: kind,
		blob: blob.snapshot(),
	}
}

// Kind returns event's lifecycle stage
func (evt BlobEvent) Kind() EventKind {
	return evt.kind
}

// GetID returns an ID unique for the lifetime of the blob
func (evt BlobEvent) GetID() int32 {
	return evt.blob.id
}

// GetPos returns the centroid of the blob
func (evt BlobEvent) GetPos() Point {
	return evt.blob.position
}

// GetPrevPos returns the centroid of the blob on the previous frame
func (evt BlobEvent) GetPrevPos() Point {
	return evt.blob.previousPosition
}

// GetBounds returns the bounding box of the blob and whether it is known
func (evt BlobEvent) GetBounds() (Rectangle, bool) {
	return evt.blob.GetBBox()
}

// GetHull returns convex hull of the blob (nil if not computed)
func (evt BlobEvent) GetHull() Hull {
	return evt.blob.GetHull()
}

// GetBlob returns the blob snapshot
func (evt BlobEvent) GetBlob() TrackedEntity {
	return evt.blob
}

// BlobHandler is called synchronously by the tracker. Handler must not call Update of the same tracker.
type BlobHandler func(evt BlobEvent)

// Connection identifies registered handler. Use it for BlobTracker.Disconnect
type Connection struct {
	kind EventKind
	id   uuid.UUID
}

// Kind returns channel which handler is attached to
func (conn Connection) Kind() EventKind {
	return conn.kind
}

// ID returns unique identifier of the connection
func (conn Connection) ID() uuid.UUID {
	return conn.id
}

type slot struct {
	id      uuid.UUID
	handler BlobHandler
}

// blobSignal is an ordered list of handlers for a single channel
type blobSignal struct {
	kind  EventKind
	slots []slot
}

func newBlobSignal(kind EventKind) *blobSignal {
	return &blobSignal{
		kind:  kind,
		slots: make([]slot, 0),
	}
}

func (signal *blobSignal) connect(handler BlobHandler) Connection {
	conn := Connection{kind: signal.kind, id: uuid.New()}
	signal.slots = append(signal.slots, slot{id: conn.id, handler: handler})
	return conn
}

// disconnect builds a new slice, so an emit which is already running keeps iterating over the old one
func (signal *blobSignal) disconnect(id uuid.UUID) bool {
	for i := range signal.slots {
		if signal.slots[i].id != id {
			continue
		}
		slots := make([]slot, 0, len(signal.slots)-1)
		slots = append(slots, signal.slots[:i]...)
		slots = append(slots, signal.slots[i+1:]...)
		signal.slots = slots
		return true
	}
	return false
}

func (signal *blobSignal) disconnectAll() {
	signal.slots = make([]slot, 0)
}

func (signal *blobSignal) len() int {
	return len(signal.slots)
}

func (signal *blobSignal) emit(blob TrackedEntity) {
	if len(signal.slots) == 0 {
		return
	}
	evt := newBlobEvent(signal.kind, blob)
	slots := signal.slots
	for i := range slots {
		slots[i].handler(evt)
	}
}
