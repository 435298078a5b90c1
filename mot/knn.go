package mot

import "sort"

const (
	// noMatch is returned by findClosestMatch when there are no candidates
	noMatch = -1
)

// neighbour is a candidate detection with its distance to the tracked blob
type neighbour struct {
	index    int
	distance float64
}

// vote accumulates neighbours for a single detection index
type vote struct {
	count    int
	distance float64
}

// neighbours keeps up to k closest candidates sorted by distance (ascending)
type neighbours struct {
	k     int
	items []neighbour
}

func newNeighbours(k int) *neighbours {
	return &neighbours{
		k:     k,
		items: make([]neighbour, 0, k+1),
	}
}

// offer inserts candidate before the first item with a distance greater or equal to the candidate's one.
// So on equal distances the later scanned detection goes first and may push the earlier one out of the list.
func (nb *neighbours) offer(candidate neighbour) {
	pos := sort.Search(len(nb.items), func(i int) bool {
		return nb.items[i].distance >= candidate.distance
	})
	if pos == len(nb.items) && len(nb.items) >= nb.k {
		return
	}
	nb.items = append(nb.items, neighbour{})
	copy(nb.items[pos+1:], nb.items[pos:])
	nb.items[pos] = candidate
	// Too many items in list: get rid of the farthest one
	if len(nb.items) > nb.k {
		nb.items = nb.items[:nb.k]
	}
}

// findClosestMatch returns index of the detection which is the best match for the target position or noMatch.
//
// Any detection within earlyExitThreshold is returned immediately (scan order).
// Otherwise k nearest detections vote and the one with the most votes wins, ties are broken by accumulated distance.
// Since every detection index appears in the list once at most, each vote count is 1 and the result is
// effectively the first entry of the sorted neighbour list. This mirrors k-NN classification with indices used as
// labels; the nearest-neighbour outcome is what reconciliation relies on, so it is kept as is.
func findClosestMatch(detections []Detection, target Point, k int, earlyExitThreshold float64) int {
	nb := newNeighbours(k)
	for i := range detections {
		dist := euclideanDistance(detections[i].Position, target)
		if dist <= earlyExitThreshold {
			return i
		}
		nb.offer(neighbour{index: i, distance: dist})
	}

	winner := noMatch
	votes := make(map[int]vote, len(nb.items))
	for _, item := range nb.items {
		v := votes[item.index]
		v.count++
		v.distance += item.distance
		votes[item.index] = v
		// Missing key (noMatch) yields zero vote, so the first neighbour always takes the lead
		best := votes[winner]
		if v.count > best.count || (v.count == best.count && v.distance < best.distance) {
			winner = item.index
		}
	}
	return winner
}
