package curve

import "sort"

// bracket locates t on a sorted node grid. It returns the indices of the
// two nodes around t and the weight of the upper node. Outside the grid both
// indices point at the boundary node and the weight is zero. An exact hit on
// a node returns that node alone, so repeated node times collapse onto the
// first of them.
func bracket(times []float64, t float64) (lo, hi int, w float64) {
	n := len(times)
	if n == 1 || t <= times[0] {
		return 0, 0, 0
	}
	if t >= times[n-1] {
		// first occurrence of the last node time
		idx := sort.SearchFloat64s(times, times[n-1])
		return idx, idx, 0
	}

	// first node >= t
	idx := sort.SearchFloat64s(times, t)
	if times[idx] == t {
		return idx, idx, 0
	}

	// times[idx-1] < t < times[idx]
	lo, hi = idx-1, idx
	return lo, hi, (t - times[lo]) / (times[hi] - times[lo])
}
