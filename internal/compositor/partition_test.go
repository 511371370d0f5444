package compositor

import (
	"sort"
	"testing"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
)

func mustRegion(t *testing.T) geo.Region {
	t.Helper()
	r, err := geo.NewRegion(10, -10, -10, 10)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	return r
}

func TestStationIntervalsDisjointAcrossStations(t *testing.T) {
	cands := []candidate{
		{index: 0, lon: -2, lat: 0, rangeDeg: 3, priority: 1},
		{index: 1, lon: 2, lat: 0, rangeDeg: 3, priority: 1},
	}

	var all [][2]float64
	for _, d := range cands {
		var neighbors []candidate
		for _, n := range cands {
			if n.index != d.index {
				neighbors = append(neighbors, n)
			}
		}
		all = append(all, stationIntervals(d, neighbors, 0, -10, 10)...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i][0] < all[j][0] })
	for i := 1; i < len(all); i++ {
		if all[i][0] < all[i-1][1]-1e-9 {
			t.Fatalf("intervals overlap: %v and %v", all[i-1], all[i])
		}
	}
}

func TestStationIntervalsCoverScanline(t *testing.T) {
	cands := []candidate{
		{index: 0, lon: -2, lat: 0, rangeDeg: 5, priority: 1},
		{index: 1, lon: 2, lat: 0, rangeDeg: 5, priority: 1},
	}

	xMin, xMax := -10.0, 10.0
	var all [][2]float64
	for _, d := range cands {
		var neighbors []candidate
		for _, n := range cands {
			if n.index != d.index {
				neighbors = append(neighbors, n)
			}
		}
		all = append(all, stationIntervals(d, neighbors, 0, xMin, xMax)...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i][0] < all[j][0] })

	covered := 0.0
	for _, iv := range all {
		covered += iv[1] - iv[0]
	}

	wantCovered := (cands[1].lon + cands[1].rangeDeg) - (cands[0].lon - cands[0].rangeDeg)
	if covered < wantCovered-1e-6 {
		t.Errorf("covered %v, want at least %v (the union of both stations' disks intersected with the scanline)", covered, wantCovered)
	}
}

func TestStationIntervalsHigherPriorityWins(t *testing.T) {
	// Station 1 has higher priority and its disk lies entirely inside station
	// 0's disk.
	cands := []candidate{
		{index: 0, lon: 0, lat: 0, rangeDeg: 5, priority: 0},
		{index: 1, lon: 0, lat: 0, rangeDeg: 3, priority: 1},
	}

	neighborsFor1 := []candidate{cands[0]}
	station1Intervals := stationIntervals(cands[1], neighborsFor1, 0, -10, 10)
	if len(station1Intervals) == 0 {
		t.Fatalf("higher priority station got no intervals")
	}

	// At x=0 (inside both disks), station 0 must not own the point since
	// station 1 has higher priority and a shorter range, excluding station 0
	// from its own disk.
	neighborsFor0 := []candidate{cands[1]}
	station0Intervals := stationIntervals(cands[0], neighborsFor0, 0, -10, 10)
	for _, iv := range station0Intervals {
		if iv[0] <= 0 && 0 <= iv[1] {
			t.Errorf("lower priority station claims x=0, which falls inside the higher priority station's disk")
		}
	}
}

func TestCoalesceMergesAdjacent(t *testing.T) {
	merged := coalesce([][2]float64{{0, 1}, {1, 2}, {5, 6}, {2.0000000001, 3}})
	if len(merged) != 2 {
		t.Fatalf("got %d merged intervals, want 2: %v", len(merged), merged)
	}
	if merged[0][0] != 0 || merged[0][1] != 3 {
		t.Errorf("first merged interval = %v, want [0,3]", merged[0])
	}
}

func TestQuadraticRootsInX(t *testing.T) {
	// x^2 - 4 = 0 -> roots at -2, 2
	roots := quadraticRootsInX(1, 0, -4)
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	sort.Float64s(roots)
	if roots[0] != -2 || roots[1] != 2 {
		t.Errorf("roots = %v, want [-2, 2]", roots)
	}
}

func TestQuadraticRootsInXNoRealSolution(t *testing.T) {
	roots := quadraticRootsInX(1, 0, 4) // x^2 + 4 = 0
	if roots != nil {
		t.Errorf("expected no real roots, got %v", roots)
	}
}

func TestGridPartitionOwnerNearestInRange(t *testing.T) {
	cands := []candidate{
		{index: 0, lon: 0, lat: 0, rangeDeg: 1, priority: 0},
		{index: 1, lon: 5, lat: 0, rangeDeg: 1, priority: 0},
	}

	lonAt := func(px float64) float64 { return px/10.0 - 5 }
	latAt := func(py float64) float64 { return 0 }

	owner := gridPartitionOwner(cands, mustRegion(t), 100, 10, 10, lonAt, latAt)

	// px=50 -> lon=0, close to station 0.
	idx, ok := owner(50, 0)
	if !ok || idx != 0 {
		t.Errorf("owner(50,0) = (%d, %v), want (0, true)", idx, ok)
	}

	// Far outside both disks.
	_, ok = owner(0, 0)
	if ok {
		t.Errorf("expected no owner far outside both disks")
	}
}
