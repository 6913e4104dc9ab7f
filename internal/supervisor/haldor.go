package supervisor

import (
	"encoding/binary"
	"math"
	"os"
	"sort"

	"github.com/blockhost/gamebus/internal/events"
)

// haldorMarker is the 18-byte literal the scan searches for.
const haldorMarker = "Vendor_BlackForest"

// scanHaldor reads path and returns every Vendor_BlackForest candidate
// position, sorted nearest-to-origin first, per spec.md §4.4. An
// unreadable file yields an empty, non-error list: the haldor scan is
// advisory tooling, not a correctness-critical path.
func scanHaldor(path string) []events.HaldorPoint {
	data, err := os.ReadFile(path)
	if err != nil {
		return []events.HaldorPoint{}
	}
	return scanHaldorBytes(data)
}

func scanHaldorBytes(data []byte) []events.HaldorPoint {
	points := []events.HaldorPoint{}
	marker := []byte(haldorMarker)

	i := 0
	for {
		idx := indexFrom(data, marker, i)
		if idx < 0 {
			break
		}

		xOff := idx + 18
		zOff := idx + 26
		if zOff+4 <= len(data) {
			x := math.Float32frombits(binary.LittleEndian.Uint32(data[xOff : xOff+4]))
			z := math.Float32frombits(binary.LittleEndian.Uint32(data[zOff : zOff+4]))
			points = append(points, events.HaldorPoint{X: x, Z: z})
		}

		i = idx + len(marker) + 12
	}

	sort.SliceStable(points, func(a, b int) bool {
		return distance(points[a]) < distance(points[b])
	})
	return points
}

func indexFrom(data, marker []byte, from int) int {
	if from >= len(data) {
		return -1
	}
	for i := from; i+len(marker) <= len(data); i++ {
		if string(data[i:i+len(marker)]) == string(marker) {
			return i
		}
	}
	return -1
}

func distance(p events.HaldorPoint) float64 {
	x, z := float64(p.X), float64(p.Z)
	return math.Sqrt(x*x + z*z)
}
