package supervisor

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func encodeHaldorEntry(x, z float32) []byte {
	buf := make([]byte, 30)
	copy(buf, haldorMarker)
	binary.LittleEndian.PutUint32(buf[18:22], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[26:30], math.Float32bits(z))
	return buf
}

func TestHaldorZeroOccurrences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.db")
	if err := os.WriteFile(path, []byte("no marker here at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	points := scanHaldor(path)
	if len(points) != 0 {
		t.Fatalf("expected 0 points, got %v", points)
	}
}

func TestHaldorOneOccurrence(t *testing.T) {
	data := append([]byte("junk prefix "), encodeHaldorEntry(100, 200)...)
	points := scanHaldorBytes(data)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %v", points)
	}
	if points[0].X != 100 || points[0].Z != 200 {
		t.Errorf("unexpected point: %+v", points[0])
	}
}

func TestHaldorTwoOccurrencesSortedByDistance(t *testing.T) {
	var data []byte
	data = append(data, encodeHaldorEntry(300, 400)...) // distance 500, farther
	data = append(data, []byte("filler")...)
	data = append(data, encodeHaldorEntry(3, 4)...) // distance 5, nearer

	points := scanHaldorBytes(data)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %v", points)
	}
	if points[0].X != 3 || points[0].Z != 4 {
		t.Errorf("expected the nearer point first, got %+v", points[0])
	}
	if points[1].X != 300 || points[1].Z != 400 {
		t.Errorf("expected the farther point second, got %+v", points[1])
	}
}

func TestHaldorUnreadableFileReturnsEmpty(t *testing.T) {
	points := scanHaldor(filepath.Join(t.TempDir(), "does-not-exist.db"))
	if len(points) != 0 {
		t.Fatalf("expected empty list for an unreadable file, got %v", points)
	}
}
