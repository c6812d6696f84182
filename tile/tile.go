// Package tile defines tile identity, coordinates, and profiles: the key
// space every cache tier and the scheduler address work by.
package tile

import (
	"errors"
	"hash/fnv"
)

// Edge is the fixed tile edge length in pixels.
const Edge = 256

// ErrZeroPageSize is returned by CalculateGrid when either page dimension
// is zero.
var ErrZeroPageSize = errors.New("tile: page width or height is zero")

// Profile is the fidelity level a tile was rendered at.
type Profile uint8

const (
	// Preview is a reduced-fidelity tile rendered quickly to minimize
	// page-switch latency.
	Preview Profile = iota
	// Crisp is a full-fidelity tile, the steady-state target of
	// progressive upgrade.
	Crisp
)

// String implements fmt.Stringer.
func (p Profile) String() string {
	switch p {
	case Preview:
		return "Preview"
	case Crisp:
		return "Crisp"
	default:
		return "Unknown"
	}
}

// Rotation is a page rotation in degrees, one of {0, 90, 180, 270}.
type Rotation uint16

// Valid rotation values.
const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// IsValid reports whether r is one of the four supported rotations.
func (r Rotation) IsValid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	default:
		return false
	}
}

// Coordinate is an integer (x, y) position in the fixed tile grid.
// Negative coordinates are invalid.
type Coordinate struct {
	X, Y int32
}

// IsValid reports whether both axes are non-negative.
func (c Coordinate) IsValid() bool {
	return c.X >= 0 && c.Y >= 0
}

// PixelOffset returns the coordinate's pixel origin in page-pixel space at
// the fixed tile edge length.
func (c Coordinate) PixelOffset() (x, y int) {
	return int(c.X) * Edge, int(c.Y) * Edge
}

// hashVersion documents the cache_key hash function in use. It is hashed
// into every key, so a version bump changes all keys and blobs already in
// the disk cache are no longer found. Bump it whenever the key encoding
// changes.
const hashVersion = 1

// ID is the composite identity of a tile: page, coordinate, zoom and DPR
// buckets, rotation, and profile. Two IDs with the same bucketed
// zoom/DPR but different exact values are intentionally considered the same
// cache entry — that's the point of bucketing.
type ID struct {
	PageIndex  uint16
	Coord      Coordinate
	ZoomBucket uint32
	Rotation   Rotation
	Profile    Profile
	DPRBucket  uint16
}

// New constructs a tile ID, validating rotation.
func New(page uint16, coord Coordinate, zoomBucket uint32, rotation Rotation, profile Profile, dprBucket uint16) (ID, error) {
	if !rotation.IsValid() {
		return ID{}, errors.New("tile: invalid rotation")
	}
	return ID{
		PageIndex:  page,
		Coord:      coord,
		ZoomBucket: zoomBucket,
		Rotation:   rotation,
		Profile:    profile,
		DPRBucket:  dprBucket,
	}, nil
}

// CacheKey derives the stable 64-bit cache key for this tile ID by hashing
// its composite fields with FNV-1a (hashVersion 1). Collisions are
// astronomically unlikely but not impossible. The disk cache addresses
// blobs by this key alone and does not record the full ID with a blob, so
// two IDs whose keys collide share one disk entry.
func (id ID) CacheKey() uint64 {
	h := fnv.New64a()
	var buf [21]byte
	buf[0] = byte(id.PageIndex)
	buf[1] = byte(id.PageIndex >> 8)
	putU32(buf[2:6], uint32(id.Coord.X))
	putU32(buf[6:10], uint32(id.Coord.Y))
	putU32(buf[10:14], id.ZoomBucket)
	buf[14] = byte(id.Rotation)
	buf[15] = byte(id.Rotation >> 8)
	buf[16] = byte(id.Profile)
	buf[17] = byte(id.DPRBucket)
	buf[18] = byte(id.DPRBucket >> 8)
	buf[19] = hashVersion
	buf[20] = 0
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// BucketZoom quantizes a zoom percentage so near-equivalent magnifications
// share a cache key. Buckets are 5 percentage points wide.
func BucketZoom(percent uint32) uint32 {
	const bucketWidth = 5
	return (percent + bucketWidth/2) / bucketWidth
}

// BucketDPR quantizes a device pixel ratio into a u16 bucket, at a
// resolution of 0.25 (matches common DPR steps: 1.0, 1.25, 1.5, 2.0, 3.0).
func BucketDPR(ratio float64) uint16 {
	const step = 0.25
	bucket := int64(ratio/step + 0.5)
	if bucket < 0 {
		bucket = 0
	}
	if bucket > 0xFFFF {
		bucket = 0xFFFF
	}
	return uint16(bucket)
}

// CalculateGrid derives the (columns, rows) tile grid dimensions for a page
// of the given size (in PDF points) at the given zoom percentage, using the
// fixed tile Edge.
func CalculateGrid(pageWidthPts, pageHeightPts float64, zoomPercent uint32) (cols, rows int, err error) {
	if pageWidthPts <= 0 || pageHeightPts <= 0 {
		return 0, 0, ErrZeroPageSize
	}
	scale := float64(zoomPercent) / 100.0
	widthPx := pageWidthPts * scale
	heightPx := pageHeightPts * scale
	cols = ceilDiv(widthPx, Edge)
	rows = ceilDiv(heightPx, Edge)
	return cols, rows, nil
}

func ceilDiv(pixels float64, edge int) int {
	n := int(pixels) / edge
	if float64(n*edge) < pixels {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
