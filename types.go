package psxcore

import "fmt"

// FBWidth and FBHeight are the native, unscaled VRAM dimensions.
const (
	FBWidth  = 1024
	FBHeight = 512
)

// BlockWidth and BlockHeight are the hazard-tracking tile size, in unscaled
// pixels. The block grid therefore spans NumBlocksX x NumBlocksY blocks.
const (
	BlockWidth  = 8
	BlockHeight = 8

	NumBlocksX = FBWidth / BlockWidth
	NumBlocksY = FBHeight / BlockHeight
)

// MaxResolveChunk bounds how many per-block resolve rects are batched into
// a single compute dispatch (§4.2).
const MaxResolveChunk = 1024

// Rect is a pixel rectangle in unscaled VRAM coordinates.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers zero pixels.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Intersects reports whether r and other share at least one pixel.
func (r Rect) Intersects(other Rect) bool {
	if r.Empty() || other.Empty() {
		return false
	}
	return r.X < other.X+other.W && other.X < r.X+r.W &&
		r.Y < other.Y+other.H && other.Y < r.Y+r.H
}

// blockBounds returns the inclusive block-index range covered by r:
// [minBX..maxBX] x [minBY..maxBY]. Out-of-range coordinates are clipped to
// the grid, so a rectangle straddling the VRAM edge covers only its in-range
// blocks; an empty or entirely out-of-range rectangle yields ok=false.
func (r Rect) blockBounds() (minBX, minBY, maxBX, maxBY int, ok bool) {
	if r.Empty() {
		return 0, 0, 0, 0, false
	}
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W-1, r.Y+r.H-1
	if x1 < 0 || y1 < 0 || x0 >= FBWidth || y0 >= FBHeight {
		return 0, 0, 0, 0, false
	}
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= FBWidth {
		x1 = FBWidth - 1
	}
	if y1 >= FBHeight {
		y1 = FBHeight - 1
	}
	return x0 / BlockWidth, y0 / BlockHeight, x1 / BlockWidth, y1 / BlockHeight, true
}

// blockAlign rounds r out to block boundaries, used by the render-pass
// intersection test (write_domain/read_domain in the original atlas compare
// block-aligned rects, not literal ones).
func (r Rect) blockAlign() Rect {
	minBX, minBY, maxBX, maxBY, ok := r.blockBounds()
	if !ok {
		return Rect{}
	}
	return Rect{
		X: minBX * BlockWidth,
		Y: minBY * BlockHeight,
		W: (maxBX - minBX + 1) * BlockWidth,
		H: (maxBY - minBY + 1) * BlockHeight,
	}
}

// Domain identifies which VRAM representation an access targets.
type Domain uint8

const (
	Unscaled Domain = iota
	Scaled
)

func (d Domain) String() string {
	switch d {
	case Unscaled:
		return "Unscaled"
	case Scaled:
		return "Scaled"
	default:
		return fmt.Sprintf("Domain(%d)", uint8(d))
	}
}

// Stage identifies the pipeline stage performing an imminent access.
type Stage uint8

const (
	Compute Stage = iota
	Transfer
	Fragment
)

func (s Stage) String() string {
	switch s {
	case Compute:
		return "Compute"
	case Transfer:
		return "Transfer"
	case Fragment:
		return "Fragment"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// status is the per-block bitfield: one-hot ownership bits (0-3) plus ten
// independent hazard bits (4-13), laid out so that clearing ownership is a
// single AND-NOT against ownershipMask.
type status uint16

const (
	statusFBOnly    status = 1 << 0
	statusSFBOnly   status = 1 << 1
	statusFBPrefer  status = 1 << 2
	statusSFBPrefer status = 1 << 3

	ownershipMask status = statusFBOnly | statusSFBOnly | statusFBPrefer | statusSFBPrefer

	statusComputeFBRead   status = 1 << 4
	statusComputeFBWrite  status = 1 << 5
	statusComputeSFBRead  status = 1 << 6
	statusComputeSFBWrite status = 1 << 7

	statusTransferFBRead   status = 1 << 8
	statusTransferFBWrite  status = 1 << 9
	statusTransferSFBRead  status = 1 << 10
	statusTransferSFBWrite status = 1 << 11

	statusFragmentSFBRead  status = 1 << 12
	statusFragmentSFBWrite status = 1 << 13

	hazardMaskAll = statusComputeFBRead | statusComputeFBWrite | statusComputeSFBRead | statusComputeSFBWrite |
		statusTransferFBRead | statusTransferFBWrite | statusTransferSFBRead | statusTransferSFBWrite |
		statusFragmentSFBRead | statusFragmentSFBWrite
)

// ownershipOnly returns the one-hot *_ONLY ownership bit for domain.
func ownershipOnly(d Domain) status {
	if d == Unscaled {
		return statusFBOnly
	}
	return statusSFBOnly
}

// ownershipPrefer returns the one-hot *_PREFER ownership bit for domain.
func ownershipPrefer(d Domain) status {
	if d == Unscaled {
		return statusFBPrefer
	}
	return statusSFBPrefer
}

// ownershipValidFor reports whether s indicates domain currently holds
// valid data: true for domain's own *_ONLY/*_PREFER bit, and also for the
// *other* domain's *_PREFER bit, since *_PREFER means both stores are
// equivalently valid (only *_ONLY of the other domain means domain is
// stale).
func ownershipValidFor(s status, domain Domain) bool {
	switch {
	case s&ownershipOnly(domain) != 0:
		return true
	case s&ownershipPrefer(domain) != 0:
		return true
	case s&ownershipPrefer(otherDomain(domain)) != 0:
		return true
	default:
		return false
	}
}

// hazardBit returns the hazard bit for (stage, domain, write). Fragment x
// Unscaled is invalid per I5 and is never requested by the tracker.
func hazardBit(stage Stage, domain Domain, write bool) status {
	switch stage {
	case Compute:
		switch {
		case domain == Unscaled && !write:
			return statusComputeFBRead
		case domain == Unscaled && write:
			return statusComputeFBWrite
		case domain == Scaled && !write:
			return statusComputeSFBRead
		default:
			return statusComputeSFBWrite
		}
	case Transfer:
		switch {
		case domain == Unscaled && !write:
			return statusTransferFBRead
		case domain == Unscaled && write:
			return statusTransferFBWrite
		case domain == Scaled && !write:
			return statusTransferSFBRead
		default:
			return statusTransferSFBWrite
		}
	default: // Fragment
		if domain != Scaled {
			invariantViolation("I5", "fragment stage may only access the scaled domain")
		}
		if write {
			return statusFragmentSFBWrite
		}
		return statusFragmentSFBRead
	}
}

// writeHazardsFor returns the write-hazard bits on domain across all stages
// (used to build the hazard mask for a read access: a read conflicts with
// any outstanding write to the same domain). HazardTracker.Read removes the
// Fragment write bit from this mask for a Fragment-stage read, since it
// does not conflict with a write within the same subpass.
func writeHazardsFor(domain Domain) status {
	if domain == Unscaled {
		return statusComputeFBWrite | statusTransferFBWrite
	}
	return statusComputeSFBWrite | statusTransferSFBWrite | statusFragmentSFBWrite
}

// readAndWriteHazardsFor returns both read and write hazard bits on domain
// across all stages (used to build the hazard mask for a write access: a
// write conflicts with any outstanding read or write to the same domain).
func readAndWriteHazardsFor(domain Domain) status {
	if domain == Unscaled {
		return statusComputeFBRead | statusComputeFBWrite | statusTransferFBRead | statusTransferFBWrite
	}
	return statusComputeSFBRead | statusComputeSFBWrite | statusTransferSFBRead | statusTransferSFBWrite |
		statusFragmentSFBRead | statusFragmentSFBWrite
}
