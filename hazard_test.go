package psxcore

import "testing"

func countOwnershipBits(s status) int {
	n := 0
	for _, bit := range []status{statusFBOnly, statusSFBOnly, statusFBPrefer, statusSFBPrefer} {
		if s&bit != 0 {
			n++
		}
	}
	return n
}

// TestNewBlockGridInitialOwnership checks every block starts life owning
// exactly the FB_PREFER bit (I1).
func TestNewBlockGridInitialOwnership(t *testing.T) {
	g := NewBlockGrid()
	for by := 0; by < NumBlocksY; by++ {
		for bx := 0; bx < NumBlocksX; bx++ {
			s := g.at(bx, by)
			if s != statusFBPrefer {
				t.Fatalf("block (%d,%d): got %#x, want FB_PREFER only", bx, by, s)
			}
		}
	}
}

// TestOwnershipAlwaysOneHot exercises I1 across a sequence of accesses: no
// matter what mix of reads/writes/syncs runs, every block in the grid keeps
// exactly one ownership bit set.
func TestOwnershipAlwaysOneHot(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)

	rectA := Rect{X: 0, Y: 0, W: 16, H: 16}
	rectB := Rect{X: 8, Y: 8, W: 16, H: 16}

	tr.Write(Unscaled, Compute, rectA)
	tr.Read(Scaled, Fragment, rectB)
	tr.SyncDomain(Unscaled, rectB)
	tr.Write(Scaled, Transfer, rectA)

	for by := 0; by < NumBlocksY; by++ {
		for bx := 0; bx < NumBlocksX; bx++ {
			s := tr.grid.at(bx, by)
			if n := countOwnershipBits(s); n != 1 {
				t.Fatalf("block (%d,%d): %d ownership bits set (status %#x), want exactly 1", bx, by, n, s)
			}
		}
	}
}

// TestWriteCollapsesOwnershipToOnly verifies write() installs the domain's
// *_ONLY bit, overwriting whatever ownership preceded it.
func TestWriteCollapsesOwnershipToOnly(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)
	rect := Rect{X: 0, Y: 0, W: 8, H: 8}

	tr.Write(Unscaled, Compute, rect)

	s := tr.grid.at(0, 0)
	if s&ownershipMask != statusFBOnly {
		t.Fatalf("got ownership %#x, want FB_ONLY only", s&ownershipMask)
	}
	if s&statusComputeFBWrite == 0 {
		t.Error("expected the compute-FB-write hazard bit to be installed")
	}
}

// TestSyncDomainFastPathSkipsResolveWhenPreferred confirms FB_PREFER blocks
// are not dirty with respect to either domain: sync_domain(Scaled, ...) on a
// freshly constructed grid does nothing, since FB_PREFER already means both
// representations are valid.
func TestSyncDomainFastPathSkipsResolveWhenPreferred(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)
	rect := Rect{X: 0, Y: 0, W: 8, H: 8}

	before := tr.grid.at(0, 0)
	tr.SyncDomain(Scaled, rect)

	if len(l.resolves) != 0 {
		t.Fatalf("expected no Resolve calls on the fast path, got %d", len(l.resolves))
	}
	if after := tr.grid.at(0, 0); after != before {
		t.Fatalf("fast path mutated status: before %#x, after %#x", before, after)
	}
}

// TestSyncDomainResolvesWhenOtherDomainOnly verifies the slow path: once a
// block is FB_ONLY, syncing it into Scaled issues exactly one Resolve per
// block and rewrites ownership/hazard bits per the resolve transition.
func TestSyncDomainResolvesWhenOtherDomainOnly(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)
	rect := Rect{X: 0, Y: 0, W: 16, H: 8} // two blocks wide

	tr.Write(Unscaled, Compute, rect) // ownership -> FB_ONLY
	l.reset()

	tr.SyncDomain(Scaled, rect)

	if len(l.resolves) != 2 {
		t.Fatalf("expected 2 Resolve calls (one per block), got %d", len(l.resolves))
	}
	for _, rc := range l.resolves {
		if rc.Domain != Scaled {
			t.Errorf("Resolve called with domain %v, want Scaled", rc.Domain)
		}
	}

	want := statusTransferFBRead | statusFBPrefer | statusTransferSFBWrite
	for bx := 0; bx < 2; bx++ {
		if got := tr.grid.at(bx, 0); got != want {
			t.Errorf("block (%d,0): got status %#x, want %#x", bx, 0, want)
		}
	}
}

// TestPipelineBarrierIsGlobalClear exercises I4: clearing a hazard bit via a
// barrier removes it from every block in the grid, not just the blocks in
// the rect that triggered it.
func TestPipelineBarrierIsGlobalClear(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)

	tr.grid.set(0, 0, tr.grid.at(0, 0)|statusComputeFBRead)
	tr.grid.set(5, 5, tr.grid.at(5, 5)|statusComputeFBRead)
	tr.grid.set(3, 3, tr.grid.at(3, 3)|statusComputeSFBWrite)

	tr.pipelineBarrier(statusComputeFBRead)

	if tr.grid.at(0, 0)&statusComputeFBRead != 0 {
		t.Error("block (0,0) still has the cleared hazard bit")
	}
	if tr.grid.at(5, 5)&statusComputeFBRead != 0 {
		t.Error("block (5,5) still has the cleared hazard bit")
	}
	if tr.grid.at(3, 3)&statusComputeSFBWrite == 0 {
		t.Error("an unrelated hazard bit on an untouched block was cleared too")
	}
	if len(l.hazards) != 1 || l.hazards[0] != HazardMask(statusComputeFBRead) {
		t.Errorf("Hazard callback: got %v, want one call with ComputeFBRead", l.hazards)
	}
}

// TestPipelineBarrierNoopWhenMaskEmpty checks the listener is never called
// with a no-op barrier.
func TestPipelineBarrierNoopWhenMaskEmpty(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)
	tr.pipelineBarrier(0)
	if len(l.hazards) != 0 {
		t.Errorf("expected no Hazard callback for an empty mask, got %v", l.hazards)
	}
}

// TestNonOverlappingRectsNeverBarrier exercises P6: two disjoint rects
// accessed back to back never cause a barrier, because the second access
// never observes hazard bits installed only within the first's blocks.
func TestNonOverlappingRectsNeverBarrier(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)

	rectA := Rect{X: 0, Y: 0, W: 8, H: 8}
	rectB := Rect{X: 64, Y: 64, W: 8, H: 8}

	tr.Write(Unscaled, Compute, rectA)
	l.reset()
	tr.Write(Unscaled, Compute, rectB)

	if len(l.hazards) != 0 {
		t.Errorf("expected no barrier between disjoint rects, got %v", l.hazards)
	}
}

// TestReadFragmentExcludesSelfSubpassWrite exercises the Fragment exception
// in HazardTracker.Read: a Fragment read over a rect the same stage already
// wrote to (e.g. consecutive reads within a render pass) must not barrier
// against its own write.
func TestReadFragmentExcludesSelfSubpassWrite(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)
	rect := Rect{X: 0, Y: 0, W: 8, H: 8}

	tr.Write(Scaled, Fragment, rect)
	l.reset()
	tr.Read(Scaled, Fragment, rect)

	if len(l.hazards) != 0 {
		t.Errorf("expected the fragment self-write exclusion to suppress a barrier, got %v", l.hazards)
	}
}

// TestWriteFragmentExcludesSelfSubpassReadAndWrite mirrors the above for
// write: repeated Fragment writes to the same rect never barrier against
// themselves.
func TestWriteFragmentExcludesSelfSubpassReadAndWrite(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)
	rect := Rect{X: 0, Y: 0, W: 8, H: 8}

	tr.Write(Scaled, Fragment, rect)
	l.reset()
	tr.Write(Scaled, Fragment, rect)

	if len(l.hazards) != 0 {
		t.Errorf("expected the fragment self-subpass exclusion to suppress a barrier, got %v", l.hazards)
	}
}

// TestFindSuitableDomainPrefersUnscaledWhenAvailable checks find_suitable_
// domain against a grid containing a mix of ownership values.
func TestFindSuitableDomainPrefersUnscaledWhenAvailable(t *testing.T) {
	g := NewBlockGrid() // all FB_PREFER
	tr := NewHazardTracker(g, &mockListener{})
	rect := Rect{X: 0, Y: 0, W: 8, H: 8}

	if got := tr.FindSuitableDomain(rect); got != Unscaled {
		t.Errorf("got %v, want Unscaled when a block prefers/owns unscaled", got)
	}

	g.set(0, 0, statusSFBOnly)
	if got := tr.FindSuitableDomain(rect); got != Scaled {
		t.Errorf("got %v, want Scaled once the only block in rect is SFB_ONLY", got)
	}
}

// TestReadTextureUploadsAndSyncs exercises read_texture end to end: it picks
// a domain, synchronizes it, and hands the region to UploadTexture.
func TestReadTextureUploadsAndSyncs(t *testing.T) {
	l := &mockListener{}
	tr := NewHazardTracker(NewBlockGrid(), l)
	rect := Rect{X: 0, Y: 0, W: 8, H: 8}

	domain := tr.ReadTexture(rect, 4, 6)

	if domain != Unscaled {
		t.Fatalf("got domain %v, want Unscaled", domain)
	}
	if len(l.uploads) != 1 {
		t.Fatalf("expected 1 UploadTexture call, got %d", len(l.uploads))
	}
	u := l.uploads[0]
	if u.Domain != Unscaled || u.Rect != rect || u.OffX != 4 || u.OffY != 6 {
		t.Errorf("unexpected upload record: %+v", u)
	}
}

// TestHazardBitPanicsOnFragmentUnscaled exercises I5: the fragment stage may
// never touch the unscaled domain.
func TestHazardBitPanicsOnFragmentUnscaled(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic for Fragment+Unscaled")
		}
		ie, ok := r.(*InvariantError)
		if !ok {
			t.Fatalf("expected *InvariantError, got %T (%v)", r, r)
		}
		if ie.Invariant != "I5" {
			t.Errorf("got invariant %q, want I5", ie.Invariant)
		}
	}()
	hazardBit(Fragment, Unscaled, false)
}

// TestOwnershipValidForPreferMeansBothDomainsValid checks the helper used to
// reason about P1: a *_PREFER bit on the other domain still counts as valid
// for the domain being asked about.
func TestOwnershipValidForPreferMeansBothDomainsValid(t *testing.T) {
	if !ownershipValidFor(statusFBPrefer, Scaled) {
		t.Error("FB_PREFER should count as valid for Scaled too")
	}
	if !ownershipValidFor(statusFBPrefer, Unscaled) {
		t.Error("FB_PREFER should count as valid for Unscaled")
	}
	if ownershipValidFor(statusFBOnly, Scaled) {
		t.Error("FB_ONLY must not count as valid for Scaled")
	}
}
