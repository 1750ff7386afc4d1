package psxcore

import "testing"

func newTestBatcher(l *mockListener) (*RenderPassBatcher, *HazardTracker) {
	grid := NewBlockGrid()
	queue := NewDrawQueue()
	tracker := NewHazardTracker(grid, l)
	pass := NewRenderPassBatcher(tracker, queue, l)
	tracker.bindRenderPass(pass)
	return pass, tracker
}

// TestSetDrawRectSameRectExtendsPass covers scenario 3 (same rect, two
// primitives): opening a pass and re-issuing the same draw rect never
// flushes it.
func TestSetDrawRectSameRectExtendsPass(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	rect := Rect{X: 0, Y: 0, W: 16, H: 16}

	pass.SetDrawRect(rect)
	pass.WriteFragment(0, 0)
	if !pass.Inside() {
		t.Fatal("expected the pass to be open after WriteFragment")
	}

	pass.SetDrawRect(rect)
	if len(l.flushed) != 0 {
		t.Errorf("re-issuing the same draw rect should not flush, got flushes %v", l.flushed)
	}
	if !pass.Inside() {
		t.Error("pass should still be open")
	}
}

// TestSetDrawRectDifferentRectFlushes covers scenario 3's counterpart: a
// different draw rect forces the open pass to flush first.
func TestSetDrawRectDifferentRectFlushes(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	rectA := Rect{X: 0, Y: 0, W: 16, H: 16}
	rectB := Rect{X: 64, Y: 64, W: 16, H: 16}

	pass.SetDrawRect(rectA)
	pass.WriteFragment(0, 0)

	pass.SetDrawRect(rectB)
	if len(l.flushed) != 1 || l.flushed[0] != rectA {
		t.Fatalf("expected a flush of rectA, got %v", l.flushed)
	}
	if pass.Inside() {
		t.Error("the pass should be closed immediately after the forced flush")
	}
	if pass.Rect() != rectB {
		t.Errorf("got draw rect %v, want %v", pass.Rect(), rectB)
	}
}

// TestClearRectSameRectDiscardsAndReopens covers §4.3's self-clear case:
// clearing exactly the open pass's rect discards it and reopens fresh with
// CleanClear set.
func TestClearRectSameRectDiscardsAndReopens(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	rect := Rect{X: 0, Y: 0, W: 16, H: 16}

	pass.SetDrawRect(rect)
	pass.WriteFragment(0, 0)

	pass.ClearRect(rect, 0xFF00FF00)

	if l.discarded != 1 {
		t.Errorf("expected DiscardRenderPass to fire once, got %d", l.discarded)
	}
	if !pass.Inside() {
		t.Error("expected the pass to reopen after the discard")
	}
	if !pass.CleanClear() {
		t.Error("expected CleanClear to be set on the reopened pass")
	}
	if pass.Feedback() {
		t.Error("a freshly cleared pass should not carry over the feedback flag")
	}
}

// TestClearRectNotInsideOpensCleanClear checks the no-pass-open branch of
// clear_rect.
func TestClearRectNotInsideOpensCleanClear(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	rect := Rect{X: 0, Y: 0, W: 16, H: 16}

	pass.ClearRect(rect, 0x80808080)

	if !pass.Inside() {
		t.Fatal("expected ClearRect to open a pass when none was open")
	}
	if !pass.CleanClear() {
		t.Error("expected CleanClear to be set")
	}
	if l.discarded != 0 {
		t.Errorf("no pass was open, DiscardRenderPass should not fire, got %d calls", l.discarded)
	}
}

// TestClearRectDifferentOpenRectDegenerates covers the branch where a pass
// is open over a different rect: the clear cannot discard unrelated queued
// primitives, so it becomes a degenerate ClearQuad draw instead.
func TestClearRectDifferentOpenRectDegenerates(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	rectA := Rect{X: 0, Y: 0, W: 16, H: 16}
	rectB := Rect{X: 64, Y: 64, W: 16, H: 16}

	pass.SetDrawRect(rectA)
	pass.WriteFragment(0, 0)

	pass.ClearRect(rectB, 0x11223344)

	if len(l.clearQuads) != 1 {
		t.Fatalf("expected 1 ClearQuad call, got %d", len(l.clearQuads))
	}
	if l.clearQuads[0].Rect != rectB || l.clearQuads[0].Color != 0x11223344 {
		t.Errorf("unexpected ClearQuad call: %+v", l.clearQuads[0])
	}
	if !pass.Inside() || pass.Rect() != rectA {
		t.Error("the original pass over rectA should remain open and untouched")
	}
	if l.discarded != 0 || len(l.flushed) != 0 {
		t.Error("a degenerate clear must not discard or flush the open pass")
	}
}

// TestFlushRenderPassNoopWhenClosed checks flush_render_pass is a no-op
// outside an open pass.
func TestFlushRenderPassNoopWhenClosed(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	pass.FlushRenderPass()
	if len(l.flushed) != 0 {
		t.Errorf("expected no FlushRenderPass callback, got %v", l.flushed)
	}
}

// TestWriteFragmentOpensPassAndReadsTextureWindow checks write_fragment's
// two responsibilities: it always reads the texture window, and it opens
// the pass (syncing the scaled domain) only on the first call.
func TestWriteFragmentOpensPassAndReadsTextureWindow(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	window := Rect{X: 100, Y: 100, W: 8, H: 8}
	pass.SetTextureWindow(window)
	pass.SetDrawRect(Rect{X: 0, Y: 0, W: 16, H: 16})

	pass.WriteFragment(2, 3)
	if len(l.uploads) != 1 || l.uploads[0].Rect != window {
		t.Fatalf("expected one UploadTexture over the texture window, got %v", l.uploads)
	}
	if !pass.Inside() {
		t.Fatal("expected the pass to open on the first WriteFragment")
	}

	pass.WriteFragment(2, 3)
	if len(l.uploads) != 2 {
		t.Errorf("expected WriteFragment to read the texture window every call, got %d uploads", len(l.uploads))
	}
}

// TestIntersectsOpenPassIsBlockAligned checks the block-aligned intersection
// test: two rects inside the same 8x8 block overlap even if their literal
// pixel bounds do not.
func TestIntersectsOpenPassIsBlockAligned(t *testing.T) {
	l := &mockListener{}
	pass, _ := newTestBatcher(l)
	pass.SetDrawRect(Rect{X: 0, Y: 0, W: 4, H: 4})
	pass.WriteFragment(0, 0)

	other := Rect{X: 5, Y: 5, W: 2, H: 2} // same block (0,0), disjoint pixels
	if !pass.intersectsOpenPass(other) {
		t.Error("expected a block-aligned intersection within the same 8x8 block")
	}

	farAway := Rect{X: 64, Y: 64, W: 2, H: 2}
	if pass.intersectsOpenPass(farAway) {
		t.Error("did not expect an intersection with a distant rect")
	}
}
