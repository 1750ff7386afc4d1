package psxcore

// renderPassState is the singleton, process-wide render-pass state (§3,
// Render-pass state).
type renderPassState struct {
	inside        bool
	rect          Rect
	textureWindow Rect
	cleanClear    bool
	feedback      bool
}

// RenderPassBatcher maintains the single open render pass and decides when
// to extend, flush, or discard it (§4.3). It drives the HazardTracker for
// the domain synchronization each transition requires and empties the
// DrawQueue on flush/discard.
type RenderPassBatcher struct {
	state    renderPassState
	tracker  *HazardTracker
	queue    *DrawQueue
	listener HazardListener
}

// NewRenderPassBatcher returns a batcher with no pass open.
func NewRenderPassBatcher(tracker *HazardTracker, queue *DrawQueue, listener HazardListener) *RenderPassBatcher {
	return &RenderPassBatcher{tracker: tracker, queue: queue, listener: listener}
}

// Inside reports whether a render pass is currently open.
func (b *RenderPassBatcher) Inside() bool { return b.state.inside }

// Rect returns the current draw rect (meaningful only while Inside).
func (b *RenderPassBatcher) Rect() Rect { return b.state.rect }

// Feedback reports whether the open pass needs input-attachment self-reads.
func (b *RenderPassBatcher) Feedback() bool { return b.state.feedback }

// MarkFeedback is called by the Renderer's bucket router the moment a primitive requires
// both mask-testing and semi-transparent blending of a textured source
// (§4.3: "feedback is set true the moment any primitive requires both").
func (b *RenderPassBatcher) MarkFeedback() { b.state.feedback = true }

// intersectsOpenPass reports whether rect overlaps the open pass's draw
// area, using the same block-aligned expansion the original atlas applies
// (inside_render_pass rounds both rects out to block boundaries before
// testing, so an access landing in the same block as the open pass, even
// if not the same literal pixels, still forces a flush).
func (b *RenderPassBatcher) intersectsOpenPass(rect Rect) bool {
	if !b.state.inside {
		return false
	}
	return rect.blockAlign().Intersects(b.state.rect.blockAlign())
}

// flushIfIntersecting flushes the open pass if rect aliases its draw area.
// Wired into HazardTracker.Read/Write/SyncDomain so that any block access
// touching the pass's output forces it closed before the access proceeds.
func (b *RenderPassBatcher) flushIfIntersecting(rect Rect) {
	if b.intersectsOpenPass(rect) {
		b.FlushRenderPass()
	}
}

// SetDrawRect implements §4.3 `set_draw_rect`.
func (b *RenderPassBatcher) SetDrawRect(rect Rect) {
	if !b.state.inside {
		b.state.rect = rect
		return
	}
	if rect != b.state.rect {
		b.FlushRenderPass()
		b.state.rect = rect
	}
}

// SetTextureWindow implements §4.3's texture-window half of `write_fragment`
// bookkeeping: it just records the window; the intersection/flush check
// happens in WriteFragment, which is invoked per primitive.
func (b *RenderPassBatcher) SetTextureWindow(rect Rect) {
	b.state.textureWindow = rect
}

// WriteFragment must be called before recording any drawing primitive
// (§4.3 `write_fragment`). If the texture window aliases the open pass, it
// flushes first; it then marks the texture-window read and, if no pass is
// open yet, syncs the scaled domain and opens a fresh pass.
func (b *RenderPassBatcher) WriteFragment(textureOffX, textureOffY int) {
	if b.intersectsOpenPass(b.state.textureWindow) {
		b.FlushRenderPass()
	}
	b.tracker.ReadTexture(b.state.textureWindow, textureOffX, textureOffY)

	if !b.state.inside {
		b.tracker.SyncDomain(Scaled, b.state.rect)
		b.state.inside = true
		b.state.cleanClear = false
		b.state.feedback = false
	}
}

// ClearRect implements §4.3 `clear_rect`.
func (b *RenderPassBatcher) ClearRect(rect Rect, color uint32) {
	switch {
	case rect == b.state.rect && b.state.inside:
		b.tracker.SyncDomain(Scaled, rect)
		b.DiscardRenderPass()
		b.state.rect = rect
		b.state.inside = true
		b.state.cleanClear = true
		b.state.feedback = false
	case !b.state.inside:
		b.tracker.SyncDomain(Scaled, rect)
		b.state.rect = rect
		b.state.inside = true
		b.state.cleanClear = true
		b.state.feedback = false
	default:
		// A pass is open over a different rect: the clear cannot discard
		// it without losing unrelated primitives already queued, so it
		// becomes a degenerate opaque draw instead (§4.3).
		b.listener.ClearQuad(rect, color)
	}
}

// FlushRenderPass implements §4.3 `flush_render_pass`.
func (b *RenderPassBatcher) FlushRenderPass() {
	if !b.state.inside {
		return
	}
	rect := b.state.rect
	b.state.inside = false
	b.tracker.Write(Scaled, Fragment, rect)
	b.listener.FlushRenderPass(rect)
	b.queue.reset()
}

// DiscardRenderPass implements §4.3 `discard_render_pass`: it closes the
// pass without emitting GPU work and drops every queued primitive.
func (b *RenderPassBatcher) DiscardRenderPass() {
	b.state.inside = false
	b.listener.DiscardRenderPass()
	b.queue.reset()
}

// CleanClear reports whether the open pass began with a full-rect clear
// (so the GPU emission layer can load-op CLEAR instead of LOAD).
func (b *RenderPassBatcher) CleanClear() bool { return b.state.cleanClear }
