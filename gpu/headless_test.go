package gpu

import (
	"testing"

	"github.com/gogpu/psxcore"
)

func newHeadless(t *testing.T, opts ...psxcore.RendererOption) (*HeadlessBackend, *psxcore.Renderer) {
	t.Helper()
	backend := NewHeadlessBackend()
	renderer := psxcore.NewRenderer(backend, opts...)
	backend.SetRenderer(renderer)
	return backend, renderer
}

func TestHeadlessBackendRecordsFlushOnFirstDraw(t *testing.T) {
	backend, renderer := newHeadless(t)

	renderer.DrawTriangle([3]psxcore.Vertex{
		{X: 0, Y: 0, W: 1, Color: 0xFFFFFF},
		{X: 10, Y: 0, W: 1, Color: 0xFFFFFF},
		{X: 0, Y: 10, W: 1, Color: 0xFFFFFF},
	})
	renderer.FlushRenderPass()

	if len(backend.Flushes) != 1 {
		t.Fatalf("Flushes = %d, want 1", len(backend.Flushes))
	}
}

func TestHeadlessBackendClearRectHasNoFlush(t *testing.T) {
	backend, renderer := newHeadless(t)

	renderer.ClearRect(psxcore.Rect{X: 0, Y: 0, W: 64, H: 64}, 0)

	if len(backend.Flushes) != 0 {
		t.Errorf("Flushes = %d, want 0 before any primitive forces a flush", len(backend.Flushes))
	}
}

func TestHeadlessBackendRecordsHazardOnDomainConflict(t *testing.T) {
	backend, renderer := newHeadless(t)

	rect := psxcore.Rect{X: 0, Y: 0, W: 16, H: 16}
	renderer.CopyCPUToVRAM(rect, make([]uint16, 16*16))
	renderer.SetDrawRect(rect)
	renderer.DrawTriangle([3]psxcore.Vertex{
		{X: 0, Y: 0, W: 1, Color: 0xFFFFFF},
		{X: 8, Y: 0, W: 1, Color: 0xFFFFFF},
		{X: 0, Y: 8, W: 1, Color: 0xFFFFFF},
	})

	if len(backend.Hazards) == 0 {
		t.Error("expected at least one Hazard callback when a fragment draw follows a compute write to the same blocks")
	}
}

func TestHeadlessBackendUploadTextureRelaysSurface(t *testing.T) {
	backend, renderer := newHeadless(t)

	renderer.SetTextureMode(psxcore.TextureModeABGR1555)
	rect := psxcore.Rect{X: 0, Y: 0, W: 8, H: 8}
	renderer.DrawTriangle([3]psxcore.Vertex{
		{X: 0, Y: 0, W: 1, Color: 0xFFFFFF, U: 0, V: 0},
		{X: 4, Y: 0, W: 1, Color: 0xFFFFFF, U: 4, V: 0},
		{X: 0, Y: 4, W: 1, Color: 0xFFFFFF, U: 0, V: 4},
	})
	_ = rect

	if len(backend.Uploads) == 0 {
		t.Error("expected an UploadTexture callback for a textured draw")
	}
	// The relayed surface has UV scale 1, so vertex 1's U of 4 stays 4
	// (it would be 0 with the renderer's zero-valued initial surface).
	if got := renderer.Queue().OpaqueTextured[0][1].U; got != 4 {
		t.Errorf("vertex 1 U = %v, want 4 from the relayed surface's UV scale", got)
	}
}

func TestHeadlessBackendReset(t *testing.T) {
	backend, renderer := newHeadless(t)

	renderer.DrawTriangle([3]psxcore.Vertex{
		{X: 0, Y: 0, W: 1, Color: 0xFFFFFF},
		{X: 8, Y: 0, W: 1, Color: 0xFFFFFF},
		{X: 0, Y: 8, W: 1, Color: 0xFFFFFF},
	})
	renderer.FlushRenderPass()

	backend.Reset()

	if len(backend.Flushes) != 0 || len(backend.Hazards) != 0 {
		t.Error("Reset() should clear all recorded callbacks")
	}
}
