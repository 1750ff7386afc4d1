// Package gputex implements a minimal texture atlas allocator satisfying
// gpu.TextureSource, the bindless array psxcore's upload_texture callback
// feeds into (renderer.cpp's TextureAllocator, §12 supplemented from
// original_source/renderer/renderer.cpp). It is deliberately simple: one
// fixed-size layer per allocation, no sub-rect packing, reclaimed in bulk
// whenever the caller calls Flush.
package gputex

import "github.com/gogpu/psxcore"

// MaxLayers bounds the atlas's layer capacity, matching renderer.cpp's
// MAX_LAYERS threshold that triggers a mid-batch flush_texture_allocator.
const MaxLayers = 256

// Allocator hands out texture surfaces for psxcore's upload_texture
// callback. It tracks how many layers are currently live and reports
// NeedsFlush once that count reaches MaxLayers, the same backpressure
// signal renderer.cpp's upload_texture checks after every allocate.
type Allocator struct {
	nextLayer int
	generation psxcore.TextureID
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{generation: 1}
}

// Allocate reserves the next free layer for rect's texels out of domain,
// returning the surface descriptor psxcore.Renderer.SetTextureSurface
// expects. offX/offY are the palette/texel offsets renderer.cpp folds into
// the same call; the allocator does not interpret them, it only needs
// rect's dimensions to compute the UV scale.
func (a *Allocator) Allocate(domain psxcore.Domain, rect psxcore.Rect, offX, offY int) psxcore.TextureSurface {
	layer := a.nextLayer
	a.nextLayer++
	uvScaleX, uvScaleY := float32(1), float32(1)
	if rect.W > 0 {
		uvScaleX = 1 / float32(rect.W)
	}
	if rect.H > 0 {
		uvScaleY = 1 / float32(rect.H)
	}
	return psxcore.TextureSurface{
		Texture:  a.generation,
		Layer:    layer,
		UVScaleX: uvScaleX,
		UVScaleY: uvScaleY,
	}
}

// MaxLayers reports the atlas's fixed layer budget.
func (a *Allocator) MaxLayers() int { return MaxLayers }

// NeedsFlush reports whether the next Allocate would overrun the atlas,
// mirroring renderer.cpp's `allocator.get_max_layer_count() >= MAX_LAYERS`
// check performed right after every allocation.
func (a *Allocator) NeedsFlush() bool { return a.nextLayer >= MaxLayers }

// Flush reclaims every allocated layer and bumps the generation, so
// surfaces handed out before the flush are never confused with ones handed
// out after it.
func (a *Allocator) Flush() {
	a.nextLayer = 0
	a.generation++
}
