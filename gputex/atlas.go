//go:build !nogpu

package gputex

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psxcore"
)

// Atlas owns the bindless texture_2d_array the primitive pipelines sample,
// and assigns psxcore's upload_texture regions to its layers via an
// Allocator. It implements gpu.TextureSource.
type Atlas struct {
	device hal.Device
	queue  hal.Queue

	tex  hal.Texture
	view hal.TextureView

	layerWidth, layerHeight int
	alloc                   *Allocator
}

// NewAtlas creates a texture_2d_array of MaxLayers layers, each
// layerWidth x layerHeight texels, stored RGBA8Unorm. No texels are written
// into it by this package: UploadRegion only allocates a layer.
func NewAtlas(device hal.Device, queue hal.Queue, layerWidth, layerHeight int) (*Atlas, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "psxcore_texture_atlas",
		Size:          gputypes.Extent3D{Width: uint32(layerWidth), Height: uint32(layerHeight), DepthOrArrayLayers: uint32(MaxLayers)},
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("psxcore/gputex: create atlas texture: %w", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "psxcore_texture_atlas_view",
		Format:          gputypes.TextureFormatRGBA8Unorm,
		Dimension:       gputypes.TextureViewDimension2DArray,
		ArrayLayerCount: uint32(MaxLayers),
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("psxcore/gputex: create atlas view: %w", err)
	}
	return &Atlas{
		device:      device,
		queue:       queue,
		tex:         tex,
		view:        view,
		layerWidth:  layerWidth,
		layerHeight: layerHeight,
		alloc:       NewAllocator(),
	}, nil
}

// Destroy releases the atlas texture and view.
func (a *Atlas) Destroy() {
	if a.view != nil {
		a.device.DestroyTextureView(a.view)
		a.view = nil
	}
	if a.tex != nil {
		a.device.DestroyTexture(a.tex)
		a.tex = nil
	}
}

// AtlasView implements gpu.TextureSource.
func (a *Atlas) AtlasView() hal.TextureView { return a.view }

// MaxLayers implements gpu.TextureSource.
func (a *Atlas) MaxLayers() int { return a.alloc.MaxLayers() }

// NeedsFlush implements gpu.TextureSource.
func (a *Atlas) NeedsFlush() bool { return a.alloc.NeedsFlush() }

// UploadRegion implements gpu.TextureSource. It copies no texels out of
// VRAM into the allocated layer; this package only owns layer bookkeeping
// and the array texture's lifetime, matching the split
// between Renderer.upload_texture's allocator call and the separate
// texture-blit compute dispatch it triggers (renderer.cpp, §12
// supplemented).
func (a *Atlas) UploadRegion(domain psxcore.Domain, rect psxcore.Rect, offX, offY int) psxcore.TextureSurface {
	if a.alloc.NeedsFlush() {
		a.alloc.Flush()
	}
	return a.alloc.Allocate(domain, rect, offX, offY)
}
