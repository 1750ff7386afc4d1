//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psxcore"
)

// textureSet owns the two GPU-resident VRAM representations, grounded on
// the teacher's internal/gpu/gpu_textures.go textureSet (MSAA/stencil/
// resolve trio) but reshaped for the two fixed VRAM domains instead of a
// single MSAA target.
type textureSet struct {
	unscaledTex  hal.Texture
	unscaledView hal.TextureView

	scaledTex  hal.Texture
	scaledView hal.TextureView

	// feedbackTex/feedbackView hold a snapshot of scaledTex taken right
	// before a masked semi-transparent run, standing in for the Vulkan
	// subpass input attachment renderer.cpp's masked blend modes read from
	// (§4.5, §12 supplemented) — this explicit-API backend has no
	// framebuffer-fetch equivalent, so the snapshot is a plain sampled
	// texture copy instead.
	feedbackTex  hal.Texture
	feedbackView hal.TextureView

	depthTex  hal.Texture
	depthView hal.TextureView

	scale int
}

// ensure creates the unscaled and scaled textures if they don't already
// exist at the requested scale. Both are storage textures so the compute
// shaders can read_write them directly (resolve, copy, blit); the scaled
// one is also sampled and used as a render attachment (primitive drawing,
// scanout).
func (ts *textureSet) ensure(device hal.Device, scale int) error {
	if ts.unscaledTex != nil && ts.scale == scale {
		return nil
	}
	ts.destroy(device)
	ts.scale = scale

	unscaledTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "psxcore_unscaled_vram",
		Size:          hal.Extent3D{Width: psxcore.FBWidth, Height: psxcore.FBHeight, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR32Uint,
		Usage:         gputypes.TextureUsageStorageBinding | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create unscaled VRAM texture: %w", err)
	}
	ts.unscaledTex = unscaledTex

	unscaledView, err := device.CreateTextureView(unscaledTex, &hal.TextureViewDescriptor{Label: "psxcore_unscaled_vram_view"})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("psxcore/gpu: create unscaled VRAM view: %w", err)
	}
	ts.unscaledView = unscaledView

	scaledTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: "psxcore_scaled_vram",
		Size: hal.Extent3D{
			Width:              uint32(psxcore.FBWidth * scale),
			Height:             uint32(psxcore.FBHeight * scale),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageStorageBinding | gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("psxcore/gpu: create scaled VRAM texture: %w", err)
	}
	ts.scaledTex = scaledTex

	scaledView, err := device.CreateTextureView(scaledTex, &hal.TextureViewDescriptor{Label: "psxcore_scaled_vram_view"})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("psxcore/gpu: create scaled VRAM view: %w", err)
	}
	ts.scaledView = scaledView

	feedbackTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: "psxcore_semi_transparent_feedback",
		Size: hal.Extent3D{
			Width:              uint32(psxcore.FBWidth * scale),
			Height:             uint32(psxcore.FBHeight * scale),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("psxcore/gpu: create semi-transparent feedback texture: %w", err)
	}
	ts.feedbackTex = feedbackTex

	feedbackView, err := device.CreateTextureView(feedbackTex, &hal.TextureViewDescriptor{Label: "psxcore_semi_transparent_feedback_view"})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("psxcore/gpu: create semi-transparent feedback view: %w", err)
	}
	ts.feedbackView = feedbackView

	depthTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: "psxcore_depth",
		Size: hal.Extent3D{
			Width:              uint32(psxcore.FBWidth * scale),
			Height:             uint32(psxcore.FBHeight * scale),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatDepth24PlusStencil8,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("psxcore/gpu: create depth texture: %w", err)
	}
	ts.depthTex = depthTex

	depthView, err := device.CreateTextureView(depthTex, &hal.TextureViewDescriptor{Label: "psxcore_depth_view"})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("psxcore/gpu: create depth view: %w", err)
	}
	ts.depthView = depthView

	return nil
}

func (ts *textureSet) destroy(device hal.Device) {
	if ts.depthView != nil {
		device.DestroyTextureView(ts.depthView)
		ts.depthView = nil
	}
	if ts.depthTex != nil {
		device.DestroyTexture(ts.depthTex)
		ts.depthTex = nil
	}
	if ts.feedbackView != nil {
		device.DestroyTextureView(ts.feedbackView)
		ts.feedbackView = nil
	}
	if ts.feedbackTex != nil {
		device.DestroyTexture(ts.feedbackTex)
		ts.feedbackTex = nil
	}
	if ts.scaledView != nil {
		device.DestroyTextureView(ts.scaledView)
		ts.scaledView = nil
	}
	if ts.scaledTex != nil {
		device.DestroyTexture(ts.scaledTex)
		ts.scaledTex = nil
	}
	if ts.unscaledView != nil {
		device.DestroyTextureView(ts.unscaledView)
		ts.unscaledView = nil
	}
	if ts.unscaledTex != nil {
		device.DestroyTexture(ts.unscaledTex)
		ts.unscaledTex = nil
	}
}

// barrierUsagesFor translates a HazardMask into the set of texture
// barriers pipeline_barrier's GPU-facing half must issue (spec §4.1's
// barrier-translation table). Transfer-stage bits are treated like the
// Compute bits of the same domain: either kind yields one
// StorageBinding-to-StorageBinding barrier on that domain's texture, since
// resolves, copies and blits all access the stores as storage textures.
func barrierUsagesFor(mask psxcore.HazardMask, ts *textureSet) []hal.TextureBarrier {
	var barriers []hal.TextureBarrier

	if mask.Any(psxcore.ComputeFBRead | psxcore.ComputeFBWrite | psxcore.TransferFBRead | psxcore.TransferFBWrite) {
		barriers = append(barriers, hal.TextureBarrier{
			Texture: ts.unscaledTex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageStorageBinding,
				NewUsage: gputypes.TextureUsageStorageBinding,
			},
		})
	}
	if mask.Any(psxcore.ComputeSFBRead | psxcore.ComputeSFBWrite | psxcore.TransferSFBRead | psxcore.TransferSFBWrite) {
		barriers = append(barriers, hal.TextureBarrier{
			Texture: ts.scaledTex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageStorageBinding,
				NewUsage: gputypes.TextureUsageStorageBinding,
			},
		})
	}
	if mask.Any(psxcore.FragmentSFBRead | psxcore.FragmentSFBWrite) {
		barriers = append(barriers, hal.TextureBarrier{
			Texture: ts.scaledTex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		})
	}
	return barriers
}
