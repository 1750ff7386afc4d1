//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psxcore"
)

// UploadToVRAM dispatches the compute shader that actually writes write's
// payload into the unscaled store. Renderer.CopyCPUToVRAM only performs the
// hazard bookkeeping (§4.6 copy_cpu_to_vram); the caller is responsible for
// invoking this once the returned CPUToVRAMWrite is in hand, inside the
// same frame's BeginFrame/EndFrame bracket.
func (b *Backend) UploadToVRAM(write psxcore.CPUToVRAMWrite) error {
	if b.encoder == nil {
		return fmt.Errorf("psxcore/gpu: UploadToVRAM called outside a frame")
	}
	rect := write.Rect
	payload := make([]byte, len(write.Data)*4)
	for i, texel := range write.Data {
		putU32(payload[i*4:], uint32(texel))
	}

	payloadBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_copy_payload",
		Size:  uint64(len(payload)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create copy payload buffer: %w", err)
	}
	defer b.device.DestroyBuffer(payloadBuf)
	b.queue.WriteBuffer(payloadBuf, 0, payload)

	params := make([]byte, 16)
	putU32(params[0:], uint32(rect.X))
	putU32(params[4:], uint32(rect.Y))
	putU32(params[8:], uint32(rect.W))
	putU32(params[12:], uint32(rect.H))
	paramsBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_copy_params",
		Size:  16,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create copy params buffer: %w", err)
	}
	defer b.device.DestroyBuffer(paramsBuf)
	b.queue.WriteBuffer(paramsBuf, 0, params)

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "psxcore_copy_bg",
		Layout: b.pipelines.copyLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Size: 16}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: payloadBuf.NativeHandle(), Size: uint64(len(payload))}},
			{Binding: 2, Resource: b.textures.unscaledView},
		},
	})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create copy bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	pipeline := b.pipelines.copyToVRAM
	if write.MaskTest {
		pipeline = b.pipelines.copyToVRAMMasked
	}

	wgX := (uint32(rect.W) + 7) / 8
	wgY := (uint32(rect.H) + 7) / 8

	pass := b.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "psxcore_copy_cpu_to_vram"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(wgX, wgY, 1)
	pass.End()
	return nil
}

// DispatchBlitVRAM dispatches the compute shader for blit's domain. Mirrors
// UploadToVRAM's split between hazard bookkeeping (Renderer.BlitVRAM) and
// GPU-side execution (here).
func (b *Backend) DispatchBlitVRAM(blit psxcore.VRAMBlit) error {
	if b.encoder == nil {
		return fmt.Errorf("psxcore/gpu: DispatchBlitVRAM called outside a frame")
	}

	// Rects are in unscaled VRAM coordinates; the scaled store is S times
	// larger in each dimension.
	s := uint32(1)
	if blit.Domain == psxcore.Scaled {
		s = uint32(b.textures.scale)
	}
	params := make([]byte, 24)
	putU32(params[0:], uint32(blit.Src.X)*s)
	putU32(params[4:], uint32(blit.Src.Y)*s)
	putU32(params[8:], uint32(blit.Dst.X)*s)
	putU32(params[12:], uint32(blit.Dst.Y)*s)
	putU32(params[16:], uint32(blit.Dst.W)*s)
	putU32(params[20:], uint32(blit.Dst.H)*s)

	paramsBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_blit_params",
		Size:  24,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create blit params buffer: %w", err)
	}
	defer b.device.DestroyBuffer(paramsBuf)
	b.queue.WriteBuffer(paramsBuf, 0, params)

	var layout hal.BindGroupLayout
	var pipeline hal.ComputePipeline
	var storeView hal.TextureView
	if blit.Domain == psxcore.Scaled {
		layout = b.pipelines.blitScaledLayout
		pipeline = b.pipelines.blitScaled
		storeView = b.textures.scaledView
	} else {
		layout = b.pipelines.blitLayout
		storeView = b.textures.unscaledView
		if blit.MaskTest {
			pipeline = b.pipelines.blitUnscaledMasked
		} else {
			pipeline = b.pipelines.blitUnscaled
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "psxcore_blit_bg",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Size: 24}},
			{Binding: 1, Resource: storeView},
		},
	})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create blit bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	wgX := (uint32(blit.Dst.W)*s + 7) / 8
	wgY := (uint32(blit.Dst.H)*s + 7) / 8

	pass := b.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "psxcore_blit_vram"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(wgX, wgY, 1)
	pass.End()
	return nil
}

// Present records the scanout pass sampling rect out of the scaled store
// and drawing it full-screen into target, implementing §4.6 scanout's
// GPU-facing half (Renderer.Scanout only performs the Read hazard sync).
// uvOffset/uvScale let the caller remap rect into the scaled store's [0,1]
// UV space without a push constant, per SPEC_FULL.md §12.
func (b *Backend) Present(target hal.TextureView, uvOffsetX, uvOffsetY, uvScaleX, uvScaleY float32) error {
	if b.encoder == nil {
		return fmt.Errorf("psxcore/gpu: Present called outside a frame")
	}

	params := make([]byte, 16)
	putF32(params[0:], uvOffsetX)
	putF32(params[4:], uvOffsetY)
	putF32(params[8:], uvScaleX)
	putF32(params[12:], uvScaleY)
	b.queue.WriteBuffer(b.scanoutUniformBuf, 0, params)

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "psxcore_scanout_bg",
		Layout: b.pipelines.scanoutLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: b.scanoutUniformBuf.NativeHandle(), Size: 16}},
			{Binding: 1, Resource: b.textures.scaledView},
			{Binding: 2, Resource: b.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create scanout bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	rp := b.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "psxcore_scanout_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(b.pipelines.scanout)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(4, 1, 0, 0)
	rp.End()
	return nil
}
