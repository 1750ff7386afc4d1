//go:build !nogpu

// Package gpu wires psxcore's hazard-tracked rasterizer core to a real GPU
// device through the gogpu/wgpu hardware abstraction layer. It implements
// psxcore.HazardListener, translating each callback into shader modules,
// bind groups, and command buffers.
package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psxcore"
)

// TextureSource is the external texture atlas allocator psxcore.Renderer's
// SetTextureSurface expects to be fed from (§1, out of scope for the core
// itself). Backend.UploadTexture forwards every read_texture callback here
// and relays the returned surface back into the renderer.
type TextureSource interface {
	// UploadRegion packs the texels described by rect (at texel offset
	// offX, offY within domain's VRAM representation) into the bindless
	// texture atlas, returning the surface the next primitives should
	// sample.
	UploadRegion(domain psxcore.Domain, rect psxcore.Rect, offX, offY int) psxcore.TextureSurface

	// AtlasView returns the current texture_2d_array view bound to the
	// primitive pipelines' atlas binding.
	AtlasView() hal.TextureView

	// MaxLayers returns the atlas's fixed layer capacity (renderer.cpp's
	// MAX_LAYERS). Backend does not itself enforce this; it exists so a
	// real allocator can report its budget.
	MaxLayers() int

	// NeedsFlush reports whether the allocator is out of layers and the
	// open render pass must be flushed before UploadRegion can proceed,
	// mirroring renderer.cpp's mid-batch flush when the texture allocator
	// runs out of room.
	NeedsFlush() bool
}

// resolveJob is one queued per-block resolve, batched per target domain and
// drained in chunks of at most psxcore.MaxResolveChunk (§4.2).
type resolveJob struct {
	blockX, blockY uint32
}

// Backend is the concrete psxcore.HazardListener backing a real GPU device.
// It owns the unscaled/scaled VRAM textures, the compiled pipelines, and
// the command encoder for the frame currently in flight. A Backend must be
// attached to its Renderer with SetRenderer before any draw call: the two
// are circularly dependent the same way the teacher's GPURenderSession and
// its per-tier sub-renderers are, so construction happens in two steps
// rather than one constructor taking both.
type Backend struct {
	device hal.Device
	queue  hal.Queue

	pipelines *pipelineSet
	textures  textureSet
	sampler   hal.Sampler

	renderer *psxcore.Renderer
	source   TextureSource

	encoder hal.CommandEncoder

	pendingResolves map[psxcore.Domain][]resolveJob

	primUniformBuf    hal.Buffer
	scanoutUniformBuf hal.Buffer
}

// NewBackend creates the GPU resource set (textures, pipelines, sampler)
// against device/queue at the given upscale factor. Call SetRenderer before
// driving any psxcore.Renderer methods that reach this backend.
func NewBackend(device hal.Device, queue hal.Queue, scale int) (*Backend, error) {
	b := &Backend{
		device:          device,
		queue:           queue,
		pendingResolves: make(map[psxcore.Domain][]resolveJob),
	}

	if err := b.textures.ensure(device, scale); err != nil {
		return nil, err
	}

	pipelines, err := newPipelineSet(device)
	if err != nil {
		b.textures.destroy(device)
		return nil, err
	}
	b.pipelines = pipelines

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "psxcore_atlas_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
	})
	if err != nil {
		b.pipelines.destroy(device)
		b.textures.destroy(device)
		return nil, fmt.Errorf("psxcore/gpu: create atlas sampler: %w", err)
	}
	b.sampler = sampler

	primUniform, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_primitive_uniforms",
		Size:  16, // vec2<f32> viewport_size + u32 blend_mode + pad
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.destroyAll()
		return nil, fmt.Errorf("psxcore/gpu: create primitive uniform buffer: %w", err)
	}
	b.primUniformBuf = primUniform

	scanoutUniform, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_scanout_uniforms",
		Size:  16, // vec2<f32> uv_offset + vec2<f32> uv_scale
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.destroyAll()
		return nil, fmt.Errorf("psxcore/gpu: create scanout uniform buffer: %w", err)
	}
	b.scanoutUniformBuf = scanoutUniform

	return b, nil
}

// SetRenderer attaches the psxcore.Renderer this backend serves. Must be
// called exactly once, before any Renderer method that reaches the
// backend's Hazard/Resolve/FlushRenderPass/... callbacks.
func (b *Backend) SetRenderer(r *psxcore.Renderer) { b.renderer = r }

// SetTextureSource attaches the external texture atlas allocator.
func (b *Backend) SetTextureSource(source TextureSource) { b.source = source }

// Destroy releases every GPU resource the backend owns.
func (b *Backend) Destroy() { b.destroyAll() }

func (b *Backend) destroyAll() {
	if b.scanoutUniformBuf != nil {
		b.device.DestroyBuffer(b.scanoutUniformBuf)
		b.scanoutUniformBuf = nil
	}
	if b.primUniformBuf != nil {
		b.device.DestroyBuffer(b.primUniformBuf)
		b.primUniformBuf = nil
	}
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.pipelines != nil {
		b.pipelines.destroy(b.device)
		b.pipelines = nil
	}
	b.textures.destroy(b.device)
}

// BeginFrame opens the command encoder that every subsequent callback
// within the frame records into.
func (b *Backend) BeginFrame() error {
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "psxcore_frame"})
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("psxcore_frame"); err != nil {
		return fmt.Errorf("psxcore/gpu: begin encoding: %w", err)
	}
	b.encoder = encoder
	return nil
}

// EndFrame submits the accumulated command buffer and waits for it to
// complete, matching the teacher's encodeSubmitReadback fence discipline.
func (b *Backend) EndFrame() error {
	if b.encoder == nil {
		return nil
	}
	cmdBuf, err := b.encoder.EndEncoding()
	b.encoder = nil
	if err != nil {
		return fmt.Errorf("psxcore/gpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("psxcore/gpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("psxcore/gpu: submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, defaultFrameTimeout)
	if err != nil {
		return fmt.Errorf("psxcore/gpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("psxcore/gpu: %w", ErrDeviceLost)
	}
	return nil
}

// Hazard implements psxcore.HazardListener. It translates the hazard mask
// into texture usage barriers on the current encoder. Per renderer.cpp's
// hazard() (§12, supplemented), any compute-stage bit in mask first drains
// the queued resolves, which write through paths the barrier is about to
// fence off. The texture allocator is not flushed here: it has no flush
// hook beyond the mid-batch one UploadTexture already triggers.
func (b *Backend) Hazard(mask psxcore.HazardMask) {
	if b.encoder == nil {
		return
	}
	const computeBits = psxcore.ComputeFBRead | psxcore.ComputeFBWrite | psxcore.ComputeSFBRead | psxcore.ComputeSFBWrite
	if mask&computeBits != 0 {
		b.drainAllResolves()
	}
	barriers := barrierUsagesFor(mask, &b.textures)
	if len(barriers) > 0 {
		b.encoder.TransitionTextures(barriers)
	}
}

// Resolve implements psxcore.HazardListener, queuing a single block for
// resolution into targetDomain. Queued blocks are drained the next time the
// queue for targetDomain reaches psxcore.MaxResolveChunk, or at the next
// FlushRenderPass/DiscardRenderPass, whichever comes first.
func (b *Backend) Resolve(targetDomain psxcore.Domain, bx, by int) {
	jobs := append(b.pendingResolves[targetDomain], resolveJob{blockX: uint32(bx), blockY: uint32(by)})
	b.pendingResolves[targetDomain] = jobs
	if len(jobs) >= psxcore.MaxResolveChunk {
		b.drainResolves(targetDomain)
	}
}

// drainResolves dispatches one compute pass resolving every block queued
// for domain since the last drain.
func (b *Backend) drainResolves(domain psxcore.Domain) {
	jobs := b.pendingResolves[domain]
	if len(jobs) == 0 || b.encoder == nil {
		return
	}
	b.pendingResolves[domain] = nil

	rectData := make([]byte, len(jobs)*8)
	for i, j := range jobs {
		putU32(rectData[i*8:], j.blockX)
		putU32(rectData[i*8+4:], j.blockY)
	}
	rectBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_resolve_rects",
		Size:  uint64(len(rectData)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		psxcore.Logger().Error("psxcore/gpu: create resolve rect buffer", "error", err)
		return
	}
	defer b.device.DestroyBuffer(rectBuf)
	b.queue.WriteBuffer(rectBuf, 0, rectData)

	paramsData := make([]byte, 16)
	putU32(paramsData[0:], psxcore.BlockWidth)
	putU32(paramsData[4:], psxcore.BlockHeight)
	putU32(paramsData[8:], uint32(b.textures.scale))
	putU32(paramsData[12:], uint32(len(jobs)))
	paramsBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_resolve_params",
		Size:  16,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		psxcore.Logger().Error("psxcore/gpu: create resolve params buffer", "error", err)
		return
	}
	defer b.device.DestroyBuffer(paramsBuf)
	b.queue.WriteBuffer(paramsBuf, 0, paramsData)

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "psxcore_resolve_bg",
		Layout: b.pipelines.resolveLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Size: 16}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: rectBuf.NativeHandle(), Size: uint64(len(rectData))}},
			{Binding: 2, Resource: b.textures.unscaledView},
			{Binding: 3, Resource: b.textures.scaledView},
		},
	})
	if err != nil {
		psxcore.Logger().Error("psxcore/gpu: create resolve bind group", "error", err)
		return
	}
	defer b.device.DestroyBindGroup(bindGroup)

	pipeline := b.pipelines.resolveToScaled
	if domain == psxcore.Unscaled {
		pipeline = b.pipelines.resolveToUnscaled
	}

	pass := b.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "psxcore_resolve"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(uint32(len(jobs)), 1, 1)
	pass.End()
}

// drainAllResolves flushes any outstanding resolve jobs in both domains,
// called before a render pass flush or discard commits the frame state.
func (b *Backend) drainAllResolves() {
	b.drainResolves(psxcore.Unscaled)
	b.drainResolves(psxcore.Scaled)
}

// DiscardRenderPass implements psxcore.HazardListener: no GPU side effects
// beyond draining any resolves queued while the pass was open.
func (b *Backend) DiscardRenderPass() {
	b.drainAllResolves()
}

// UploadTexture implements psxcore.HazardListener, forwarding to the
// attached TextureSource and relaying the result back into the renderer.
func (b *Backend) UploadTexture(domain psxcore.Domain, rect psxcore.Rect, offX, offY int) {
	if b.source == nil || b.renderer == nil {
		return
	}
	if b.source.NeedsFlush() {
		b.renderer.FlushRenderPass()
	}
	surface := b.source.UploadRegion(domain, rect, offX, offY)
	b.renderer.SetTextureSurface(surface)
}

// ClearQuad implements psxcore.HazardListener by delegating the degenerate
// clear draw back to the renderer's own bucket router, which is the only
// thing that knows how to allocate a depth value and build vertices for it.
func (b *Backend) ClearQuad(rect psxcore.Rect, color uint32) {
	if b.renderer == nil {
		return
	}
	b.renderer.ClearQuad(rect, color)
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
