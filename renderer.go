package psxcore

// renderState holds the per-draw-call configuration bits the client sets
// before issuing primitives (§6.1). None of it participates in hazard
// tracking directly; it only shapes how BuildAttribs and the bucket router
// treat the next primitive.
type renderState struct {
	drawOffsetX, drawOffsetY     int
	textureOffsetX, textureOffsetY int
	paletteOffsetX, paletteOffsetY int

	textureMode           TextureMode
	semiTransparent       SemiTransparentMode
	dither                bool
	forceMaskBit          bool
	maskTest              bool
	textureColorModulate  bool
}

// Renderer is the client-facing facade (§2 item 6, §6.1): it drives the
// BlockGrid/HazardTracker, RenderPassBatcher, and DrawQueue, and is itself
// the HazardListener's sole caller of record (the concrete listener is
// injected by the caller, typically psxcore/gpu.Backend).
type Renderer struct {
	grid    *BlockGrid
	tracker *HazardTracker
	queue   *DrawQueue
	pass    *RenderPassBatcher

	listener HazardListener
	state    renderState

	surface TextureSurface
	scale   int
}

// NewRenderer constructs a Renderer with an empty block grid, all blocks
// preferring the unscaled store, and no open render pass.
func NewRenderer(listener HazardListener, opts ...RendererOption) *Renderer {
	cfg := defaultRendererConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	grid := NewBlockGrid()
	queue := NewDrawQueue()
	tracker := NewHazardTracker(grid, listener)
	pass := NewRenderPassBatcher(tracker, queue, listener)
	tracker.bindRenderPass(pass)

	r := &Renderer{
		grid:     grid,
		tracker:  tracker,
		queue:    queue,
		pass:     pass,
		listener: listener,
		scale:    cfg.scale,
	}
	if cfg.logger != nil {
		SetLogger(cfg.logger)
	}
	return r
}

// Scale returns the integer upscale factor of the scaled VRAM
// representation, as configured by WithScale (default 1).
func (r *Renderer) Scale() int { return r.scale }

// SetDrawRect implements §6.1 `set_draw_rect`.
func (r *Renderer) SetDrawRect(rect Rect) { r.pass.SetDrawRect(rect) }

// SetDrawOffset implements §6.1 `set_draw_offset`.
func (r *Renderer) SetDrawOffset(x, y int) {
	r.state.drawOffsetX, r.state.drawOffsetY = x, y
}

// SetTextureWindow implements §6.1 `set_texture_window`.
func (r *Renderer) SetTextureWindow(rect Rect) { r.pass.SetTextureWindow(rect) }

// SetTextureOffset implements §6.1 `set_texture_offset`.
func (r *Renderer) SetTextureOffset(x, y int) {
	r.state.textureOffsetX, r.state.textureOffsetY = x, y
}

// SetPaletteOffset implements §6.1 `set_palette_offset`.
func (r *Renderer) SetPaletteOffset(x, y int) {
	r.state.paletteOffsetX, r.state.paletteOffsetY = x, y
}

// SetTextureMode implements §6.1 `set_texture_mode`.
func (r *Renderer) SetTextureMode(mode TextureMode) { r.state.textureMode = mode }

// SetSemiTransparent implements §6.1 `set_semi_transparent`.
func (r *Renderer) SetSemiTransparent(mode SemiTransparentMode) { r.state.semiTransparent = mode }

// SetDither implements §6.1 `set_dither`.
func (r *Renderer) SetDither(enable bool) { r.state.dither = enable }

// SetMaskTest implements §6.1 `set_mask_test`.
func (r *Renderer) SetMaskTest(enable bool) { r.state.maskTest = enable }

// SetForceMaskBit implements §6.1 `set_force_mask_bit`.
func (r *Renderer) SetForceMaskBit(enable bool) { r.state.forceMaskBit = enable }

// SetTextureColorModulate implements §6.1 `set_texture_color_modulate`.
func (r *Renderer) SetTextureColorModulate(enable bool) { r.state.textureColorModulate = enable }

// SetTextureSurface tells the renderer which allocated texture surface
// (and its UV scale) the next textured primitives should sample — the
// equivalent of the original's last_surface/last_uv_scale, populated by
// the external texture allocator once it has packed the region that
// UploadTexture requested.
func (r *Renderer) SetTextureSurface(surface TextureSurface) { r.surface = surface }

// allocateDepth is allocate_depth: every primitive opens/extends the
// render pass as a side effect of being allocated a depth value, textured
// or not (§12, grounded on renderer.cpp's allocate_depth calling
// write_fragment unconditionally).
func (r *Renderer) allocateDepth() float32 {
	r.pass.WriteFragment(r.state.textureOffsetX, r.state.textureOffsetY)
	return r.queue.allocateDepth()
}

// buildAttribs is build_attribs: allocates one shared depth value for the
// whole primitive, then converts each client Vertex into a BufferVertex
// (§4.4 "Vertex build").
func (r *Renderer) buildAttribs(vertices []Vertex) []BufferVertex {
	z := r.allocateDepth()
	out := make([]BufferVertex, len(vertices))
	textured := r.state.textureMode != TextureModeNone
	for i, v := range vertices {
		color := v.Color & 0xFFFFFF
		if textured && !r.state.textureColorModulate {
			color = 0x808080
		}
		if r.state.forceMaskBit {
			color |= 0xFF000000
		}
		out[i] = BufferVertex{
			X:     v.X + float32(r.state.drawOffsetX),
			Y:     v.Y + float32(r.state.drawOffsetY),
			Z:     z,
			W:     v.W,
			U:     float32(v.U) * r.surface.UVScaleX,
			V:     float32(v.V) * r.surface.UVScaleY,
			Layer: float32(r.surface.Layer),
			Color: color,
		}
	}
	return out
}

// route implements the §4.4 routing table, appending verts to the
// appropriate opaque bucket(s) and/or the ordered semi-transparent bucket.
func (r *Renderer) route(verts []BufferVertex) {
	textured := r.state.textureMode != TextureModeNone
	semi := r.state.semiTransparent != SemiTransparentNone
	masked := r.state.maskTest

	kind := bucketNone
	switch {
	case masked:
		kind = bucketNone
	case !textured && !semi:
		kind = bucketOpaque
	case textured && !semi:
		kind = bucketOpaqueTextured
	case textured && semi:
		kind = bucketSemiTransparentOpaque
	}

	switch kind {
	case bucketOpaque:
		r.queue.appendOpaque(verts)
	case bucketOpaqueTextured:
		r.queue.appendOpaqueTextured(r.surface.Texture, verts)
	case bucketSemiTransparentOpaque:
		r.queue.appendSemiTransparentOpaque(r.surface.Texture, verts)
	}

	if masked || (textured && semi) {
		r.queue.appendSemiTransparent(verts, SemiTransparentState{
			ImageIndex:      r.surface.Texture,
			SemiTransparent: r.state.semiTransparent,
			Textured:        textured,
			Masked:          masked,
		})
		if masked && textured && semi {
			// The "feedback" path: a mask-tested, textured,
			// semi-transparent primitive needs programmable blending
			// with input-attachment self-reads (§4.3, §4.5).
			r.pass.MarkFeedback()
		}
	}
}

// DrawTriangle implements §6.1 `draw_triangle` / §4.4.
func (r *Renderer) DrawTriangle(vertices [3]Vertex) {
	r.route(r.buildAttribs(vertices[:]))
}

// DrawQuad implements §6.1 `draw_quad` / §4.4. Quads are tessellated into
// two triangles with vertex order [0,1,2, 3,2,1].
func (r *Renderer) DrawQuad(vertices [4]Vertex) {
	verts := r.buildAttribs(vertices[:])
	tess := []BufferVertex{verts[0], verts[1], verts[2], verts[3], verts[2], verts[1]}
	r.route(tess)
}

// DrawLine implements §6.1 `draw_line`. Lines are treated like untextured
// triangles/quads for depth-ordering purposes (§9, "open question — line
// primitive": the spec permits either treatment). The texture mode is
// forced to None for the call and restored afterwards; the current
// semi-transparency and mask-test state still apply to routing, so a
// mask-tested line goes to the ordered semi-transparent bucket.
func (r *Renderer) DrawLine(vertices [2]Vertex) {
	savedMode, savedSemi, savedMask := r.state.textureMode, r.state.semiTransparent, r.state.maskTest
	r.state.textureMode = TextureModeNone
	verts := r.buildAttribs(vertices[:])
	r.route(verts)
	r.state.textureMode, r.state.semiTransparent, r.state.maskTest = savedMode, savedSemi, savedMask
}

// ClearQuad implements §6.3 `clear_quad`, called back by the batcher when
// a clear cannot discard the open pass. It forces untextured rendering for
// the depth allocation, matching renderer.cpp's clear_quad saving and
// restoring texture_mode around the call.
func (r *Renderer) ClearQuad(rect Rect, color uint32) {
	savedMode := r.state.textureMode
	r.state.textureMode = TextureModeNone
	z := r.allocateDepth()
	r.state.textureMode = savedMode

	x0, y0 := float32(rect.X), float32(rect.Y)
	x1, y1 := float32(rect.X+rect.W), float32(rect.Y+rect.H)
	corners := [4]BufferVertex{
		{X: x0, Y: y0, Z: z, W: 1, Color: color},
		{X: x1, Y: y0, Z: z, W: 1, Color: color},
		{X: x0, Y: y1, Z: z, W: 1, Color: color},
		{X: x1, Y: y1, Z: z, W: 1, Color: color},
	}
	tess := []BufferVertex{corners[0], corners[1], corners[2], corners[3], corners[2], corners[1]}
	r.queue.appendOpaque(tess)
}

// ClearRect implements §6.1 `clear_rect` / §4.3.
func (r *Renderer) ClearRect(rect Rect, color uint32) { r.pass.ClearRect(rect, color) }

// CopyCPUToVRAM implements §4.6 `copy_cpu_to_vram`: it establishes a
// compute write over rect in the unscaled domain; the caller's listener
// is responsible for actually uploading data and dispatching the compute
// shader once Hazard/Resolve callbacks (if any) have been delivered.
func (r *Renderer) CopyCPUToVRAM(rect Rect, data []uint16) CPUToVRAMWrite {
	r.tracker.Write(Unscaled, Compute, rect)
	return CPUToVRAMWrite{Rect: rect, Data: data, MaskTest: r.state.maskTest}
}

// CPUToVRAMWrite is the bookkeeping result of CopyCPUToVRAM: everything
// the GPU emission layer needs to actually record the compute dispatch.
type CPUToVRAMWrite struct {
	Rect     Rect
	Data     []uint16
	MaskTest bool
}

// BlitVRAM implements §4.6 `blit_vram`: it picks the cheaper
// representation to blit through (Scaled if both src and dst already
// prefer scaled, else Unscaled) and establishes the matching compute
// write, leaving shader dispatch to the listener.
func (r *Renderer) BlitVRAM(dst, src Rect) VRAMBlit {
	srcDomain := r.tracker.FindSuitableDomain(src)
	dstDomain := r.tracker.FindSuitableDomain(dst)
	domain := Unscaled
	if srcDomain == Scaled && dstDomain == Scaled {
		domain = Scaled
	}
	r.tracker.Read(domain, Compute, src)
	r.tracker.Write(domain, Compute, dst)
	return VRAMBlit{Dst: dst, Src: src, Domain: domain, MaskTest: r.state.maskTest}
}

// VRAMBlit is the bookkeeping result of BlitVRAM.
type VRAMBlit struct {
	Dst, Src Rect
	Domain   Domain
	MaskTest bool
}

// Scanout implements §4.6 `scanout`: it syncs the scaled domain over rect
// (flushing an open pass that overlaps it). It does not notify the
// listener; recording the full-screen quad that samples the scaled
// framebuffer is left to the caller (gpu.Backend.Present).
func (r *Renderer) Scanout(rect Rect) {
	r.tracker.Read(Scaled, Fragment, rect)
}

// FlushRenderPass forces the currently open render pass to close, if any.
// Exposed for callers (e.g. end-of-frame) that need a deterministic flush
// point beyond scanout.
func (r *Renderer) FlushRenderPass() { r.pass.FlushRenderPass() }

// Queue exposes the current draw queue for the GPU emission layer to
// iterate when flushing a render pass. It is only valid to read from
// inside a HazardListener.FlushRenderPass callback.
func (r *Renderer) Queue() *DrawQueue { return r.queue }

// Pass exposes the render-pass batcher's current state (clean-clear,
// feedback) for the GPU emission layer.
func (r *Renderer) Pass() *RenderPassBatcher { return r.pass }
