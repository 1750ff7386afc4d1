package gpu

import "github.com/gogpu/psxcore"

// HeadlessBackend is a CPU-only psxcore.HazardListener. It performs no GPU
// work at all: every callback just records what it was asked to do, so
// tests can drive a Renderer and assert on hazard/resolve/flush sequencing
// without a real device, the way the teacher's SoftwareBackend stands in
// for the native/rust GPU backends.
type HeadlessBackend struct {
	renderer *psxcore.Renderer

	Hazards   []psxcore.HazardMask
	Resolves  []HeadlessResolve
	Flushes   []psxcore.Rect
	Discards  int
	Uploads   []HeadlessUpload
	Clears    []HeadlessClear
}

// HeadlessResolve records one Resolve callback.
type HeadlessResolve struct {
	Domain psxcore.Domain
	BX, BY int
}

// HeadlessUpload records one UploadTexture callback.
type HeadlessUpload struct {
	Domain     psxcore.Domain
	Rect       psxcore.Rect
	OffX, OffY int
}

// HeadlessClear records one ClearQuad callback.
type HeadlessClear struct {
	Rect  psxcore.Rect
	Color uint32
}

// NewHeadlessBackend creates an empty headless backend. Call SetRenderer
// before driving it, same two-step wiring as Backend.
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{}
}

// SetRenderer attaches the psxcore.Renderer this backend serves.
func (b *HeadlessBackend) SetRenderer(r *psxcore.Renderer) { b.renderer = r }

// Reset clears every recorded callback, keeping the attached renderer.
func (b *HeadlessBackend) Reset() {
	b.Hazards = nil
	b.Resolves = nil
	b.Flushes = nil
	b.Discards = 0
	b.Uploads = nil
	b.Clears = nil
}

func (b *HeadlessBackend) Hazard(mask psxcore.HazardMask) {
	b.Hazards = append(b.Hazards, mask)
}

func (b *HeadlessBackend) Resolve(targetDomain psxcore.Domain, bx, by int) {
	b.Resolves = append(b.Resolves, HeadlessResolve{Domain: targetDomain, BX: bx, BY: by})
}

func (b *HeadlessBackend) FlushRenderPass(rect psxcore.Rect) {
	b.Flushes = append(b.Flushes, rect)
}

func (b *HeadlessBackend) DiscardRenderPass() {
	b.Discards++
}

func (b *HeadlessBackend) UploadTexture(targetDomain psxcore.Domain, rect psxcore.Rect, offX, offY int) {
	b.Uploads = append(b.Uploads, HeadlessUpload{Domain: targetDomain, Rect: rect, OffX: offX, OffY: offY})
	if b.renderer != nil {
		b.renderer.SetTextureSurface(psxcore.TextureSurface{UVScaleX: 1, UVScaleY: 1})
	}
}

func (b *HeadlessBackend) ClearQuad(rect psxcore.Rect, color uint32) {
	b.Clears = append(b.Clears, HeadlessClear{Rect: rect, Color: color})
	if b.renderer != nil {
		b.renderer.ClearQuad(rect, color)
	}
}
