package psxcore

// mockListener records every callback it receives, for assertions in
// tests across the package (hazard, render pass, renderer facade).
type mockListener struct {
	hazards     []HazardMask
	resolves    []resolveCall
	flushed     []Rect
	discarded   int
	uploads     []uploadCall
	clearQuads  []clearQuadCall
}

type resolveCall struct {
	Domain Domain
	BX, BY int
}

type uploadCall struct {
	Domain Domain
	Rect   Rect
	OffX   int
	OffY   int
}

type clearQuadCall struct {
	Rect  Rect
	Color uint32
}

func (m *mockListener) Hazard(mask HazardMask) {
	m.hazards = append(m.hazards, mask)
}

func (m *mockListener) Resolve(targetDomain Domain, bx, by int) {
	m.resolves = append(m.resolves, resolveCall{targetDomain, bx, by})
}

func (m *mockListener) FlushRenderPass(rect Rect) {
	m.flushed = append(m.flushed, rect)
}

func (m *mockListener) DiscardRenderPass() {
	m.discarded++
}

func (m *mockListener) UploadTexture(targetDomain Domain, rect Rect, offX, offY int) {
	m.uploads = append(m.uploads, uploadCall{targetDomain, rect, offX, offY})
}

func (m *mockListener) ClearQuad(rect Rect, color uint32) {
	m.clearQuads = append(m.clearQuads, clearQuadCall{rect, color})
}

func (m *mockListener) reset() {
	m.hazards = nil
	m.resolves = nil
	m.flushed = nil
	m.discarded = 0
	m.uploads = nil
	m.clearQuads = nil
}
