package psxcore

// TextureMode selects the sampler path for a textured primitive.
type TextureMode uint8

const (
	TextureModeNone TextureMode = iota
	TextureModeABGR1555
	TextureModePalette8bpp
	TextureModePalette4bpp
)

// SemiTransparentMode selects the blending function applied when a
// primitive's semi-transparency bit is set (§4.5).
type SemiTransparentMode uint8

const (
	SemiTransparentNone SemiTransparentMode = iota
	SemiTransparentAdd
	SemiTransparentAverage
	SemiTransparentSub
	SemiTransparentAddQuarter
)

// TextureID identifies a texture surface handed out by the external
// texture allocator (§1, out of scope). The core only ever stores and
// compares these; it never interprets the value.
type TextureID uint32

// Vertex is a single client-submitted vertex (§6.1 Vertex).
type Vertex struct {
	X, Y, W float32
	Color   uint32
	U, V    uint8
}

// BufferVertex is the GPU-ready vertex produced by BuildAttribs: position,
// the allocated depth, texture coordinates normalized into [0,1] plus
// array layer, and the final packed color (§4.4 "Vertex build").
type BufferVertex struct {
	X, Y, Z, W float32
	U, V       float32
	Layer      float32
	Color      uint32
}

// TextureSurface names the texture (and array layer within it) a textured
// primitive samples, plus the UV scale needed to normalize the integer
// texel coordinates carried on Vertex (§4.6 upload_texture).
type TextureSurface struct {
	Texture   TextureID
	Layer     int
	UVScaleX  float32
	UVScaleY  float32
}

// SemiTransparentState records, per entry in the ordered semi-transparent
// bucket, the blend/texture/mask configuration active when the primitive
// was submitted, so that a run of identical consecutive states can be
// batched into a single draw call (§4.4).
type SemiTransparentState struct {
	ImageIndex      TextureID
	SemiTransparent SemiTransparentMode
	Textured        bool
	Masked          bool

	// VertexCount is how many consecutive vertices in SemiTransparent this
	// entry covers (3 for a triangle, 6 for a tessellated quad).
	VertexCount int
}

// SameState reports whether s and other share blend/texture/mask state,
// ignoring VertexCount — used to decide whether two consecutive entries
// can be merged into a single draw call.
func (s SemiTransparentState) SameState(other SemiTransparentState) bool {
	return s.ImageIndex == other.ImageIndex &&
		s.SemiTransparent == other.SemiTransparent &&
		s.Textured == other.Textured &&
		s.Masked == other.Masked
}

// Equal reports whether s and other describe the same draw-call state.
func (s SemiTransparentState) Equal(other SemiTransparentState) bool {
	return s == other
}

// bucketKind identifies which opaque bucket a primitive was routed to, if
// any (§4.4 routing table).
type bucketKind uint8

const (
	bucketNone bucketKind = iota
	bucketOpaque
	bucketOpaqueTextured
	bucketSemiTransparentOpaque
)

// DrawQueue accumulates primitives between render-pass flushes, sorted
// into the buckets described by §4.4. It is reset on every flush or
// discard and is exclusively owned by the Renderer facade.
type DrawQueue struct {
	Opaque                []BufferVertex
	OpaqueTextured        [][]BufferVertex
	SemiTransparentOpaque [][]BufferVertex
	SemiTransparent       []BufferVertex
	SemiTransparentState  []SemiTransparentState
	Textures              []TextureID

	primitiveIndex uint32
}

// NewDrawQueue returns an empty queue.
func NewDrawQueue() *DrawQueue { return &DrawQueue{} }

// reset clears every bucket and the primitive index, matching the
// original's reset_queue. Slices are truncated, not reallocated, so
// steady-state frames do not churn the allocator.
func (q *DrawQueue) reset() {
	q.Opaque = q.Opaque[:0]
	for i := range q.OpaqueTextured {
		q.OpaqueTextured[i] = q.OpaqueTextured[i][:0]
	}
	for i := range q.SemiTransparentOpaque {
		q.SemiTransparentOpaque[i] = q.SemiTransparentOpaque[i][:0]
	}
	q.SemiTransparent = q.SemiTransparent[:0]
	q.SemiTransparentState = q.SemiTransparentState[:0]
	q.Textures = q.Textures[:0]
	q.primitiveIndex = 0
}

// allocateDepth assigns the next monotonically decreasing depth value
// (§4.4 "Every draw allocates a new depth value").
func (q *DrawQueue) allocateDepth() float32 {
	z := 1 - float32(q.primitiveIndex)*(2.0/0xFFFFFF)
	q.primitiveIndex++
	return z
}

func (q *DrawQueue) ensureTextureBucket(buckets *[][]BufferVertex, tex TextureID) *[]BufferVertex {
	idx := int(tex)
	for len(*buckets) <= idx {
		*buckets = append(*buckets, nil)
	}
	return &(*buckets)[idx]
}

func (q *DrawQueue) appendOpaque(v []BufferVertex) {
	q.Opaque = append(q.Opaque, v...)
}

func (q *DrawQueue) appendOpaqueTextured(tex TextureID, v []BufferVertex) {
	bucket := q.ensureTextureBucket(&q.OpaqueTextured, tex)
	*bucket = append(*bucket, v...)
}

func (q *DrawQueue) appendSemiTransparentOpaque(tex TextureID, v []BufferVertex) {
	bucket := q.ensureTextureBucket(&q.SemiTransparentOpaque, tex)
	*bucket = append(*bucket, v...)
}

func (q *DrawQueue) appendSemiTransparent(v []BufferVertex, state SemiTransparentState) {
	state.VertexCount = len(v)
	q.SemiTransparent = append(q.SemiTransparent, v...)
	q.SemiTransparentState = append(q.SemiTransparentState, state)
}
