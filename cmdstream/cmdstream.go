// Package cmdstream reads the RSXDUMP2 command-stream fixture format
// (spec §6.2): a recorded sequence of GPU commands used to drive golden
// and property tests, and the psxreplay utility, against a real
// psxcore.Renderer. It is an external collaborator's file format, never
// produced by this module, so it is parsed with the standard library
// rather than a third-party codec the way the teacher reaches for
// encoding/binary whenever no ecosystem library in the pack models the
// wire format (see DESIGN.md).
package cmdstream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var tag = [8]byte{'R', 'S', 'X', 'D', 'U', 'M', 'P', '2'}

var (
	// ErrShortRead is returned when a record's payload is truncated.
	ErrShortRead = errors.New("cmdstream: short read")
	// ErrBadTag is returned when the file does not start with RSXDUMP2.
	ErrBadTag = errors.New("cmdstream: bad tag")
	// ErrUnknownOpcode is returned for an opcode outside the known set.
	ErrUnknownOpcode = errors.New("cmdstream: unknown opcode")
)

// Opcode identifies one record kind in the stream.
type Opcode uint32

const (
	OpEnd Opcode = iota
	OpPrepareFrame
	OpFinalizeFrame
	OpTexWindow
	OpDrawOffset
	OpDrawArea
	OpDisplayMode
	OpTriangle
	OpQuad
	OpLine
	OpLoadImage
	OpFillRect
	OpCopyRect
	OpToggleDisplay
)

// Vertex is one RSXDUMP2 vertex record: position, packed color, and
// texel-space UV coordinates (spec §6.2).
type Vertex struct {
	X, Y, W float32
	Color   uint32
	U, V    uint16
}

// RenderState mirrors the 10 u32 fields recorded alongside TRIANGLE/QUAD
// records (spec §6.2).
type RenderState struct {
	PageX, PageY     uint32
	ClutX, ClutY     uint32
	BlendMode        uint32
	DepthShift       uint32
	Dither           uint32
	TransMode        uint32
	MaskTest         uint32
	SetMask          uint32
}

// TexWindow is the payload of a TEX_WINDOW record.
type TexWindow struct {
	Width, Height uint32
	X, Y          uint32
}

// DrawOffset is the payload of a DRAW_OFFSET record.
type DrawOffset struct{ X, Y int32 }

// DrawArea is the payload of a DRAW_AREA record (inclusive bounds).
type DrawArea struct{ X0, Y0, X1, Y1 uint32 }

// DisplayMode is the payload of a DISPLAY_MODE record.
type DisplayMode struct {
	X, Y, Width, Height uint32
	Depth24             bool
}

// Triangle is the payload of a TRIANGLE record.
type Triangle struct {
	Vertices [3]Vertex
	State    RenderState
}

// Quad is the payload of a QUAD record.
type Quad struct {
	Vertices [4]Vertex
	State    RenderState
}

// Line is the payload of a LINE record.
type Line struct {
	Vertices [2]Vertex
	State    RenderState
}

// LoadImage is the payload of a LOAD_IMAGE record.
type LoadImage struct {
	X, Y, Width, Height uint32
	MaskTest, SetMask   bool
	Data                []uint16
}

// FillRect is the payload of a FILL_RECT record.
type FillRect struct {
	Color               uint32
	X, Y, Width, Height uint32
}

// CopyRect is the payload of a COPY_RECT record.
type CopyRect struct {
	SrcX, SrcY, DstX, DstY, Width, Height uint32
	MaskTest, SetMask                     bool
}

// ToggleDisplay is the payload of a TOGGLE_DISPLAY record.
type ToggleDisplay struct{ Enabled uint32 }

// Record is one decoded RSXDUMP2 entry. Exactly one of the typed fields is
// populated, selected by Op.
type Record struct {
	Op Opcode

	TexWindow     TexWindow
	DrawOffset    DrawOffset
	DrawArea      DrawArea
	DisplayMode   DisplayMode
	Triangle      Triangle
	Quad          Quad
	Line          Line
	LoadImage     LoadImage
	FillRect      FillRect
	CopyRect      CopyRect
	ToggleDisplay ToggleDisplay
}

// Reader decodes a RSXDUMP2 byte stream into Records.
type Reader struct {
	r *bufio.Reader
}

// NewReader validates the 8-byte tag and returns a Reader positioned at
// the first record.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	var got [8]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrShortRead, err)
		}
		return nil, err
	}
	if got != tag {
		return nil, ErrBadTag
	}
	return &Reader{r: br}, nil
}

// Next decodes the next record, returning io.EOF once an END opcode (or
// the underlying stream's real EOF at a record boundary) is reached. A
// stream that ends inside a record's payload yields ErrShortRead.
func (d *Reader) Next() (Record, error) {
	op, err := d.u32()
	if err != nil {
		return Record{}, err
	}

	rec := Record{Op: Opcode(op)}
	switch rec.Op {
	case OpEnd:
		return rec, io.EOF
	case OpPrepareFrame, OpFinalizeFrame:
		// no payload
	case OpTexWindow:
		rec.TexWindow, err = d.texWindow()
	case OpDrawOffset:
		rec.DrawOffset, err = d.drawOffset()
	case OpDrawArea:
		rec.DrawArea, err = d.drawArea()
	case OpDisplayMode:
		rec.DisplayMode, err = d.displayMode()
	case OpTriangle:
		rec.Triangle, err = d.triangle()
	case OpQuad:
		rec.Quad, err = d.quad()
	case OpLine:
		rec.Line, err = d.line()
	case OpLoadImage:
		rec.LoadImage, err = d.loadImage()
	case OpFillRect:
		rec.FillRect, err = d.fillRect()
	case OpCopyRect:
		rec.CopyRect, err = d.copyRect()
	case OpToggleDisplay:
		rec.ToggleDisplay, err = d.toggleDisplay()
	default:
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, op)
	}
	if err != nil {
		if err == io.EOF {
			return Record{}, fmt.Errorf("%w: %v", ErrShortRead, io.ErrUnexpectedEOF)
		}
		return Record{}, err
	}
	return rec, nil
}

func (d *Reader) u32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: %v", ErrShortRead, err)
		}
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (d *Reader) i32() (int32, error) {
	v, err := d.u32()
	return int32(v), err
}

func (d *Reader) f32() (float32, error) {
	v, err := d.u32()
	return math.Float32frombits(v), err
}

func (d *Reader) u16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: %v", ErrShortRead, err)
		}
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (d *Reader) bool32() (bool, error) {
	v, err := d.u32()
	return v != 0, err
}

func (d *Reader) vertex() (Vertex, error) {
	var v Vertex
	var err error
	if v.X, err = d.f32(); err != nil {
		return v, err
	}
	if v.Y, err = d.f32(); err != nil {
		return v, err
	}
	if v.W, err = d.f32(); err != nil {
		return v, err
	}
	if v.Color, err = d.u32(); err != nil {
		return v, err
	}
	if v.U, err = d.u16(); err != nil {
		return v, err
	}
	if v.V, err = d.u16(); err != nil {
		return v, err
	}
	return v, nil
}

func (d *Reader) renderState() (RenderState, error) {
	var rs RenderState
	fields := []*uint32{
		&rs.PageX, &rs.PageY, &rs.ClutX, &rs.ClutY, &rs.BlendMode,
		&rs.DepthShift, &rs.Dither, &rs.TransMode, &rs.MaskTest, &rs.SetMask,
	}
	for _, f := range fields {
		v, err := d.u32()
		if err != nil {
			return rs, err
		}
		*f = v
	}
	return rs, nil
}

func (d *Reader) texWindow() (TexWindow, error) {
	var t TexWindow
	var err error
	if t.Width, err = d.u32(); err != nil {
		return t, err
	}
	if t.Height, err = d.u32(); err != nil {
		return t, err
	}
	if t.X, err = d.u32(); err != nil {
		return t, err
	}
	if t.Y, err = d.u32(); err != nil {
		return t, err
	}
	return t, nil
}

func (d *Reader) drawOffset() (DrawOffset, error) {
	var o DrawOffset
	var err error
	if o.X, err = d.i32(); err != nil {
		return o, err
	}
	if o.Y, err = d.i32(); err != nil {
		return o, err
	}
	return o, nil
}

func (d *Reader) drawArea() (DrawArea, error) {
	var a DrawArea
	var err error
	if a.X0, err = d.u32(); err != nil {
		return a, err
	}
	if a.Y0, err = d.u32(); err != nil {
		return a, err
	}
	if a.X1, err = d.u32(); err != nil {
		return a, err
	}
	if a.Y1, err = d.u32(); err != nil {
		return a, err
	}
	return a, nil
}

func (d *Reader) displayMode() (DisplayMode, error) {
	var m DisplayMode
	var err error
	if m.X, err = d.u32(); err != nil {
		return m, err
	}
	if m.Y, err = d.u32(); err != nil {
		return m, err
	}
	if m.Width, err = d.u32(); err != nil {
		return m, err
	}
	if m.Height, err = d.u32(); err != nil {
		return m, err
	}
	if m.Depth24, err = d.bool32(); err != nil {
		return m, err
	}
	return m, nil
}

func (d *Reader) triangle() (Triangle, error) {
	var t Triangle
	for i := range t.Vertices {
		v, err := d.vertex()
		if err != nil {
			return t, err
		}
		t.Vertices[i] = v
	}
	state, err := d.renderState()
	if err != nil {
		return t, err
	}
	t.State = state
	return t, nil
}

func (d *Reader) quad() (Quad, error) {
	var q Quad
	for i := range q.Vertices {
		v, err := d.vertex()
		if err != nil {
			return q, err
		}
		q.Vertices[i] = v
	}
	state, err := d.renderState()
	if err != nil {
		return q, err
	}
	q.State = state
	return q, nil
}

func (d *Reader) line() (Line, error) {
	var l Line
	for i := range l.Vertices {
		v, err := d.vertex()
		if err != nil {
			return l, err
		}
		l.Vertices[i] = v
	}
	state, err := d.renderState()
	if err != nil {
		return l, err
	}
	l.State = state
	return l, nil
}

func (d *Reader) loadImage() (LoadImage, error) {
	var img LoadImage
	var err error
	if img.X, err = d.u32(); err != nil {
		return img, err
	}
	if img.Y, err = d.u32(); err != nil {
		return img, err
	}
	if img.Width, err = d.u32(); err != nil {
		return img, err
	}
	if img.Height, err = d.u32(); err != nil {
		return img, err
	}
	if img.MaskTest, err = d.bool32(); err != nil {
		return img, err
	}
	if img.SetMask, err = d.bool32(); err != nil {
		return img, err
	}
	img.Data = make([]uint16, int(img.Width)*int(img.Height))
	for i := range img.Data {
		if img.Data[i], err = d.u16(); err != nil {
			return img, err
		}
	}
	return img, nil
}

func (d *Reader) fillRect() (FillRect, error) {
	var f FillRect
	var err error
	if f.Color, err = d.u32(); err != nil {
		return f, err
	}
	if f.X, err = d.u32(); err != nil {
		return f, err
	}
	if f.Y, err = d.u32(); err != nil {
		return f, err
	}
	if f.Width, err = d.u32(); err != nil {
		return f, err
	}
	if f.Height, err = d.u32(); err != nil {
		return f, err
	}
	return f, nil
}

func (d *Reader) copyRect() (CopyRect, error) {
	var c CopyRect
	var err error
	if c.SrcX, err = d.u32(); err != nil {
		return c, err
	}
	if c.SrcY, err = d.u32(); err != nil {
		return c, err
	}
	if c.DstX, err = d.u32(); err != nil {
		return c, err
	}
	if c.DstY, err = d.u32(); err != nil {
		return c, err
	}
	if c.Width, err = d.u32(); err != nil {
		return c, err
	}
	if c.Height, err = d.u32(); err != nil {
		return c, err
	}
	if c.MaskTest, err = d.bool32(); err != nil {
		return c, err
	}
	if c.SetMask, err = d.bool32(); err != nil {
		return c, err
	}
	return c, nil
}

func (d *Reader) toggleDisplay() (ToggleDisplay, error) {
	v, err := d.u32()
	return ToggleDisplay{Enabled: v}, err
}
