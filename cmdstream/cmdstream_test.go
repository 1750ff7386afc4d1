package cmdstream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putF32(buf *bytes.Buffer, f float32) { putU32(buf, math.Float32bits(f)) }

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeVertex(buf *bytes.Buffer, x, y, w float32, color uint32, u, v uint16) {
	putF32(buf, x)
	putF32(buf, y)
	putF32(buf, w)
	putU32(buf, color)
	putU16(buf, u)
	putU16(buf, v)
}

func writeRenderState(buf *bytes.Buffer) {
	for i := 0; i < 10; i++ {
		putU32(buf, uint32(i))
	}
}

func TestNewReaderRejectsBadTag(t *testing.T) {
	buf := bytes.NewBufferString("NOTAVALID")
	if _, err := NewReader(buf); !errors.Is(err, ErrBadTag) {
		t.Fatalf("NewReader() error = %v, want ErrBadTag", err)
	}
}

func TestNewReaderShortTag(t *testing.T) {
	buf := bytes.NewBufferString("RSX")
	if _, err := NewReader(buf); !errors.Is(err, ErrShortRead) {
		t.Fatalf("NewReader() error = %v, want ErrShortRead", err)
	}
}

func TestReaderDecodesEnd(t *testing.T) {
	buf := bytes.NewBufferString("RSXDUMP2")
	putU32(buf, uint32(OpEnd))

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	rec, err := r.Next()
	if err != io.EOF {
		t.Fatalf("Next() error = %v, want io.EOF", err)
	}
	if rec.Op != OpEnd {
		t.Errorf("rec.Op = %v, want OpEnd", rec.Op)
	}
}

func TestReaderDecodesTriangle(t *testing.T) {
	buf := bytes.NewBufferString("RSXDUMP2")
	putU32(buf, uint32(OpTriangle))
	for i := 0; i < 3; i++ {
		writeVertex(buf, float32(i), float32(i*2), 1, 0xFF00FF00, uint16(i), uint16(i+1))
	}
	writeRenderState(buf)
	putU32(buf, uint32(OpEnd))

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec.Op != OpTriangle {
		t.Fatalf("rec.Op = %v, want OpTriangle", rec.Op)
	}
	if rec.Triangle.Vertices[1].Y != 2 {
		t.Errorf("Vertices[1].Y = %v, want 2", rec.Triangle.Vertices[1].Y)
	}
	if rec.Triangle.State.SetMask != 9 {
		t.Errorf("State.SetMask = %v, want 9", rec.Triangle.State.SetMask)
	}

	end, err := r.Next()
	if err != io.EOF {
		t.Fatalf("final Next() error = %v, want io.EOF", err)
	}
	if end.Op != OpEnd {
		t.Errorf("final rec.Op = %v, want OpEnd", end.Op)
	}
}

func TestReaderDecodesFillRect(t *testing.T) {
	buf := bytes.NewBufferString("RSXDUMP2")
	putU32(buf, uint32(OpFillRect))
	putU32(buf, 0x00112233)
	putU32(buf, 4)
	putU32(buf, 8)
	putU32(buf, 16)
	putU32(buf, 32)
	putU32(buf, uint32(OpEnd))

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	want := FillRect{Color: 0x00112233, X: 4, Y: 8, Width: 16, Height: 32}
	if rec.FillRect != want {
		t.Errorf("FillRect = %+v, want %+v", rec.FillRect, want)
	}
}

func TestReaderDecodesLoadImage(t *testing.T) {
	buf := bytes.NewBufferString("RSXDUMP2")
	putU32(buf, uint32(OpLoadImage))
	putU32(buf, 0) // x
	putU32(buf, 0) // y
	putU32(buf, 2) // width
	putU32(buf, 2) // height
	putU32(buf, 1) // mask test
	putU32(buf, 0) // set mask
	for _, texel := range []uint16{0x1111, 0x2222, 0x3333, 0x4444} {
		putU16(buf, texel)
	}
	putU32(buf, uint32(OpEnd))

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !rec.LoadImage.MaskTest || rec.LoadImage.SetMask {
		t.Errorf("LoadImage mask flags = %v/%v, want true/false", rec.LoadImage.MaskTest, rec.LoadImage.SetMask)
	}
	if len(rec.LoadImage.Data) != 4 || rec.LoadImage.Data[2] != 0x3333 {
		t.Errorf("LoadImage.Data = %v", rec.LoadImage.Data)
	}
}

func TestReaderUnknownOpcode(t *testing.T) {
	buf := bytes.NewBufferString("RSXDUMP2")
	putU32(buf, 999)

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("Next() error = %v, want ErrUnknownOpcode", err)
	}
}

func TestReaderShortRecord(t *testing.T) {
	buf := bytes.NewBufferString("RSXDUMP2")
	putU32(buf, uint32(OpFillRect))
	putU32(buf, 0x1)
	// truncated: only 1 of 5 payload words present

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, ErrShortRead) {
		t.Fatalf("Next() error = %v, want ErrShortRead", err)
	}
}
