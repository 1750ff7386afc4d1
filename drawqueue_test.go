package psxcore

import "testing"

func TestAllocateDepthMonotonicDecreasing(t *testing.T) {
	q := NewDrawQueue()
	first := q.allocateDepth()
	second := q.allocateDepth()
	third := q.allocateDepth()

	if first != 1 {
		t.Errorf("first depth: got %v, want 1", first)
	}
	if !(first > second && second > third) {
		t.Errorf("depth values must strictly decrease: %v, %v, %v", first, second, third)
	}
	if q.primitiveIndex != 3 {
		t.Errorf("primitiveIndex: got %d, want 3", q.primitiveIndex)
	}
}

func TestResetClearsAllBuckets(t *testing.T) {
	q := NewDrawQueue()
	v := []BufferVertex{{X: 1}, {X: 2}, {X: 3}}
	q.appendOpaque(v)
	q.appendOpaqueTextured(2, v)
	q.appendSemiTransparentOpaque(1, v)
	q.appendSemiTransparent(v, SemiTransparentState{Textured: true})
	q.allocateDepth()

	q.reset()

	if len(q.Opaque) != 0 {
		t.Error("Opaque not cleared")
	}
	for i, b := range q.OpaqueTextured {
		if len(b) != 0 {
			t.Errorf("OpaqueTextured[%d] not cleared", i)
		}
	}
	for i, b := range q.SemiTransparentOpaque {
		if len(b) != 0 {
			t.Errorf("SemiTransparentOpaque[%d] not cleared", i)
		}
	}
	if len(q.SemiTransparent) != 0 || len(q.SemiTransparentState) != 0 {
		t.Error("SemiTransparent/SemiTransparentState not cleared")
	}
	if q.primitiveIndex != 0 {
		t.Errorf("primitiveIndex: got %d, want 0", q.primitiveIndex)
	}
}

func TestAppendOpaqueTexturedGrowsSparseBucket(t *testing.T) {
	q := NewDrawQueue()
	v := []BufferVertex{{X: 9}}
	q.appendOpaqueTextured(3, v)

	if len(q.OpaqueTextured) != 4 {
		t.Fatalf("expected the bucket slice to grow to index 3, got len %d", len(q.OpaqueTextured))
	}
	if len(q.OpaqueTextured[3]) != 1 || q.OpaqueTextured[3][0].X != 9 {
		t.Errorf("unexpected contents at texture bucket 3: %v", q.OpaqueTextured[3])
	}
	for i := 0; i < 3; i++ {
		if len(q.OpaqueTextured[i]) != 0 {
			t.Errorf("bucket %d should be empty, got %v", i, q.OpaqueTextured[i])
		}
	}
}

func TestAppendSemiTransparentRecordsVertexCount(t *testing.T) {
	q := NewDrawQueue()
	tri := []BufferVertex{{X: 1}, {X: 2}, {X: 3}}
	q.appendSemiTransparent(tri, SemiTransparentState{Textured: true, Masked: true})

	if len(q.SemiTransparentState) != 1 {
		t.Fatalf("expected 1 state entry, got %d", len(q.SemiTransparentState))
	}
	if q.SemiTransparentState[0].VertexCount != 3 {
		t.Errorf("VertexCount: got %d, want 3", q.SemiTransparentState[0].VertexCount)
	}
	if len(q.SemiTransparent) != 3 {
		t.Errorf("expected 3 vertices appended, got %d", len(q.SemiTransparent))
	}
}

func TestSemiTransparentStateSameStateIgnoresVertexCount(t *testing.T) {
	a := SemiTransparentState{ImageIndex: 1, SemiTransparent: SemiTransparentAdd, Textured: true, VertexCount: 3}
	b := SemiTransparentState{ImageIndex: 1, SemiTransparent: SemiTransparentAdd, Textured: true, VertexCount: 6}

	if !a.SameState(b) {
		t.Error("expected SameState to ignore VertexCount")
	}
	if a.Equal(b) {
		t.Error("Equal must still distinguish them by VertexCount")
	}

	c := SemiTransparentState{ImageIndex: 2, SemiTransparent: SemiTransparentAdd, Textured: true, VertexCount: 3}
	if a.SameState(c) {
		t.Error("expected SameState to distinguish different image indices")
	}
}
