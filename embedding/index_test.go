package embedding

import "testing"

func TestFilterWhereClauseEmpty(t *testing.T) {
	where, args := Filter{}.whereClause()
	if where != "" || len(args) != 0 {
		t.Errorf("expected empty filter to produce no clause, got %q %v", where, args)
	}
}

func TestFilterWhereClauseDocumentID(t *testing.T) {
	where, args := Filter{DocumentID: 42}.whereClause()
	if where == "" {
		t.Fatal("expected non-empty clause")
	}
	if len(args) != 1 || args[0] != int64(42) {
		t.Errorf("args = %v, want [42]", args)
	}
}

func TestFilterWhereClauseCombines(t *testing.T) {
	where, args := Filter{DocumentID: 1, Topic: "mass", GradeLevels: []int{3, 4}}.whereClause()
	if where == "" {
		t.Fatal("expected non-empty clause")
	}
	// document_id + topic + 2 grade levels = 4 bound args
	if len(args) != 4 {
		t.Errorf("expected 4 bound args, got %d: %v", len(args), args)
	}
}

func TestFuseRRFPrefersItemsInBothSignals(t *testing.T) {
	vec := []Result{{ChunkID: 1}, {ChunkID: 2}, {ChunkID: 3}}
	fts := []Result{{ChunkID: 3}, {ChunkID: 4}}

	fused := fuseRRF(vec, fts, 10)

	if len(fused) != 4 {
		t.Fatalf("expected 4 distinct chunks, got %d", len(fused))
	}
	if fused[0].ChunkID != 3 {
		t.Errorf("expected chunk 3 (present in both signals) to rank first, got %d", fused[0].ChunkID)
	}
}

func TestFuseRRFRespectsLimit(t *testing.T) {
	vec := []Result{{ChunkID: 1}, {ChunkID: 2}, {ChunkID: 3}, {ChunkID: 4}}
	fused := fuseRRF(vec, nil, 2)
	if len(fused) != 2 {
		t.Errorf("expected limit of 2 results, got %d", len(fused))
	}
}

func TestSerializeFloat32RoundTripsLength(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.0}
	buf := serializeFloat32(v)
	if len(buf) != len(v)*4 {
		t.Errorf("serialized length = %d, want %d", len(buf), len(v)*4)
	}
}
