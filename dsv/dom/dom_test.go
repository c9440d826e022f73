package dom

import (
	"testing"

	"github.com/shapestone/shape-dsv/dsv"
)

func TestDocumentFluentBuildAndDSV(t *testing.T) {
	doc := NewDocument().
		SetHeaders([]string{"name", "age"}).
		AddRecord([]string{"Alice", "30"}).
		AddRecord([]string{"Bob", "25"})

	if doc.RecordCount() != 2 {
		t.Fatalf("RecordCount = %d, want 2", doc.RecordCount())
	}

	out, err := doc.DSV(dsv.UnparseConfig{})
	if err != nil {
		t.Fatalf("DSV: %v", err)
	}
	want := "name,age\r\nAlice,30\r\nBob,25"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRecordGetAndGetByName(t *testing.T) {
	doc := NewDocument().
		SetHeaders([]string{"name", "age"}).
		AddRecord([]string{"Alice", "30"})

	record, ok := doc.GetRecord(0)
	if !ok {
		t.Fatalf("expected record at index 0")
	}
	if v, ok := record.Get(1); !ok || v != "30" {
		t.Fatalf("Get(1) = %q, %v", v, ok)
	}
	if v, ok := record.GetByName("name"); !ok || v != "Alice" {
		t.Fatalf("GetByName(name) = %q, %v", v, ok)
	}
	if _, ok := record.GetByName("missing"); ok {
		t.Fatalf("expected GetByName(missing) to fail")
	}
}

func TestGetRecordOutOfBounds(t *testing.T) {
	doc := NewDocument()
	if _, ok := doc.GetRecord(0); ok {
		t.Fatalf("expected out-of-bounds GetRecord to fail")
	}
}

func TestParseDocumentWithHeader(t *testing.T) {
	doc, err := ParseDocument("name,age\nAlice,30\nBob,25\n", dsv.Config{Header: true})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(doc.Headers()) != 2 || doc.Headers()[0] != "name" {
		t.Fatalf("headers = %#v", doc.Headers())
	}
	if doc.RecordCount() != 2 {
		t.Fatalf("RecordCount = %d, want 2", doc.RecordCount())
	}
	record, _ := doc.GetRecord(0)
	if v, _ := record.Get(0); v != "Alice" {
		t.Fatalf("record[0][0] = %q, want Alice", v)
	}
}

func TestParseDocumentWithoutHeader(t *testing.T) {
	doc, err := ParseDocument("1,2\n3,4\n", dsv.Config{})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(doc.Headers()) != 0 {
		t.Fatalf("expected no headers, got %#v", doc.Headers())
	}
	if doc.RecordCount() != 2 {
		t.Fatalf("RecordCount = %d, want 2", doc.RecordCount())
	}
}
