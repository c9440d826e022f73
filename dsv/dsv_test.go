package dsv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseStringWithHeader(t *testing.T) {
	result, _, err := Parse(context.Background(), "a,b\n1,2\n3,4\n", Config{Header: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result == nil || len(result.Named) != 2 {
		t.Fatalf("result = %#v", result)
	}
	if result.Named[0]["a"] != "1" || result.Named[0]["b"] != "2" {
		t.Fatalf("row 0 = %#v", result.Named[0])
	}
}

func TestParsePositionalNoHeader(t *testing.T) {
	result, _, err := Parse(context.Background(), "1,2\n3,4\n", Config{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
}

func TestParseChunkCallbackSuppressesAccumulation(t *testing.T) {
	var chunks int
	result, _, err := Parse(context.Background(), "a,b\n1,2\n", Config{
		Header:    true,
		ChunkSize: 4,
		Callbacks: Callbacks{Chunk: func(r ParseResult, h *Handle) { chunks++ }},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if chunks == 0 {
		t.Fatalf("expected at least one Chunk callback")
	}
	if result != nil {
		t.Fatalf("expected nil accumulated result when Chunk is set, got %#v", result)
	}
}

func TestParseFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "dsv-*.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("a,b\n1,2\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	opened, err := os.Open(filepath.Clean(f.Name()))
	if err != nil {
		t.Fatal(err)
	}
	defer opened.Close()

	result, _, err := Parse(context.Background(), opened, Config{Header: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Named) != 1 {
		t.Fatalf("rows = %d", len(result.Named))
	}
}

func TestParseDuplexReturnsGateway(t *testing.T) {
	_, handle, err := Parse(context.Background(), Duplex, Config{Header: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if handle.DuplexGW == nil {
		t.Fatalf("expected a duplex gateway")
	}

	go func() {
		handle.DuplexGW.Write([]byte("a,b\n1,2\n"))
		handle.DuplexGW.CloseWrite()
	}()

	var rows int
	go func() {
		handle.DuplexGW.Stream(context.Background())
	}()
	for range handle.DuplexGW.Named {
		rows++
	}
	if rows != 1 {
		t.Fatalf("rows = %d, want 1", rows)
	}
}

func TestRunWorkerDeliversFinalResult(t *testing.T) {
	ch := RunWorker(context.Background(), 7, "a,b\n1,2\n", Config{Header: true})
	var final *WorkerMessage
	for msg := range ch {
		m := msg
		if m.Finished {
			final = &m
		}
	}
	if final == nil || final.Err != nil {
		t.Fatalf("final = %#v", final)
	}
	if final.WorkerID != 7 {
		t.Fatalf("workerID = %d, want 7", final.WorkerID)
	}
	if final.Results == nil || len(final.Results.Named) != 1 {
		t.Fatalf("results = %#v", final.Results)
	}
}

func TestParseViaWorkerConfig(t *testing.T) {
	result, _, err := Parse(context.Background(), "a,b\n1,2\n", Config{Header: true, Worker: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result == nil || len(result.Named) != 1 {
		t.Fatalf("result = %#v", result)
	}
}
