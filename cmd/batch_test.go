package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/doc-history/internal"
	"github.com/iksnae/doc-history/testutil"
)

func TestBatchCommand(t *testing.T) {
	env := newTestEnv(t)
	store := env.fixtureStore(t)
	outDir := filepath.Join(env.dir, "batches")

	output, err := executeCommand(t, "batch", testutil.FixtureDocumentID, "--store", store, "--out", outDir)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if !strings.Contains(output, "Wrote 2 batch(es) from 3 update(s)") {
		t.Errorf("Unexpected output:\n%s", output)
	}

	bundle, err := os.ReadFile(filepath.Join(outDir, "batch_0000.ybundle"))
	if err != nil {
		t.Fatalf("Expected first bundle: %v", err)
	}
	updates, err := internal.SplitBundle(bundle)
	if err != nil {
		t.Fatalf("SplitBundle failed: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("Expected alice's 2 updates in the first bundle, got %d", len(updates))
	}
	if !bytes.Equal(updates[0], testutil.UpdateInsertA) || !bytes.Equal(updates[1], testutil.UpdateAppendB) {
		t.Errorf("Bundle updates do not match the stored updates")
	}

	bundle, err = os.ReadFile(filepath.Join(outDir, "batch_0001.ybundle"))
	if err != nil {
		t.Fatalf("Expected second bundle: %v", err)
	}
	updates, err = internal.SplitBundle(bundle)
	if err != nil {
		t.Fatalf("SplitBundle failed: %v", err)
	}
	if len(updates) != 1 || !bytes.Equal(updates[0], testutil.UpdateDeleteA) {
		t.Errorf("Expected bob's delete in the second bundle, got %v", updates)
	}
}

func TestBatchCommand_Window(t *testing.T) {
	env := newTestEnv(t)
	store := env.fixtureStore(t)
	outDir := filepath.Join(env.dir, "batches")

	// alice's updates are 100ms apart
	output, err := executeCommand(t, "batch", testutil.FixtureDocumentID, "--store", store, "--out", outDir, "--window", "50ms")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if !strings.Contains(output, "Wrote 3 batch(es)") {
		t.Errorf("Expected a narrow window to split alice's updates, got:\n%s", output)
	}
}
