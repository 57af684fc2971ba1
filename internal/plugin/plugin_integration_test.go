package plugin

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// buildPlugin compiles plugins/<name> into a fresh plugin directory with
// its manifest and returns that directory's parent.
func buildPlugin(t *testing.T, name string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	src := filepath.Join("..", "..", "plugins", name)
	root := t.TempDir()
	dir := filepath.Join(root, name)

	cmd := exec.Command(goBin, "build", "-o", filepath.Join(dir, name), ".")
	cmd.Dir = src
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build %s: %v\n%s", name, err, out)
	}
	cp := exec.Command("cp", filepath.Join(src, "plugin.json"), dir)
	if out, err := cp.CombinedOutput(); err != nil {
		t.Fatalf("copy manifest: %v\n%s", err, out)
	}
	return root
}

func TestPlugin_CSVExport_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	mgr := NewManager(buildPlugin(t, "csv-export"))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.ForFormat("csv")
	if err != nil {
		t.Fatalf("ForFormat() error = %v", err)
	}

	req := &Request{
		Format:    "csv",
		Take:      TakeInfo{ID: "t1", Name: "wave", FrameCount: 1},
		Hierarchy: json.RawMessage(`{"name":"hips","children":[{"name":"spine"}]}`),
		Frames: []json.RawMessage{
			json.RawMessage(`{"seq":7,"rotations":{"hips":{"x":0,"y":0,"z":0,"w":1}}}`),
		},
	}

	resp, err := NewExecutor(10*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("export failed: %s", resp.Error)
	}
	if resp.ContentType != "text/csv" {
		t.Errorf("ContentType = %q", resp.ContentType)
	}
	if !strings.HasPrefix(resp.Data, "seq,hips.x") || !strings.Contains(resp.Data, "\n7,") {
		t.Errorf("Data = %q", resp.Data)
	}

	req.Format = "bvh"
	resp, err = NewExecutor(10*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for unsupported format")
	}
}
