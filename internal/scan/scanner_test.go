package scan

import (
	"os"
	"path/filepath"
	"testing"

	"apitrace/internal/config"
	"apitrace/internal/contract"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("// placeholder\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanClassifiesCorpora(t *testing.T) {
	root := t.TempDir()
	front := writeFile(t, root, "web/src/lib/api/client.ts")
	route := writeFile(t, root, "infra/routes.tf")
	handler := writeFile(t, root, "backend/handlers/kb.py")
	writeFile(t, root, "web/src/components/Button.tsx") // no corpus fragment
	writeFile(t, root, "README.md")

	cls, err := NewScanner(config.Default()).Scan(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(cls.Frontend) != 1 || cls.Frontend[0] != front {
		t.Errorf("Frontend = %v, want [%s]", cls.Frontend, front)
	}
	if len(cls.Routes) != 1 || cls.Routes[0] != route {
		t.Errorf("Routes = %v, want [%s]", cls.Routes, route)
	}
	if len(cls.Handlers) != 1 || cls.Handlers[0] != handler {
		t.Errorf("Handlers = %v, want [%s]", cls.Handlers, handler)
	}
	if len(cls.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", cls.Diagnostics)
	}
	if cls.TotalFiles() != 3 {
		t.Errorf("TotalFiles() = %d, want 3", cls.TotalFiles())
	}
}

func TestScanAmbiguousClaim(t *testing.T) {
	root := t.TempDir()
	// Matches both the routes corpus (.tf + "route") and a frontend rule
	// widened to also claim .tf files.
	writeFile(t, root, "infra/route_table.tf")

	cfg := config.Default()
	cfg.Frontend.Suffixes = append(cfg.Frontend.Suffixes, ".tf")
	cfg.Frontend.Contains = nil

	cls, err := NewScanner(cfg).Scan(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if cls.TotalFiles() != 0 {
		t.Errorf("ambiguous file should be excluded from all corpora, got %d files", cls.TotalFiles())
	}
	if len(cls.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want one", cls.Diagnostics)
	}
	d := cls.Diagnostics[0]
	if d.Code != contract.CodeAmbiguousFileClassification {
		t.Errorf("code = %s, want AmbiguousFileClassification", d.Code)
	}
	if d.Severity != contract.SeverityError {
		t.Errorf("severity = %s, want error", d.Severity)
	}
}

func TestScanUnreadableRootIsFatal(t *testing.T) {
	_, err := NewScanner(config.Default()).Scan(filepath.Join(t.TempDir(), "missing"), "")
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestScanPermissionDeniedRootIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not bind for root")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, locked, "backend/lambda_function.py")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	// The directory exists and stats fine but cannot be read; that is the
	// one fatal condition, never an empty success.
	if _, err := NewScanner(config.Default()).Scan(locked, ""); err == nil {
		t.Fatal("expected error for permission-denied root")
	}
	if _, err := NewScanner(config.Default()).Scan(root, "locked"); err == nil {
		t.Fatal("expected error for permission-denied sub-path root")
	}
}

func TestScanSubPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "web/src/lib/api/client.ts")
	route := writeFile(t, root, "infra/routes.tf")

	cls, err := NewScanner(config.Default()).Scan(root, "infra")
	if err != nil {
		t.Fatal(err)
	}
	if len(cls.Frontend) != 0 {
		t.Errorf("Frontend = %v, want none outside sub-path", cls.Frontend)
	}
	if len(cls.Routes) != 1 || cls.Routes[0] != route {
		t.Errorf("Routes = %v, want [%s]", cls.Routes, route)
	}
}

func TestScanSkipsDependencyDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/pkg/lib/api/client.ts")
	writeFile(t, root, ".git/hooks/sample.py")
	writeFile(t, root, "backend/__pycache__/lambda_function.py")
	keep := writeFile(t, root, "backend/lambda_function.py")

	cls, err := NewScanner(config.Default()).Scan(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if cls.TotalFiles() != 1 || len(cls.Handlers) != 1 || cls.Handlers[0] != keep {
		t.Errorf("scan should only keep %s, got %+v", keep, cls)
	}
}

func TestScanOutputSorted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b/lambda_function.py")
	writeFile(t, root, "a/lambda_function.py")
	writeFile(t, root, "c/lambda_function.py")

	cls, err := NewScanner(config.Default()).Scan(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(cls.Handlers) != 3 {
		t.Fatalf("Handlers = %v, want 3 entries", cls.Handlers)
	}
	for i := 1; i < len(cls.Handlers); i++ {
		if cls.Handlers[i-1] > cls.Handlers[i] {
			t.Errorf("handlers not sorted: %v", cls.Handlers)
		}
	}
}
