package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.csv"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file inside", filepath.Join(dir, "data.csv"), false},
		{"new file inside", filepath.Join(dir, "new", "results.csv"), false},
		{"dot dot escape", filepath.Join(dir, "..", "escape.csv"), true},
		{"absolute outside", "/etc/passwd", true},
		{"the directory itself", dir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, dir)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %s", tt.path)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %s: %v", tt.path, err)
			}
		})
	}
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	inside := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(inside, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	// The path looks like it is under inside, but the symlink resolves it
	// into outside.
	err := ValidatePathWithinDirectory(filepath.Join(link, "file.csv"), inside)
	if err == nil {
		t.Error("expected symlinked escape to be rejected")
	}

	// A direct check against the real target still passes.
	if err := ValidatePathWithinDirectory(filepath.Join(link, "file.csv"), outside); err != nil {
		t.Errorf("expected resolved path to validate against its real directory: %v", err)
	}
}

func TestValidateExportPath(t *testing.T) {
	if err := ValidateExportPath(filepath.Join(t.TempDir(), "out.csv")); err != nil {
		t.Errorf("temp dir export rejected: %v", err)
	}
	if err := ValidateExportPath("runs/output.csv"); err != nil {
		t.Errorf("working dir export rejected: %v", err)
	}
	if err := ValidateExportPath("/etc/cron.d/evil"); err == nil {
		t.Error("expected export outside cwd and temp to be rejected")
	}
}
