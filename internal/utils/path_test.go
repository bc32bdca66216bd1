package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "empty path",
			input:     "",
			wantError: true,
		},
		{
			name:      "relative path",
			input:     "./test",
			wantError: false,
		},
		{
			name:      "absolute path",
			input:     "/tmp/test",
			wantError: false,
		},
		{
			name:      "home path",
			input:     "~/test",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ResolvePath(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if !tt.wantError && !filepath.IsAbs(result) {
				t.Errorf("ResolvePath(%q) = %q, want absolute path", tt.input, result)
			}
			if !tt.wantError && strings.HasPrefix(result, "~") {
				t.Errorf("ResolvePath(%q) = %q, tilde not expanded", tt.input, result)
			}
		})
	}
}

func TestEnsureDirAndExists(t *testing.T) {
	tmp := t.TempDir()
	nested := filepath.Join(tmp, "a", "b", "c")

	if err := EnsureDir(nested); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if !DirExists(nested) {
		t.Fatalf("DirExists(%q) = false, want true", nested)
	}

	// second call is a no-op
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("EnsureDir (existing): %v", err)
	}

	file := filepath.Join(nested, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(file) {
		t.Fatalf("FileExists(%q) = false, want true", file)
	}
	if DirExists(file) {
		t.Fatalf("DirExists(%q) = true for a file", file)
	}
	if FileExists(nested) {
		t.Fatalf("FileExists(%q) = true for a dir", nested)
	}
}

func TestEnsureParent(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "x", "y", "file.json")

	if err := EnsureParent(target); err != nil {
		t.Fatalf("EnsureParent: %v", err)
	}
	if !DirExists(filepath.Dir(target)) {
		t.Fatalf("parent dir not created")
	}
}
