// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfineRelPath(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.Mkdir(subDir, 0o750); err != nil {
		t.Fatal(err)
	}
	safeFile := filepath.Join(tmpDir, "safe.txt")
	if err := os.WriteFile(safeFile, []byte("safe"), 0o600); err != nil {
		t.Fatal(err)
	}
	linkOutside := filepath.Join(tmpDir, "link_outside")
	if err := os.Symlink("..", linkOutside); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		target   string
		wantErr  bool
		wantPath string
	}{
		{name: "valid simple file", target: "safe.txt", wantPath: "safe.txt"},
		{name: "valid subdir file", target: "subdir/foo.txt", wantPath: "subdir/foo.txt"},
		{name: "traversal attempt ..", target: "../outside.txt", wantErr: true},
		{name: "traversal attempt /", target: "/etc/passwd", wantErr: true},
		{name: "symlink escape", target: "link_outside/foo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfineRelPath(tmpDir, tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConfineRelPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !strings.HasSuffix(got, tt.wantPath) {
				t.Fatalf("ConfineRelPath() got = %v, want suffix %v", got, tt.wantPath)
			}
		})
	}
}

func TestConfineAbsPath(t *testing.T) {
	tmpDir := t.TempDir()
	safePath := filepath.Join(tmpDir, "safe.txt")
	if err := os.WriteFile(safePath, []byte("ok"), 0o600); err != nil {
		t.Fatal(err)
	}
	outsideDir := t.TempDir()
	outsidePath := filepath.Join(outsideDir, "secret.txt")

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{name: "valid absolute path", target: safePath, wantErr: false},
		{name: "outside absolute path", target: outsidePath, wantErr: true},
		{name: "relative path input", target: "safe.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfineAbsPath(tmpDir, tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConfineAbsPath() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsRegularFile(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "f.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := IsRegularFile(filePath); err != nil {
		t.Fatalf("expected regular file to pass, got %v", err)
	}
	if err := IsRegularFile(tmpDir); err == nil {
		t.Fatal("expected directory to fail IsRegularFile")
	}
}
