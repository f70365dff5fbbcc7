// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package scratch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteAndReadManifestRoundTrip(t *testing.T) {
	root := t.TempDir()
	d := New(root, "job-1")

	artifact := d.Path("pass1.mkv")
	if err := os.WriteFile(artifact, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := d.WriteManifest([]string{artifact}); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := d.ReadManifest()
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if m == nil || m.JobID != "job-1" || len(m.Files) != 1 || m.Files[0] != artifact {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestReadManifestMissingReturnsNilNoError(t *testing.T) {
	d := New(t.TempDir(), "job-none")
	m, err := d.ReadManifest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil manifest, got %+v", m)
	}
}

func TestRemoveAllDeletesArtifactsAndManifest(t *testing.T) {
	root := t.TempDir()
	d := New(root, "job-2")

	artifact := d.Path("scratch.wav")
	if err := os.WriteFile(artifact, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteManifest([]string{artifact}); err != nil {
		t.Fatal(err)
	}

	if err := d.RemoveAll(); err != nil {
		t.Fatalf("remove all: %v", err)
	}

	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Fatalf("expected artifact to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(d.manifestPath()); !os.IsNotExist(err) {
		t.Fatalf("expected manifest to be removed, stat err = %v", err)
	}
}

func TestSweepRemovesOldOrphansOnly(t *testing.T) {
	root := t.TempDir()

	orphanOld := filepath.Join(root, "dead-job-1-chunk.ts")
	orphanNew := filepath.Join(root, "dead-job-2-chunk.ts")
	liveFile := filepath.Join(root, "live-job-1-chunk.ts")
	for _, p := range []string{orphanOld, orphanNew, liveFile} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	oldTime := time.Now().Add(-time.Hour)
	if err := os.Chtimes(orphanOld, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	removed, err := Sweep(root, 10*time.Minute, []string{"live-job-1"}, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(removed) != 1 || removed[0] != orphanOld {
		t.Fatalf("expected only the old orphan removed, got %v", removed)
	}

	for _, p := range []string{orphanNew, liveFile} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %q to survive the sweep: %v", p, err)
		}
	}
	if _, err := os.Stat(orphanOld); !os.IsNotExist(err) {
		t.Fatalf("expected old orphan to be removed, stat err = %v", err)
	}
}

func TestSweepDryRunReportsWithoutDeleting(t *testing.T) {
	root := t.TempDir()
	orphan := filepath.Join(root, "dead-job-1-chunk.ts")
	if err := os.WriteFile(orphan, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(orphan, old, old); err != nil {
		t.Fatal(err)
	}

	removed, err := Sweep(root, 10*time.Minute, nil, true)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(removed) != 1 {
		t.Fatalf("expected dry-run to report the orphan, got %v", removed)
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("expected dry-run to leave the file in place: %v", err)
	}
}
