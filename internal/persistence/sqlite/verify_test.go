// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package sqlite

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

// TestVerifyIntegrityDetectsPageCorruption exercises the out-of-band check
// a job store cleanup sweep would run: a healthy database passes "quick"
// mode, and corrupting a page on disk is caught by "full" mode.
func TestVerifyIntegrityDetectsPageCorruption(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "jobs.sqlite")

	cfg := DefaultConfig()
	db, err := Open(dbPath, cfg)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	// Give the file enough pages to corrupt a non-header one.
	if _, err := db.Exec("CREATE TABLE jobs (id INTEGER PRIMARY KEY, payload TEXT);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 0; i < 100; i++ {
		if _, err := db.Exec("INSERT INTO jobs (payload) VALUES (?);", strRepeat("A", 100)); err != nil {
			t.Fatalf("seed row %d: %v", i, err)
		}
	}
	db.Close()

	issues, err := VerifyIntegrity(dbPath, "quick")
	if err != nil {
		t.Fatalf("initial verification: system error: %v", err)
	}
	if issues != nil {
		t.Fatalf("initial verification: expected clean database, got %v", issues)
	}

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	corruptData := make([]byte, 100)
	if _, err := rand.Read(corruptData); err != nil {
		t.Fatalf("generate corrupt bytes: %v", err)
	}
	// Offset 4096 lands on the second page for SQLite's default page size,
	// past the header page "quick" mode alone wouldn't necessarily scan.
	_, writeErr := f.WriteAt(corruptData, 4096)
	f.Close()
	if writeErr != nil {
		t.Fatalf("write corrupt bytes: %v", writeErr)
	}

	issues, err = VerifyIntegrity(dbPath, "full")
	if err != nil {
		t.Fatalf("post-corruption verification: system error: %v", err)
	}
	if issues == nil {
		t.Error("expected full-mode verification to detect the corrupted page")
	} else {
		t.Logf("detected expected corruption: %v", issues)
	}
}

func strRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
