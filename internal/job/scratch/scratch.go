// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package scratch manages the plan-execution scratch directory a running
// job owns exclusively (spec: "the worker owns a scratch directory
// exclusively while a job is running"): per-job temp artifacts, a durable
// manifest listing them, and the cleanup sweep that removes orphans.
package scratch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// Manifest is the JSON sidecar listing one job's scratch artifacts, so a
// crash-recovered cleanup sweep knows what it may safely delete without
// guessing from filenames alone.
type Manifest struct {
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
	Files     []string  `json:"files"`
}

// Dir manages one job's scratch artifacts under a shared root directory.
// Every artifact name the worker creates is prefixed with the job id
// (spec: "temp files in the plan-execution scratch directory whose names
// carry a job-id prefix"), which is what lets the cleanup sweep attribute
// an orphan file to a job without reading every manifest first.
type Dir struct {
	root  string
	jobID string
}

// New returns a Dir rooted at root for jobID. The scratch root itself is
// not created until the first artifact is registered.
func New(root, jobID string) *Dir {
	return &Dir{root: root, jobID: jobID}
}

func (d *Dir) prefix() string {
	return d.jobID + "-"
}

// Path returns the scratch path for a job-owned artifact named name,
// without creating or registering it.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, d.prefix()+name)
}

// WriteManifest atomically (crash-safe) writes the manifest listing every
// artifact path this job has created so far, via renameio's fsync+rename
// (the same durability shape the teacher's internal/jobs/write_unix.go uses
// for its own sidecar writes): a crash mid-write must never leave a
// half-written manifest that a subsequent cleanup sweep could
// misinterpret.
func (d *Dir) WriteManifest(files []string) error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("scratch: create root %q: %w", d.root, err)
	}

	data, err := json.Marshal(Manifest{JobID: d.jobID, CreatedAt: time.Now().UTC(), Files: files})
	if err != nil {
		return fmt.Errorf("scratch: marshal manifest: %w", err)
	}

	pending, err := renameio.NewPendingFile(d.manifestPath())
	if err != nil {
		return fmt.Errorf("scratch: create pending manifest: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("scratch: write manifest: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("scratch: replace manifest: %w", err)
	}
	return nil
}

func (d *Dir) manifestPath() string {
	return filepath.Join(d.root, d.prefix()+"manifest.json")
}

// ReadManifest loads a job's manifest, returning (nil, nil) if it does not
// exist (a job that never wrote scratch artifacts has no manifest).
func (d *Dir) ReadManifest() (*Manifest, error) {
	data, err := os.ReadFile(d.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scratch: read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("scratch: parse manifest %q: %w", d.manifestPath(), err)
	}
	return &m, nil
}

// RemoveAll deletes every artifact listed in the job's manifest plus the
// manifest itself, used both by normal completion cleanup and by a
// cancelled job's partial-output cleanup (spec: "a cancelled job leaves
// its partial outputs in a scratch location; cleanup removes them").
func (d *Dir) RemoveAll() error {
	m, err := d.ReadManifest()
	if err != nil {
		return err
	}
	if m != nil {
		for _, f := range m.Files {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("scratch: remove %q: %w", f, err)
			}
		}
	}
	if err := os.Remove(d.manifestPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scratch: remove manifest: %w", err)
	}
	return nil
}

// Sweep removes files under root whose job-id prefix does not belong to
// any of liveJobIDs, and that are older than minAge (a young file might
// belong to a job that is about to register it, so Sweep never touches
// anything newer than minAge). It implements the "cleanup removes …
// associated orphan temp files" half of the spec's periodic cleanup task;
// terminal-record retention pruning is a separate concern owned by
// internal/job/store.Store.PurgeOlderThan.
//
// Matching is by prefix rather than by parsing a delimiter out of the
// filename, because job ids are UUIDv4 and themselves contain hyphens —
// splitting on the first "-" would truncate one.
func Sweep(root string, minAge time.Duration, liveJobIDs []string, dryRun bool) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scratch: read root %q: %w", root, err)
	}

	cutoff := time.Now().Add(-minAge)
	var removed []string
	for _, e := range entries {
		if e.IsDir() || belongsToLiveJob(e.Name(), liveJobIDs) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if !dryRun {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("scratch: remove orphan %q: %w", path, err)
			}
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func belongsToLiveJob(name string, liveJobIDs []string) bool {
	for _, id := range liveJobIDs {
		if strings.HasPrefix(name, id+"-") {
			return true
		}
	}
	return false
}
