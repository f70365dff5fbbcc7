// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package mediaprovider implements the Media Inspection Provider interface
// (spec §6.3): inspect(path) -> Inspection | InspectionError.
package mediaprovider

import (
	"context"
	"fmt"

	"github.com/vpoeng/vpo/internal/infra/ffmpeg"
	"github.com/vpoeng/vpo/internal/inspect"
)

// InspectionError wraps a failure to produce an Inspection for path. It is
// distinct from a Go error interface value only in carrying the source path
// alongside the cause, per §6.3's named error channel.
type InspectionError struct {
	Path  string
	Cause error
}

func (e *InspectionError) Error() string {
	return fmt.Sprintf("mediaprovider: inspecting %q: %v", e.Path, e.Cause)
}

func (e *InspectionError) Unwrap() error { return e.Cause }

// Provider produces an Inspection for a source file. Implementations must be
// pure with respect to the target file: no writes, no renames, no deletes.
type Provider interface {
	Inspect(ctx context.Context, path string) (inspect.Inspection, error)
}

// FFprobeProvider is the production Provider, backed by ffprobe.
type FFprobeProvider struct {
	prober *ffmpeg.Prober
}

// NewFFprobeProvider builds a Provider that shells out to binaryPath (or
// "ffprobe" on PATH if empty).
func NewFFprobeProvider(binaryPath string) *FFprobeProvider {
	return &FFprobeProvider{prober: ffmpeg.NewProber(binaryPath)}
}

func (p *FFprobeProvider) Inspect(ctx context.Context, path string) (inspect.Inspection, error) {
	insp, err := p.prober.Probe(ctx, path)
	if err != nil {
		return inspect.Inspection{}, &InspectionError{Path: path, Cause: err}
	}
	if err := insp.Validate(); err != nil {
		return inspect.Inspection{}, &InspectionError{Path: path, Cause: err}
	}
	return insp, nil
}
