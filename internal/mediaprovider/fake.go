// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package mediaprovider

import (
	"context"

	"github.com/vpoeng/vpo/internal/inspect"
)

// FakeProvider is a Provider test double keyed by path, for exercising
// planner/evaluate/worker code without shelling out to ffprobe.
type FakeProvider struct {
	ByPath map[string]inspect.Inspection
	Err    map[string]error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{ByPath: make(map[string]inspect.Inspection), Err: make(map[string]error)}
}

func (f *FakeProvider) Inspect(ctx context.Context, path string) (inspect.Inspection, error) {
	if err, ok := f.Err[path]; ok {
		return inspect.Inspection{}, &InspectionError{Path: path, Cause: err}
	}
	insp, ok := f.ByPath[path]
	if !ok {
		return inspect.Inspection{}, &InspectionError{Path: path, Cause: errNotRegistered}
	}
	return insp, nil
}

var errNotRegistered = fakeErr("mediaprovider: no fake inspection registered for path")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
