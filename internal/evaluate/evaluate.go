// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package evaluate provides a concurrency helper over
// internal/phase.Execute: §5 explicitly allows independent
// (inspection, policy) evaluations to run in parallel, since each is a
// pure function with no shared mutable state.
package evaluate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/phase"
	"github.com/vpoeng/vpo/internal/planner"
	"github.com/vpoeng/vpo/internal/policy"
)

// Request is one (inspection, policy) pair to plan.
type Request struct {
	Inspection inspect.Inspection
	Policy     *policy.Policy
	Context    planner.Context
}

// Result is one Request's outcome, kept alongside its index so callers can
// correlate results back to the Requests slice they submitted even though
// evaluations complete out of order.
type Result struct {
	Index    int
	Plan     action.Plan
	Outcomes []phase.PhaseOutcome
	Err      error
}

// Many runs every Request's phase.Execute concurrently and returns one
// Result per Request, in the same order as reqs. concurrency bounds how
// many evaluations run at once; concurrency <= 0 means unbounded.
//
// A per-request error is captured on that Result rather than aborting the
// whole batch — each evaluation is independent, so one malformed policy or
// internal_consistency failure must not prevent its siblings from
// completing (§8 #1 determinism holds per-request regardless of what else
// is running concurrently).
func Many(ctx context.Context, reqs []Request, concurrency int) []Result {
	results := make([]Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Index: i, Err: err}
				return nil
			}
			plan, outcomes, err := phase.Execute(req.Policy, req.Inspection, req.Context)
			results[i] = Result{Index: i, Plan: plan, Outcomes: outcomes, Err: err}
			return nil
		})
	}

	// Every Go func above always returns nil: a Request's own failure is
	// captured on its Result, not propagated as the group's error, so Wait
	// can never actually fail here — but its ctx-cancellation wiring (via
	// gctx) is still what lets later requests bail out early once the
	// caller's ctx is done.
	_ = g.Wait()

	return results
}
