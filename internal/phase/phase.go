// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package phase

import (
	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/planner"
	"github.com/vpoeng/vpo/internal/policy"
)

// PhaseOutcome records what happened to one phase's contribution, for
// callers that want to surface per-phase diagnostics (e.g. audit logging)
// without re-deriving it from the returned Plan.
type PhaseOutcome struct {
	Name    string
	Actions int
	Skipped bool
	Error   error
}

// Execute drives every phase of pol in order (§4.5): for each phase it
// rebuilds the virtual view from the net effect of all prior phases' plan
// segments, runs the Action Planner against that view with the phase's
// enabled operations, and folds the result into one flat ordered plan.
// Execute itself performs no I/O; it is pure over (policy, inspection, ctx).
func Execute(pol *policy.Policy, insp inspect.Inspection, ctx planner.Context) (action.Plan, []PhaseOutcome, error) {
	view := NewView(insp)
	var plan action.Plan
	outcomes := make([]PhaseOutcome, 0, len(pol.Phases))

	for _, p := range pol.Phases {
		segment, err := planner.Plan(view.Materialize(), p.Ops, ctx)

		if err != nil {
			switch onErrorOrDefault(pol.Config.OnError) {
			case policy.OnErrorStop:
				outcomes = append(outcomes, PhaseOutcome{Name: p.Name, Error: err})
				return plan, outcomes, err

			case policy.OnErrorContinue:
				plan = append(plan, segment...)
				view.Apply(segment)
				outcomes = append(outcomes, PhaseOutcome{Name: p.Name, Actions: len(segment), Error: err})
				continue

			default: // OnErrorSkip
				outcomes = append(outcomes, PhaseOutcome{Name: p.Name, Skipped: true, Error: err})
				continue
			}
		}

		plan = append(plan, segment...)
		view.Apply(segment)
		outcomes = append(outcomes, PhaseOutcome{Name: p.Name, Actions: len(segment)})
	}

	return plan, outcomes, nil
}

// onErrorOrDefault resolves the spec's documented default: an empty/unset
// on_error behaves as "skip" (§4.5: "stop (default skip)").
func onErrorOrDefault(mode policy.OnErrorMode) policy.OnErrorMode {
	if mode == "" {
		return policy.OnErrorSkip
	}
	return mode
}
