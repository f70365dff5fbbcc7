// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package planner

import (
	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/condition"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
)

// planConditional implements §4.4.4: iterate rules in declared order,
// firing `then` on a true condition and `else` on false. match=first stops
// after the first rule whose `when` was evaluated at all — taking either
// branch counts as "matched" (spec.md's resolved Open Question: "any rule
// whose when is evaluated and taking either branch counts", not only a
// true `when`) — so it always processes exactly one rule. match=all
// processes every rule. A `Fail` action anywhere in a fired branch stops
// plan assembly and propagates as a PlanFailure carrying the rendered
// message.
func planConditional(rs policy.RuleSet, insp inspect.Inspection, ctx Context) (action.Plan, error) {
	var plan action.Plan

	for _, rule := range rs.Items {
		matched, err := condition.Evaluate(rule.When, insp, ctx.ConditionContext)
		if err != nil {
			return plan, err
		}

		branch := rule.Else
		if matched {
			branch = rule.Then
		}

		for _, a := range branch {
			switch v := a.(type) {
			case action.Fail:
				return plan, errFail(action.ExpandTemplate(v.MessageTemplate, ctx.FileName, ctx.FilePath, rule.Name), rule.Name)
			case action.Warn:
				plan = append(plan, action.Warn{MessageTemplate: action.ExpandTemplate(v.MessageTemplate, ctx.FileName, ctx.FilePath, rule.Name)})
			default:
				plan = append(plan, a)
			}
		}

		if rs.Match == policy.MatchFirst {
			break
		}
	}

	return plan, nil
}
