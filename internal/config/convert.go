package config

import (
	"github.com/alexander-akhmetov/wbstrack/internal/engine"
	"github.com/alexander-akhmetov/wbstrack/internal/workflow"
)

// ToRules converts the config to the workflow rule set.
func (c *Config) ToRules() workflow.Rules {
	return workflow.Rules{
		Points: workflow.Points{
			TaskCompletion: c.Points.TaskCompletion,
			TaskReview:     c.Points.TaskReview,
		},
		Cascade: engine.Cascade{
			AllowEmptyLevels: c.Cascade.AllowEmptyLevels,
			Points: engine.Points{
				SubPackage: c.Points.SubPackage,
				Package:    c.Points.Package,
				Project:    c.Points.Project,
			},
		},
		AllowResubmitApproved: c.Workflow.AllowResubmitApproved,
	}
}

// ServiceOptions returns the workflow options the config implies.
func (c *Config) ServiceOptions() []workflow.Option {
	return []workflow.Option{
		workflow.WithRules(c.ToRules()),
		workflow.WithRetry(c.Retry.MaxAttempts, c.Retry.Delay),
		workflow.WithMaxConflicts(c.MaxConflicts),
	}
}
