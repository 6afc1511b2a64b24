package config

import "github.com/rs/zerolog"

type Config struct {
	Jobs []Job `json:"jobs,omitempty"`
}

// Job is one scheduled duplicate scan.
type Job struct {
	Roots    []string     `json:"roots"`
	Check    string       `json:"check,omitempty"`
	Ignore   string       `json:"ignore,omitempty"`
	Exclude  []string     `json:"exclude,omitempty"`
	MinSize  SizeArgument `json:"min_size,omitempty"`
	Action   string       `json:"action,omitempty"`
	DryRun   bool         `json:"dry_run,omitempty"`
	Enable   bool         `json:"enable"`
	Schedule string       `json:"cron"`
}

func (j Job) MarshalZerologObject(e *zerolog.Event) {
	e.Strs("roots", j.Roots)
	e.Bool("enable", j.Enable)
	e.Str("schedule", j.Schedule)

	if j.Check != "" {
		e.Str("check", j.Check)
	}
	if j.Ignore != "" {
		e.Str("ignore", j.Ignore)
	}
	if len(j.Exclude) > 0 {
		e.Strs("exclude", j.Exclude)
	}
	if j.MinSize.Size > 0 {
		e.Int64("min_size", j.MinSize.Size)
	}
	if j.Action != "" {
		e.Str("action", j.Action)
		e.Bool("dry_run", j.DryRun)
	}
}
