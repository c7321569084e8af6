package logger

import "context"

type contextKey string

const fieldsKey contextKey = "log_fields"

// Fields are added to every record logged with a context carrying them.
type Fields struct {
	RunID string
	Owner string
	Repo  string

	// Page is the 1-based page being processed, 0 when none.
	Page int

	// Component names the emitting part, e.g. "issuesync.reconciler".
	Component string
}

// WithFields enriches ctx with fields. Non-empty values of fields replace
// those already present.
func WithFields(ctx context.Context, fields Fields) context.Context {
	merged := GetFields(ctx)
	if fields.RunID != "" {
		merged.RunID = fields.RunID
	}
	if fields.Owner != "" {
		merged.Owner = fields.Owner
		merged.Repo = fields.Repo
	}
	if fields.Page != 0 {
		merged.Page = fields.Page
	}
	if fields.Component != "" {
		merged.Component = fields.Component
	}
	return context.WithValue(ctx, fieldsKey, merged)
}

// GetFields returns the fields carried by ctx.
func GetFields(ctx context.Context) Fields {
	if fields, ok := ctx.Value(fieldsKey).(Fields); ok {
		return fields
	}
	return Fields{}
}
