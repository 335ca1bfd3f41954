// Package logg holds the zap field keys shared across layers.
package logg

const (
	Layer     = "layer"
	Operation = "op"
	RunID     = "run_id"
	Selector  = "selector"
	URL       = "url"
	Strategy  = "strategy"
	State     = "state"
	Tag       = "tag"
	Location  = "location"
	Outcome   = "outcome"
)
