package juju

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"

	"github.com/canonical/ceph-bench/internal/execution"
)

// actionSpec mirrors one entry of `juju actions --schema --format yaml`.
type actionSpec struct {
	Description string               `yaml:"description"`
	Properties  map[string]paramSpec `yaml:"properties"`
}

type paramSpec struct {
	Type string `yaml:"type"`
}

// ActionSchema fetches the declared parameter types for one action of an
// application: parameter name to type name ("integer", "number", ...).
func (c *Client) ActionSchema(ctx context.Context, application, action string) (map[string]string, error) {
	cmd := fmt.Sprintf("%s actions %s%s --schema --format yaml", c.bin, c.modelFlag(), shellQuote(application))
	res, err := c.runner.Run(ctx, execution.Request{Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("fetching action schema for %s: %w", application, err)
	}

	var actions map[string]actionSpec
	if err := yaml.Unmarshal([]byte(res.Output), &actions); err != nil {
		return nil, fmt.Errorf("parsing action schema: %w", err)
	}
	spec, ok := actions[action]
	if !ok {
		return nil, fmt.Errorf("action %s has no schema entry", action)
	}

	types := make(map[string]string, len(spec.Properties))
	for name, prop := range spec.Properties {
		types[name] = prop.Type
	}
	return types, nil
}

// CoerceParams converts user-supplied string parameters to the types the
// action schema declares. Unknown parameters and values that do not parse
// are passed through as strings with a warning; a benchmark run never fails
// over parameter typing.
func (c *Client) CoerceParams(ctx context.Context, application, action string, params map[string]string) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	types, err := c.ActionSchema(ctx, application, action)
	if err != nil {
		c.logger.Printf("failed to update action parameters: %v", err)
		return out
	}

	for key, val := range params {
		switch types[key] {
		case "integer":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				c.logger.Printf("parameter %s: %q is not an integer, passing through as string", key, val)
				continue
			}
			out[key] = n
		case "number":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				c.logger.Printf("parameter %s: %q is not a number, passing through as string", key, val)
				continue
			}
			out[key] = f
		}
	}
	return out
}
