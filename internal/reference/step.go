package reference

import (
	"log/slog"
	"sort"

	"github.com/goccy/go-json"

	"github.com/stevedore-dev/stevedore/internal/lru"
	"github.com/stevedore-dev/stevedore/internal/schema"
)

type stepKey struct {
	workflow *schema.Workflow
	template *schema.Template
	node     any
}

var stepCache = lru.New[stepKey, *Context](32)

// StepContext returns the references available inside one step of a
// steps-shaped template: the template context plus loop-item references.
func StepContext(workflow *schema.Workflow, template *schema.Template, step *schema.Step) *Context {
	return nodeContext(workflow, template, step, loopSpec{
		name:         step.Name,
		withItems:    step.WithItems,
		withParam:    step.WithParam,
		withSequence: step.WithSequence != nil,
	})
}

// TaskContext returns the references available inside one dag task.
func TaskContext(workflow *schema.Workflow, template *schema.Template, task *schema.DagTask) *Context {
	return nodeContext(workflow, template, task, loopSpec{
		name:         task.Name,
		withItems:    task.WithItems,
		withParam:    task.WithParam,
		withSequence: task.WithSequence != nil,
	})
}

// loopSpec carries the loop fields shared by steps and dag tasks.
type loopSpec struct {
	name         string
	withItems    []any
	withParam    string
	withSequence bool
}

func nodeContext(workflow *schema.Workflow, template *schema.Template, node any, loop loopSpec) *Context {
	key := stepKey{workflow: workflow, template: template, node: node}
	if cached, ok := stepCache.Get(key); ok {
		return cached.Clone()
	}

	ctx := TemplateContext(workflow, template)

	if len(loop.withItems) > 0 {
		ctx.Parameters.AddPath("item")
		for _, field := range itemFields(loop.withItems) {
			ctx.Parameters.AddPath("item", field)
		}
	}

	if loop.withParam != "" {
		ctx.Parameters.AddPath("item")

		fields, ok := paramFields(loop.withParam)
		if !ok {
			// The loop source is usually a reference itself, so the field set
			// cannot be known here. Accept any item field.
			slog.Debug("failed to parse withParam, allowing any item field", "node", loop.name)
			ctx.Parameters.Add(Ref{Lit("item"), Any})
		} else {
			for _, field := range fields {
				ctx.Parameters.AddPath("item", field)
			}
		}
	}

	if loop.withSequence {
		ctx.Parameters.AddPath("item")
	}

	stepCache.Put(key, ctx)
	return ctx.Clone()
}

// itemFields collects the map keys used across a literal withItems list, in
// first-seen order.
func itemFields(items []any) []string {
	var fields []string
	seen := make(map[string]struct{})
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(m))
		for key := range m {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				fields = append(fields, key)
			}
		}
	}
	return fields
}

// paramFields decodes withParam as a JSON array of maps and collects the map
// keys. Reports false when the value cannot be statically decomposed.
func paramFields(raw string) ([]string, bool) {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	return itemFields(items), true
}
