package reference

import (
	"sync"

	"github.com/stevedore-dev/stevedore/internal/lru"
	"github.com/stevedore-dev/stevedore/internal/schema"
)

// globalContext builds the constant set of references that are available
// everywhere. Built once; callers receive clones.
var globalContext = sync.OnceValue(func() *Context {
	ctx := NewContext()
	ctx.Parameters.Update(
		Path("workflow", "name"),
		Path("workflow", "namespace"),
		Path("workflow", "mainEntrypoint"),
		Path("workflow", "serviceAccountName"),
		Path("workflow", "uid"),
		Path("workflow", "parameters", "json"),
		Path("workflow", "annotations", "json"),
		Path("workflow", "labels", "json"),
		Path("workflow", "creationTimestamp"),
		Path("workflow", "creationTimestamp", "RFC3339"),
		Path("workflow", "priority"),
		Path("workflow", "duration"),
		Path("workflow", "scheduledTime"),
	)
	return ctx
})

// GlobalContext returns the references available in every scope.
func GlobalContext() *Context {
	return globalContext().Clone()
}

// The scope caches are keyed by the identity of the scope-defining objects,
// not their values: the schema objects are mutable by construction elsewhere
// in the system, so value keys would be unsound. Cached contexts are cloned
// on the way out.
var workflowCache = lru.New[*schema.Workflow, *Context](2)

// WorkflowContext returns the references available at workflow scope: the
// global context, the declared workflow arguments, and every template output
// promoted to a global name.
func WorkflowContext(workflow *schema.Workflow) *Context {
	if cached, ok := workflowCache.Get(workflow); ok {
		return cached.Clone()
	}

	ctx := GlobalContext()

	if args := workflow.Spec.Arguments; args != nil {
		for _, param := range args.Parameters {
			if param != nil && param.Name != "" {
				ctx.Parameters.AddPath("workflow", "parameters", param.Name)
			}
		}
	}

	for _, tmpl := range workflow.Spec.Templates {
		if tmpl == nil || tmpl.Outputs == nil {
			continue
		}
		for _, param := range tmpl.Outputs.Parameters {
			if param != nil && param.GlobalName != "" {
				ctx.Parameters.AddPath("workflow", "outputs", "parameters", param.GlobalName)
			}
		}
		for _, artifact := range tmpl.Outputs.Artifacts {
			if artifact != nil && artifact.GlobalName != "" {
				ctx.Artifacts.AddPath("workflow", "outputs", "artifacts", artifact.GlobalName)
			}
		}
	}

	workflowCache.Put(workflow, ctx)
	return ctx.Clone()
}
