package reference

import (
	"log/slog"

	"github.com/stevedore-dev/stevedore/internal/lru"
	"github.com/stevedore-dev/stevedore/internal/schema"
)

type templateKey struct {
	workflow *schema.Workflow
	template *schema.Template
}

var templateCache = lru.New[templateKey, *Context](16)

// TemplateContext returns the references available inside the given template:
// the workflow context plus the template's declared inputs, structural
// constants, pod-scoped references for container and script templates, and
// per-step or per-task synthetic references.
func TemplateContext(workflow *schema.Workflow, template *schema.Template) *Context {
	key := templateKey{workflow: workflow, template: template}
	if cached, ok := templateCache.Get(key); ok {
		return cached.Clone()
	}

	ctx := WorkflowContext(workflow)

	ctx.Parameters.Update(
		Path("inputs", "parameters"),
		Path("node", "name"),
		Path("workflow", "status"),
		Path("workflow", "failures"),
	)

	if template.Inputs != nil {
		for _, param := range template.Inputs.Parameters {
			if param != nil && param.Name != "" {
				ctx.Parameters.AddPath("inputs", "parameters", param.Name)
			}
		}
		for _, artifact := range template.Inputs.Artifacts {
			if artifact != nil && artifact.Name != "" {
				ctx.Artifacts.AddPath("inputs", "artifacts", artifact.Name)
			}
		}
	}

	if template.IsPodTemplate() {
		ctx.Parameters.AddPath("pod", "name")

		if template.RetryStrategy != nil {
			ctx.Parameters.AddPath("retries")
		}

		if template.Inputs != nil {
			for _, artifact := range template.Inputs.Artifacts {
				if artifact != nil && artifact.Name != "" {
					ctx.Parameters.AddPath("inputs", "artifacts", artifact.Name, "path")
				}
			}
		}
		if template.Outputs != nil {
			for _, artifact := range template.Outputs.Artifacts {
				if artifact != nil && artifact.Name != "" {
					ctx.Parameters.AddPath("outputs", "artifacts", artifact.Name, "path")
				}
			}
			for _, param := range template.Outputs.Parameters {
				if param != nil && param.Name != "" {
					ctx.Parameters.AddPath("outputs", "parameters", param.Name, "path")
				}
			}
		}
	}

	addStepReferences(ctx, workflow, template)
	addTaskReferences(ctx, workflow, template)

	templateCache.Put(key, ctx)
	return ctx.Clone()
}

func addStepReferences(ctx *Context, workflow *schema.Workflow, template *schema.Template) {
	if len(template.Steps) == 0 {
		return
	}

	ctx.Parameters.AddPath("steps", "name")

	for _, group := range template.Steps {
		for _, step := range group {
			if step == nil || step.Name == "" {
				continue
			}
			addNodeReferences(ctx, workflow, "steps", step.Name, nodeTarget{
				template:    step.Template,
				templateRef: step.TemplateRef,
				inline:      step.Inline,
				looped:      len(step.WithItems) > 0 || step.WithParam != "",
			})
		}
	}
}

func addTaskReferences(ctx *Context, workflow *schema.Workflow, template *schema.Template) {
	if template.DAG == nil {
		return
	}

	ctx.Parameters.AddPath("tasks", "name")

	for _, task := range template.DAG.Tasks {
		if task == nil || task.Name == "" {
			continue
		}
		addNodeReferences(ctx, workflow, "tasks", task.Name, nodeTarget{
			template:    task.Template,
			templateRef: task.TemplateRef,
			inline:      task.Inline,
			looped:      len(task.WithItems) > 0 || task.WithParam != "",
		})
	}
}

// nodeTarget describes where a step or task resolves its template from.
type nodeTarget struct {
	template    string
	templateRef *schema.TemplateRef
	inline      *schema.Template
	looped      bool
}

// addNodeReferences registers the synthetic references exposed by one step or
// task under the given kind prefix ("steps" or "tasks").
func addNodeReferences(ctx *Context, workflow *schema.Workflow, kind, name string, target nodeTarget) {
	ctx.Parameters.Update(
		Path(kind, name, "id"),
		Path(kind, name, "ip"),
		Path(kind, name, "status"),
		Path(kind, name, "exitCode"),
		Path(kind, name, "startedAt"),
		Path(kind, name, "finishedAt"),
		Path(kind, name, "hostNodeName"),
		Path(kind, name, "outputs", "result"),
	)

	if target.looped {
		ctx.Parameters.AddPath(kind, name, "outputs", "parameters")
	}

	resolved := resolveTarget(workflow, target)
	if resolved != nil {
		if resolved.Outputs != nil {
			for _, param := range resolved.Outputs.Parameters {
				if param != nil && param.Name != "" {
					ctx.Parameters.AddPath(kind, name, "outputs", "parameters", param.Name)
				}
			}
			for _, artifact := range resolved.Outputs.Artifacts {
				if artifact != nil && artifact.Name != "" {
					ctx.Artifacts.AddPath(kind, name, "outputs", "artifacts", artifact.Name)
				}
			}
		}
		return
	}

	// The target template is not visible from this manifest. Absence of
	// knowledge must not produce false positives, so accept any output name.
	slog.Debug("referenced template is not available, allowing any output",
		"kind", kind, "node", name, "template", target.template)
	ctx.Parameters.Add(Ref{Lit(kind), Lit(name), Lit("outputs"), Lit("parameters"), Any})
	ctx.Artifacts.Add(Ref{Lit(kind), Lit(name), Lit("outputs"), Lit("artifacts"), Any})
}

// resolveTarget finds the template a step or task points at, when it lives in
// the same manifest. Returns nil for external or unknown targets.
func resolveTarget(workflow *schema.Workflow, target nodeTarget) *schema.Template {
	switch {
	case target.template != "":
		return workflow.TemplateByName(target.template)
	case target.templateRef != nil && target.templateRef.Name == workflow.Name():
		return workflow.TemplateByName(target.templateRef.Template)
	case target.inline != nil:
		return target.inline
	}
	return nil
}
