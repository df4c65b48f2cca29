package engine

import (
	"fmt"
	"reflect"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
	"github.com/stevedore-dev/stevedore/internal/reference"
	"github.com/stevedore-dev/stevedore/internal/schema"
	"github.com/stevedore-dev/stevedore/internal/template"
)

// analyzers run in this order for every supported manifest.
var analyzers = []func(*schema.Workflow) []diagnosis.Diagnosis{
	analyzeWorkflow,
	analyzeTemplates,
}

// analyzeWorkflow checks workflow-level structure and the workflow-scope
// template tags.
func analyzeWorkflow(workflow *schema.Workflow) []diagnosis.Diagnosis {
	var diagnoses []diagnosis.Diagnosis

	if entrypoint := workflow.Spec.Entrypoint; entrypoint != "" && workflow.TemplateByName(entrypoint) == nil {
		names := reference.NewCollection()
		for _, tmpl := range workflow.Spec.Templates {
			if tmpl != nil && tmpl.Name != "" {
				names.AddPath(tmpl.Name)
			}
		}
		fix := ""
		if closest := names.FindClosest([]string{entrypoint}); len(closest) == 1 {
			fix = closest[0]
		}
		diagnoses = append(diagnoses, diagnosis.Diagnosis{
			Code:    diagnosis.CodeUnknownEntrypoint,
			Loc:     diagnosis.Loc{"spec", "entrypoint"},
			Summary: "Unknown entrypoint",
			Msg:     fmt.Sprintf("The entrypoint '%s' is not defined in the workflow templates.", entrypoint),
			Input:   entrypoint,
			Fix:     fix,
		})
	}

	for idx, name := range duplicateNames(len(workflow.Spec.Templates), func(i int) string {
		if tmpl := workflow.Spec.Templates[i]; tmpl != nil {
			return tmpl.Name
		}
		return ""
	}) {
		diagnoses = append(diagnoses, diagnosis.Diagnosis{
			Code:    diagnosis.CodeDuplicateTemplate,
			Loc:     diagnosis.Loc{"spec", "templates", idx, "name"},
			Summary: "Duplicate template name",
			Msg:     fmt.Sprintf("The template name '%s' is used more than once.", name),
			Input:   name,
		})
	}

	if args := workflow.Spec.Arguments; args != nil {
		ctx := reference.WorkflowContext(workflow)
		for i, param := range args.Parameters {
			if param == nil || param.Value == "" {
				continue
			}
			diagnoses = append(diagnoses, diagnosis.Prepend(
				diagnosis.Loc{"spec", "arguments", "parameters", i, "value"},
				template.CheckValueReferences(param.Value, ctx.Parameters),
			)...)
		}
	}

	return diagnoses
}

// analyzeTemplates checks each template's declarations and its template-tag
// references, then descends into steps and dag tasks with their narrower
// scopes.
func analyzeTemplates(workflow *schema.Workflow) []diagnosis.Diagnosis {
	var diagnoses []diagnosis.Diagnosis

	for i, tmpl := range workflow.Spec.Templates {
		if tmpl == nil {
			continue
		}
		loc := diagnosis.Loc{"spec", "templates", i}
		diagnoses = append(diagnoses, diagnosis.Prepend(loc, analyzeTemplate(workflow, tmpl))...)
	}

	return diagnoses
}

// templateBodySkip lists the template sub-trees that carry their own, narrower
// scope and are therefore checked by the step/task passes instead.
var templateBodySkip = []reflect.Type{
	reflect.TypeOf([]schema.StepGroup{}),
	reflect.TypeOf(&schema.DAG{}),
}

func analyzeTemplate(workflow *schema.Workflow, tmpl *schema.Template) []diagnosis.Diagnosis {
	var diagnoses []diagnosis.Diagnosis

	if tmpl.Inputs != nil {
		for idx, name := range duplicateNames(len(tmpl.Inputs.Parameters), func(i int) string {
			if p := tmpl.Inputs.Parameters[i]; p != nil {
				return p.Name
			}
			return ""
		}) {
			diagnoses = append(diagnoses, diagnosis.Diagnosis{
				Code:    diagnosis.CodeDuplicateInputParam,
				Loc:     diagnosis.Loc{"inputs", "parameters", idx, "name"},
				Summary: "Duplicate input parameter name",
				Msg:     fmt.Sprintf("The input parameter name '%s' is used more than once.", name),
				Input:   name,
			})
		}
		for idx, name := range duplicateNames(len(tmpl.Inputs.Artifacts), func(i int) string {
			if a := tmpl.Inputs.Artifacts[i]; a != nil {
				return a.Name
			}
			return ""
		}) {
			diagnoses = append(diagnoses, diagnosis.Diagnosis{
				Code:    diagnosis.CodeDuplicateInputArt,
				Loc:     diagnosis.Loc{"inputs", "artifacts", idx, "name"},
				Summary: "Duplicate input artifact name",
				Msg:     fmt.Sprintf("The input artifact name '%s' is used more than once.", name),
				Input:   name,
			})
		}
	}

	ctx := reference.TemplateContext(workflow, tmpl)
	diagnoses = append(diagnoses, checkFieldReferences(tmpl, ctx.Parameters, templateBodySkip)...)

	for g, group := range tmpl.Steps {
		for s, step := range group {
			if step == nil {
				continue
			}
			loc := diagnosis.Loc{"steps", g, s}
			diagnoses = append(diagnoses, diagnosis.Prepend(loc, analyzeStep(workflow, tmpl, step))...)
		}
	}

	if tmpl.DAG != nil {
		for t, task := range tmpl.DAG.Tasks {
			if task == nil {
				continue
			}
			loc := diagnosis.Loc{"dag", "tasks", t}
			diagnoses = append(diagnoses, diagnosis.Prepend(loc, analyzeTask(workflow, tmpl, task))...)
		}
	}

	return diagnoses
}

func analyzeStep(workflow *schema.Workflow, tmpl *schema.Template, step *schema.Step) []diagnosis.Diagnosis {
	ctx := reference.StepContext(workflow, tmpl, step)
	return analyzeNode(workflow, ctx, nodeFields{
		name:      step.Name,
		target:    step.Template,
		external:  step.TemplateRef != nil || step.Inline != nil,
		arguments: step.Arguments,
		when:      step.When,
		withParam: step.WithParam,
	})
}

func analyzeTask(workflow *schema.Workflow, tmpl *schema.Template, task *schema.DagTask) []diagnosis.Diagnosis {
	ctx := reference.TaskContext(workflow, tmpl, task)
	return analyzeNode(workflow, ctx, nodeFields{
		name:      task.Name,
		target:    task.Template,
		external:  task.TemplateRef != nil || task.Inline != nil,
		arguments: task.Arguments,
		when:      task.When,
		withParam: task.WithParam,
	})
}

// nodeFields carries the step/task fields the node pass inspects.
type nodeFields struct {
	name      string
	target    string
	external  bool
	arguments *schema.Arguments
	when      string
	withParam string
}

func analyzeNode(workflow *schema.Workflow, ctx *reference.Context, node nodeFields) []diagnosis.Diagnosis {
	var diagnoses []diagnosis.Diagnosis

	if node.target != "" && !node.external && workflow.TemplateByName(node.target) == nil {
		names := reference.NewCollection()
		for _, tmpl := range workflow.Spec.Templates {
			if tmpl != nil && tmpl.Name != "" {
				names.AddPath(tmpl.Name)
			}
		}
		fix := ""
		if closest := names.FindClosest([]string{node.target}); len(closest) == 1 {
			fix = closest[0]
		}
		diagnoses = append(diagnoses, diagnosis.Diagnosis{
			Code:    diagnosis.CodeUnknownStepTemplate,
			Loc:     diagnosis.Loc{"template"},
			Summary: "Unknown template",
			Msg:     fmt.Sprintf("The template '%s' referenced by '%s' is not defined in the workflow.", node.target, node.name),
			Input:   node.target,
			Fix:     fix,
		})
	}

	if node.arguments != nil {
		diagnoses = append(diagnoses, diagnosis.Prepend(
			diagnosis.Loc{"arguments"},
			checkFieldReferences(node.arguments, ctx.Parameters, nil),
		)...)
	}
	if node.when != "" {
		diagnoses = append(diagnoses, diagnosis.Prepend(
			diagnosis.Loc{"when"},
			template.CheckValueReferences(node.when, ctx.Parameters),
		)...)
	}
	if node.withParam != "" {
		diagnoses = append(diagnoses, diagnosis.Prepend(
			diagnosis.Loc{"withParam"},
			template.CheckValueReferences(node.withParam, ctx.Parameters),
		)...)
	}

	return diagnoses
}

// duplicateNames reports every index whose name also appears at another
// index. Empty names are skipped.
func duplicateNames(n int, nameAt func(int) string) map[int]string {
	byName := make(map[string][]int)
	for i := 0; i < n; i++ {
		if name := nameAt(i); name != "" {
			byName[name] = append(byName[name], i)
		}
	}
	dups := make(map[int]string)
	for name, indices := range byName {
		if len(indices) > 1 {
			for _, idx := range indices {
				dups[idx] = name
			}
		}
	}
	return dups
}
