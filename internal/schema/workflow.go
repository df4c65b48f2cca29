// Package schema is the read-only data model of workflow manifests. The
// analyzers and the scope builders consume these types; nothing in this
// module mutates them after decoding.
package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest kinds supported by the analyzers.
const (
	KindWorkflow         = "Workflow"
	KindWorkflowTemplate = "WorkflowTemplate"
)

// Metadata is the object metadata of a manifest.
type Metadata struct {
	Name         string            `yaml:"name"`
	GenerateName string            `yaml:"generateName"`
	Namespace    string            `yaml:"namespace"`
	Labels       map[string]string `yaml:"labels"`
	Annotations  map[string]string `yaml:"annotations"`
}

// Workflow is a decoded Workflow or WorkflowTemplate manifest.
type Workflow struct {
	APIVersion string       `yaml:"apiVersion"`
	Kind       string       `yaml:"kind"`
	Metadata   Metadata     `yaml:"metadata"`
	Spec       WorkflowSpec `yaml:"spec"`

	templatesByName map[string]*Template
}

// WorkflowSpec holds the fields of a workflow relevant to analysis.
type WorkflowSpec struct {
	Entrypoint string      `yaml:"entrypoint"`
	Arguments  *Arguments  `yaml:"arguments"`
	Templates  []*Template `yaml:"templates"`
}

// Name returns the metadata name, falling back to generateName.
func (w *Workflow) Name() string {
	if w.Metadata.Name != "" {
		return w.Metadata.Name
	}
	return w.Metadata.GenerateName
}

// TemplateByName returns the named template, or nil when it is not declared
// in this workflow.
func (w *Workflow) TemplateByName(name string) *Template {
	if w.templatesByName == nil {
		w.templatesByName = make(map[string]*Template, len(w.Spec.Templates))
		for _, tmpl := range w.Spec.Templates {
			if tmpl != nil && tmpl.Name != "" {
				if _, ok := w.templatesByName[tmpl.Name]; !ok {
					w.templatesByName[tmpl.Name] = tmpl
				}
			}
		}
	}
	return w.templatesByName[name]
}

// Template is a single workflow template.
type Template struct {
	Name          string         `yaml:"name"`
	Inputs        *IO            `yaml:"inputs"`
	Outputs       *IO            `yaml:"outputs"`
	Container     *Container     `yaml:"container"`
	Script        *Script        `yaml:"script"`
	ContainerSet  *ContainerSet  `yaml:"containerSet"`
	RetryStrategy *RetryStrategy `yaml:"retryStrategy"`
	Steps         []StepGroup    `yaml:"steps"`
	DAG           *DAG           `yaml:"dag"`
}

// IsPodTemplate reports whether the template runs as a pod and therefore
// exposes pod-scoped references.
func (t *Template) IsPodTemplate() bool {
	return t.Container != nil || t.Script != nil || t.ContainerSet != nil
}

// IO is the inputs or outputs block of a template.
type IO struct {
	Parameters []*Parameter `yaml:"parameters"`
	Artifacts  []*Artifact  `yaml:"artifacts"`
}

// Arguments carries the parameters and artifacts passed to a workflow, step,
// or task.
type Arguments struct {
	Parameters []*Parameter `yaml:"parameters"`
	Artifacts  []*Artifact  `yaml:"artifacts"`
}

// Parameter declares or passes a named value.
type Parameter struct {
	Name       string     `yaml:"name"`
	Value      string     `yaml:"value"`
	Default    string     `yaml:"default"`
	GlobalName string     `yaml:"globalName"`
	ValueFrom  *ValueFrom `yaml:"valueFrom"`
}

// Artifact declares or passes a named file or directory.
type Artifact struct {
	Name       string `yaml:"name"`
	Path       string `yaml:"path"`
	From       string `yaml:"from"`
	GlobalName string `yaml:"globalName"`
}

// ValueFrom selects the source of a parameter value.
type ValueFrom struct {
	Path       string `yaml:"path"`
	Parameter  string `yaml:"parameter"`
	Expression string `yaml:"expression"`
}

// Container is the container block of a pod template.
type Container struct {
	Image      string   `yaml:"image"`
	Command    []string `yaml:"command"`
	Args       []string `yaml:"args"`
	WorkingDir string   `yaml:"workingDir"`
	Env        []*Env   `yaml:"env"`
}

// Script is a script template: a container plus inline source.
type Script struct {
	Image   string   `yaml:"image"`
	Command []string `yaml:"command"`
	Source  string   `yaml:"source"`
	Env     []*Env   `yaml:"env"`
}

// ContainerSet groups multiple containers in one pod template. Only its
// presence matters to the scope builder.
type ContainerSet struct {
	Containers []*Container `yaml:"containers"`
}

// Env is a single environment variable entry.
type Env struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// RetryStrategy is a retry policy. Only its presence matters to the scope
// builder.
type RetryStrategy struct {
	Limit       string `yaml:"limit"`
	RetryPolicy string `yaml:"retryPolicy"`
}

// StepGroup is one group of steps that run in parallel.
type StepGroup []*Step

// Step is a workflow step.
type Step struct {
	Name         string       `yaml:"name"`
	Template     string       `yaml:"template"`
	TemplateRef  *TemplateRef `yaml:"templateRef"`
	Inline       *Template    `yaml:"inline"`
	Arguments    *Arguments   `yaml:"arguments"`
	When         string       `yaml:"when"`
	WithItems    []any        `yaml:"withItems"`
	WithParam    string       `yaml:"withParam"`
	WithSequence *Sequence    `yaml:"withSequence"`
}

// TemplateRef points at a template declared in another manifest.
type TemplateRef struct {
	Name         string `yaml:"name"`
	Template     string `yaml:"template"`
	ClusterScope bool   `yaml:"clusterScope"`
}

// DAG is the task graph of a dag-shaped template.
type DAG struct {
	Target string     `yaml:"target"`
	Tasks  []*DagTask `yaml:"tasks"`
}

// DagTask is one task in a dag template. It carries the same loop and
// template-target fields as a step.
type DagTask struct {
	Name         string       `yaml:"name"`
	Template     string       `yaml:"template"`
	TemplateRef  *TemplateRef `yaml:"templateRef"`
	Inline       *Template    `yaml:"inline"`
	Arguments    *Arguments   `yaml:"arguments"`
	Depends      string       `yaml:"depends"`
	Dependencies []string     `yaml:"dependencies"`
	When         string       `yaml:"when"`
	WithItems    []any        `yaml:"withItems"`
	WithParam    string       `yaml:"withParam"`
	WithSequence *Sequence    `yaml:"withSequence"`
}

// Sequence generates loop items from a numeric range.
type Sequence struct {
	Count  string `yaml:"count"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Format string `yaml:"format"`
}

// Decode parses a workflow manifest from a position-annotated YAML node.
func Decode(node *yaml.Node) (*Workflow, error) {
	var wf Workflow
	if err := node.Decode(&wf); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &wf, nil
}
