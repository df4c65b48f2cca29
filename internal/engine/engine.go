// Package engine decodes workflow manifests and drives the analysis passes
// over them. Analyzers are an explicit ordered list; the engine owns the
// traversal order workflow -> template -> step/task and prefixes every
// diagnosis with the absolute path of the field it was reported against.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
	"github.com/stevedore-dev/stevedore/internal/schema"
)

// Engine analyzes parsed manifest documents.
type Engine struct {
	logger  *slog.Logger
	follow  map[string]struct{}
	exclude map[string]struct{}
}

// New creates an engine. When followCodes is non-empty only those codes are
// reported; diagnoses whose code appears in excludeCodes are always dropped.
func New(logger *slog.Logger, followCodes, excludeCodes []string) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:  logger,
		follow:  codeSet(followCodes),
		exclude: codeSet(excludeCodes),
	}
}

func codeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// DocumentReport pairs one YAML document with its diagnoses. Root is kept so
// callers can resolve diagnosis locations to source positions.
type DocumentReport struct {
	Root      *yaml.Node
	Diagnoses []diagnosis.Diagnosis
}

// AnalyzeStream decodes a multi-document YAML stream and analyzes each
// document. A document that fails to parse produces an F002 diagnosis; the
// stream cannot be resumed past it.
func (e *Engine) AnalyzeStream(r io.Reader) []DocumentReport {
	var reports []DocumentReport
	decoder := yaml.NewDecoder(r)

	for {
		var root yaml.Node
		err := decoder.Decode(&root)
		if errors.Is(err, io.EOF) {
			return reports
		}
		if err != nil {
			reports = append(reports, DocumentReport{
				Diagnoses: []diagnosis.Diagnosis{diagnosis.Normalize(diagnosis.Diagnosis{
					Severity: diagnosis.SeverityFailure,
					Code:     diagnosis.CodeMalformedDocument,
					Msg:      fmt.Sprintf("The document is not valid YAML: %v", err),
				})},
			})
			return reports
		}
		reports = append(reports, DocumentReport{
			Root:      &root,
			Diagnoses: e.AnalyzeDocument(&root),
		})
	}
}

// AnalyzeDocument analyzes one parsed document and returns its diagnoses,
// normalized and sorted by location. It is total: malformed or adversarial
// input degrades to diagnoses, never to a panic.
func (e *Engine) AnalyzeDocument(root *yaml.Node) []diagnosis.Diagnosis {
	diagnoses := e.analyzeDocument(root)
	for i := range diagnoses {
		diagnoses[i] = diagnosis.Normalize(diagnoses[i])
	}
	diagnoses = e.filter(root, diagnoses)
	diagnosis.Sort(diagnoses)
	return diagnoses
}

func (e *Engine) analyzeDocument(root *yaml.Node) (diagnoses []diagnosis.Diagnosis) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer panicked", "panic", r)
			diagnoses = append(diagnoses, diagnosis.Diagnosis{
				Severity: diagnosis.SeverityFailure,
				Code:     diagnosis.CodeInternalError,
				Summary:  "Internal error while analyzing manifest",
				Msg:      fmt.Sprintf("An error occurred while analyzing the manifest: %v", r),
			})
		}
	}()

	content := root
	if content != nil && content.Kind == yaml.DocumentNode && len(content.Content) > 0 {
		content = content.Content[0]
	}
	if content == nil || content.Kind == 0 {
		return nil
	}

	apiVersion, hasAPIVersion := mappingValue(content, "apiVersion")
	kind, hasKind := mappingValue(content, "kind")
	if !hasAPIVersion || !hasKind {
		return []diagnosis.Diagnosis{{
			Severity: diagnosis.SeverityWarning,
			Code:     diagnosis.CodeNotAManifest,
			Summary:  "Not a workflow manifest",
			Msg:      "The input does not look like a workflow manifest",
		}}
	}

	if kind != schema.KindWorkflow && kind != schema.KindWorkflowTemplate {
		return []diagnosis.Diagnosis{{
			Severity: diagnosis.SeverityWarning,
			Code:     diagnosis.CodeUnsupportedKind,
			Summary:  "Unsupported manifest kind",
			Msg:      fmt.Sprintf("Manifest kind %s is not supported", kind),
		}}
	}

	workflow, err := schema.Decode(content)
	if err != nil {
		return []diagnosis.Diagnosis{{
			Code:    diagnosis.CodeMalformedManifest,
			Summary: "Malformed manifest",
			Msg:     fmt.Sprintf("The manifest does not match the expected schema: %v", err),
		}}
	}

	e.logger.Debug("analyzing manifest",
		"name", workflow.Name(), "kind", kind, "apiVersion", apiVersion)

	for _, analyze := range analyzers {
		diagnoses = append(diagnoses, analyze(workflow)...)
	}
	return diagnoses
}

// filter drops excluded codes and diagnoses suppressed by a noqa comment on
// the offending line.
func (e *Engine) filter(root *yaml.Node, diagnoses []diagnosis.Diagnosis) []diagnosis.Diagnosis {
	kept := diagnoses[:0]
	for _, d := range diagnoses {
		if len(e.follow) > 0 {
			if _, ok := e.follow[d.Code]; !ok {
				continue
			}
		}
		if _, ok := e.exclude[d.Code]; ok {
			continue
		}
		if root != nil && suppressed(root, d) {
			e.logger.Debug("diagnosis suppressed by noqa comment",
				"code", d.Code, "loc", d.Loc.String())
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// mappingValue returns the scalar value for a top-level mapping key.
func mappingValue(node *yaml.Node, key string) (string, bool) {
	if node.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1].Value, true
		}
	}
	return "", false
}
