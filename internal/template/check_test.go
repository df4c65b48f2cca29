package template

import (
	"reflect"
	"testing"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
	"github.com/stevedore-dev/stevedore/internal/reference"
)

func TestReportSyntaxErrors_MergesAdjacentNodes(t *testing.T) {
	// the parser leaves two bare error nodes here; the reporter folds them
	// into a single diagnosis
	doc := Parse("Hello {{ foo !")

	diagnoses := ReportSyntaxErrors(doc)
	if len(diagnoses) != 1 {
		t.Fatalf("got %d diagnoses, want 1: %#v", len(diagnoses), diagnoses)
	}
	d := diagnoses[0]
	if d.Code != diagnosis.CodeSyntaxError {
		t.Errorf("Code = %s, want %s", d.Code, diagnosis.CodeSyntaxError)
	}
	if d.Input != "{{ foo !" {
		t.Errorf("Input = %q, want %q", d.Input, "{{ foo !")
	}
}

func TestReportSyntaxErrors_UnterminatedTag(t *testing.T) {
	doc := Parse("{{ foo")

	diagnoses := ReportSyntaxErrors(doc)
	if len(diagnoses) != 1 {
		t.Fatalf("got %d diagnoses, want 1", len(diagnoses))
	}
	want := "Invalid syntax near '{{ foo': expect closing tag '}}'"
	if diagnoses[0].Msg != want {
		t.Errorf("Msg = %q, want %q", diagnoses[0].Msg, want)
	}
}

func TestReportSyntaxErrors_Clean(t *testing.T) {
	doc := Parse("nothing to see {{ here.at.all }}")

	if diagnoses := ReportSyntaxErrors(doc); len(diagnoses) != 0 {
		t.Errorf("got %d diagnoses, want 0", len(diagnoses))
	}
}

func TestCheckValueReferences(t *testing.T) {
	refs := reference.NewCollection()
	refs.AddPath("inputs", "parameters", "message")
	refs.AddPath("workflow", "name")

	t.Run("valid references", func(t *testing.T) {
		got := CheckValueReferences("{{ inputs.parameters.message }} on {{ workflow.name }}", refs)
		if len(got) != 0 {
			t.Errorf("got %d diagnoses, want 0: %#v", len(got), got)
		}
	})

	t.Run("misspelled reference", func(t *testing.T) {
		got := CheckValueReferences("{{ inputs.parameter.message }}", refs)
		if len(got) != 1 {
			t.Fatalf("got %d diagnoses, want 1", len(got))
		}
		d := got[0]
		if d.Code != diagnosis.CodeInvalidReference {
			t.Errorf("Code = %s, want %s", d.Code, diagnosis.CodeInvalidReference)
		}
		if d.Msg != "The used reference 'inputs.parameter.message' is invalid." {
			t.Errorf("Msg = %q", d.Msg)
		}
		if d.Input != "{{ inputs.parameter.message }}" {
			t.Errorf("Input = %q", d.Input)
		}
		if d.Fix != "{{ inputs.parameters.message }}" {
			t.Errorf("Fix = %q, want %q", d.Fix, "{{ inputs.parameters.message }}")
		}
	})

	t.Run("syntax error and bad reference together", func(t *testing.T) {
		got := CheckValueReferences("{{ nope }} and {{ broken", refs)
		if len(got) != 2 {
			t.Fatalf("got %d diagnoses, want 2: %#v", len(got), got)
		}
		codes := []string{got[0].Code, got[1].Code}
		want := []string{diagnosis.CodeSyntaxError, diagnosis.CodeInvalidReference}
		if !reflect.DeepEqual(codes, want) {
			t.Errorf("codes = %v, want %v", codes, want)
		}
	})

	t.Run("expression tags are opaque", func(t *testing.T) {
		got := CheckValueReferences("{{= totally.made.up + 1 }}", refs)
		if len(got) != 0 {
			t.Errorf("got %d diagnoses, want 0: %#v", len(got), got)
		}
	})
}

func TestCheckValueReferences_WildcardScope(t *testing.T) {
	refs := reference.NewCollection()
	refs.Add(reference.Ref{
		reference.Lit("steps"), reference.Lit("build"),
		reference.Lit("outputs"), reference.Lit("parameters"), reference.Any,
	})

	got := CheckValueReferences("{{ steps.build.outputs.parameters.whatever }}", refs)
	if len(got) != 0 {
		t.Errorf("wildcard should accept any final segment, got %#v", got)
	}
}
