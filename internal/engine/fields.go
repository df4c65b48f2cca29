package engine

import (
	"reflect"
	"sort"
	"strings"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
	"github.com/stevedore-dev/stevedore/internal/reference"
	"github.com/stevedore-dev/stevedore/internal/template"
)

// checkFieldReferences walks every string field reachable from value and
// checks its template tags against refs. Locations are built from the yaml
// struct tags, so they line up with the document paths the position resolver
// understands. Fields whose static type appears in skip are not descended
// into; those sub-trees carry a narrower scope and are checked separately.
func checkFieldReferences(value any, refs *reference.Collection, skip []reflect.Type) []diagnosis.Diagnosis {
	walker := fieldWalker{refs: refs, skip: skip}
	walker.walk(reflect.ValueOf(value), nil)
	return walker.diagnoses
}

type fieldWalker struct {
	refs      *reference.Collection
	skip      []reflect.Type
	diagnoses []diagnosis.Diagnosis
}

func (w *fieldWalker) skipped(t reflect.Type) bool {
	for _, s := range w.skip {
		if t == s {
			return true
		}
	}
	return false
}

func (w *fieldWalker) walk(v reflect.Value, loc diagnosis.Loc) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			w.walk(v.Elem(), loc)
		}

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() || w.skipped(field.Type) {
				continue
			}
			name := yamlFieldName(field)
			if name == "" {
				continue
			}
			w.walk(v.Field(i), append(loc, name))
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.walk(v.Index(i), append(loc, i))
		}

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return
		}
		keys := make([]string, 0, v.Len())
		for _, key := range v.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		for _, key := range keys {
			w.walk(v.MapIndex(reflect.ValueOf(key)), append(loc, key))
		}

	case reflect.String:
		s := v.String()
		if !strings.Contains(s, "{{") && !strings.Contains(s, "}}") {
			return
		}
		here := append(diagnosis.Loc(nil), loc...)
		w.diagnoses = append(w.diagnoses,
			diagnosis.Prepend(here, template.CheckValueReferences(s, w.refs))...)
	}
}

// yamlFieldName extracts the key name from a yaml struct tag, falling back to
// the lowercased field name the way yaml.v3 does.
func yamlFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "-" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag != "" {
		return tag
	}
	return strings.ToLower(field.Name)
}
