package format

import (
	"io"

	"github.com/goccy/go-json"
)

// JSON renders the report as a JSON array of findings, one object per
// diagnosis with its source anchor.
type JSON struct{}

type jsonItem struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`

	Severity string         `json:"severity"`
	Code     string         `json:"code"`
	Loc      string         `json:"loc"`
	Summary  string         `json:"summary,omitempty"`
	Msg      string         `json:"msg"`
	Input    string         `json:"input,omitempty"`
	Fix      string         `json:"fix,omitempty"`
	Ctx      map[string]any `json:"ctx,omitempty"`
}

func (*JSON) Format(w io.Writer, items []Item) error {
	out := make([]jsonItem, 0, len(items))
	for _, item := range items {
		out = append(out, jsonItem{
			File:     item.File,
			Line:     item.Line,
			Column:   item.Column,
			Severity: string(item.Severity),
			Code:     item.Code,
			Loc:      item.Loc.String(),
			Summary:  item.Summary,
			Msg:      item.Msg,
			Input:    item.Input,
			Fix:      item.Fix,
			Ctx:      item.Ctx,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
