package main

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"pg2parquet/internal/planner"
)

// formatSchema renders the planned column list as a human-readable
// table previewing the schema before writing starts. PG types can nest,
// so composite fields and range subtypes are listed as dotted child rows
// beneath their parent, and array and domain element types as child rows
// with a "[]" suffix.
func formatSchema(cols []planner.Column) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "Column\tPG Type\tKind")
	for _, col := range cols {
		writeTypeRows(w, col.Name, col.Type)
	}
	_ = w.Flush()
	return buf.String()
}

func writeTypeRows(w *tabwriter.Writer, path string, t *planner.Type) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", path, t.Name, kindLabel(t.Kind))

	switch t.Kind {
	case planner.KindArray, planner.KindDomain:
		writeTypeRows(w, path+"[]", t.Elem)
	case planner.KindRange:
		writeTypeRows(w, path+".lower", t.Elem)
	case planner.KindComposite:
		for _, f := range t.Fields {
			writeTypeRows(w, path+"."+f.Name, f.Type)
		}
	}
}

func kindLabel(k planner.Kind) string {
	switch k {
	case planner.KindEnum:
		return "enum"
	case planner.KindArray:
		return "array"
	case planner.KindDomain:
		return "domain"
	case planner.KindRange:
		return "range"
	case planner.KindComposite:
		return "composite"
	default:
		return "simple"
	}
}
