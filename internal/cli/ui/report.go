package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/geomd/metaschema/internal/validation"
)

// WriteReport renders the violations of one document, one per line, followed
// by a summary line
//
//	abstract                  error    MissingRequiredField  required field is missing
func WriteReport(w io.Writer, source string, report validation.Report, noColor bool) {
	if len(report.Violations) == 0 {
		WriteSuccess(w, fmt.Sprintf("%s: valid %s", source, report.Type), noColor)
		return
	}

	red := newColor(noColor, color.FgRed, color.Bold)
	yellow := newColor(noColor, color.FgYellow)
	gray := newColor(noColor, color.FgHiBlack)

	if report.Valid {
		yellow.Fprintf(w, "! %s: valid %s with %d warning(s)\n", source, report.Type, len(report.Violations))
	} else {
		red.Fprintf(w, "✗ %s: invalid %s, %d error(s)\n", source, report.Type, len(report.Violations.Errors()))
	}

	table := NewTable(w, []string{"PATH", "SEVERITY", "KIND", "MESSAGE"}, &TableOptions{NoColor: noColor})
	for _, v := range report.Violations {
		path := v.FieldPath
		if path == "" {
			path = "<record>"
		}
		message := v.Message
		if v.Suggestion != "" {
			message += " (" + v.Suggestion + ")"
		}
		if v.Rule != "" {
			message += gray.Sprintf(" [%s]", v.Rule)
		}
		table.AddRow(path, string(v.Severity), string(v.Kind), message)
	}
	table.Render()
	fmt.Fprintln(w)
}
