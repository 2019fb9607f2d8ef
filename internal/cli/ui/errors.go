package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message block
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a multi-line block: a header, optional detail and hints
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Detail      string
	Suggestions []string
	// Hints are commands worth running next
	Hints   []string
	NoColor bool
}

// Format renders the message
//
//	✗ UNKNOWN TYPE: DataIdentificaton
//
//	   Did you mean: DataIdentification?
//
//	   → List types: metaschema schema types
func (m Message) Format() string {
	var b strings.Builder

	var header *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header, symbol = newColor(m.NoColor, color.FgYellow, color.Bold), "!"
	case LevelInfo:
		header, symbol = newColor(m.NoColor, color.FgCyan, color.Bold), "i"
	default:
		header, symbol = newColor(m.NoColor, color.FgRed, color.Bold), "✗"
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if m.Detail != "" {
		fmt.Fprintf(&b, "   %s\n", m.Detail)
	}
	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		newColor(m.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.Hints) > 0 {
		b.WriteString("\n")
		cyan := newColor(m.NoColor, color.FgCyan)
		for _, h := range m.Hints {
			cyan.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write renders the message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// UnknownTypeError reports a record type name that is not registered
func UnknownTypeError(name string, suggestions []string, noColor bool) Message {
	return Message{
		Context:     "unknown type",
		Problem:     name,
		Suggestions: suggestions,
		Hints:       []string{"List types: metaschema schema types"},
		NoColor:     noColor,
	}
}

// UnknownVocabularyError reports an enumeration name that is not registered
func UnknownVocabularyError(name string, suggestions []string, noColor bool) Message {
	return Message{
		Context:     "unknown enumeration",
		Problem:     name,
		Suggestions: suggestions,
		Hints:       []string{"List enumerations: metaschema vocab list"},
		NoColor:     noColor,
	}
}

// ConfigError reports an unusable configuration
func ConfigError(err error, noColor bool) Message {
	return Message{
		Context: "configuration error",
		Problem: err.Error(),
		Hints: []string{
			"Check metaschema.yaml or METASCHEMA_* environment variables",
			"Get help: metaschema --help",
		},
		NoColor: noColor,
	}
}

// Warning is a single-line warning
func Warning(message string, noColor bool) Message {
	return Message{Level: LevelWarning, Problem: message, NoColor: noColor}
}

// FormatSuccess renders "✓ message" in green
func FormatSuccess(message string, noColor bool) string {
	return newColor(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
