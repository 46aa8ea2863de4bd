package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"mercator-hq/conditional/pkg/report"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output for tabular results.
	FormatCSV OutputFormat = "csv"
	// FormatPretty is Markdown rendered for the terminal.
	FormatPretty OutputFormat = "pretty"
)

// ParseOutputFormat parses a format name. The empty string is FormatText.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatPretty:
		return FormatPretty, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (want text, json, csv or pretty)", s))
	}
}

// Tabular is implemented by results that are naturally rows.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Markdowner is implemented by results with a Markdown report.
type Markdowner interface {
	Markdown() string
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	var b strings.Builder
	if err := f.FormatTo(&b, data); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// FormatTo writes data to w in text format. A Stringer prints itself;
// other Tabular data is aligned in columns.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	case Tabular:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(v.Header(), "\t"))
		for _, row := range v.Rows() {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats Tabular output as CSV.
type CSVFormatter struct{}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	var b strings.Builder
	if err := f.FormatTo(&b, data); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// FormatTo writes data to w in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("csv output is not supported for %T", data)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(table.Header()); err != nil {
		return err
	}
	if err := csvWriter.WriteAll(table.Rows()); err != nil {
		return err
	}
	return csvWriter.Error()
}

// PrettyFormatter renders Markdowner output for the terminal. Other values
// fall back to text.
type PrettyFormatter struct {
	Renderer *report.Renderer
}

// Format converts data to rendered Markdown.
func (f *PrettyFormatter) Format(data any) ([]byte, error) {
	var b strings.Builder
	if err := f.FormatTo(&b, data); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// FormatTo writes rendered Markdown to w.
func (f *PrettyFormatter) FormatTo(w io.Writer, data any) error {
	md, ok := data.(Markdowner)
	if !ok {
		return (&TextFormatter{}).FormatTo(w, data)
	}
	out, err := f.Renderer.Render(md.Markdown())
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// NewFormatter creates a formatter for format. FormatPretty needs a
// renderer; nil renders plain Markdown.
func NewFormatter(format OutputFormat, renderer *report.Renderer) (Formatter, error) {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	case FormatPretty:
		if renderer == nil {
			var err error
			if renderer, err = report.NewRenderer(report.StylePlain, 0); err != nil {
				return nil, err
			}
		}
		return &PrettyFormatter{Renderer: renderer}, nil
	case FormatText, "":
		return &TextFormatter{}, nil
	default:
		return nil, NewConfigError("output", fmt.Sprintf("unknown format %q", format))
	}
}
