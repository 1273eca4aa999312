package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"otcextensions/core/sdkutils"
)

// Format represents the output format type
type Format string

const (
	// FormatTable is the default human-readable table format
	FormatTable Format = "table"
	// FormatJSON is the JSON output format
	FormatJSON Format = "json"
	// FormatYAML is the YAML output format
	FormatYAML Format = "yaml"
	// FormatValue prints bare values, one record per line
	FormatValue Format = "value"
)

// Formats lists the accepted values of the --format flag
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatValue}

// Formatter handles different output formats
type Formatter struct {
	format Format
	writer io.Writer
}

// New creates a new Formatter with the specified format
func New(format Format) *Formatter {
	return &Formatter{
		format: format,
		writer: os.Stdout,
	}
}

// SetWriter sets a custom writer for output (useful for testing)
func (f *Formatter) SetWriter(w io.Writer) {
	f.writer = w
}

// ShowOne renders a single resource. columns and values are parallel, as
// produced by sdkutils.ShowColumns and sdkutils.ItemProperties.
func (f *Formatter) ShowOne(columns []string, values []any) error {
	if len(columns) != len(values) {
		return fmt.Errorf("got %d values for %d columns", len(values), len(columns))
	}

	switch f.format {
	case FormatJSON, FormatYAML:
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = machineValue(values[i])
		}
		return f.encode(record)
	case FormatValue:
		for _, v := range values {
			if _, err := fmt.Fprintln(f.writer, humanValue(v)); err != nil {
				return err
			}
		}
		return nil
	case FormatTable:
		w := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FIELD\tVALUE")
		for i, col := range columns {
			fmt.Fprintf(w, "%s\t%s\n", col, oneLine(humanValue(values[i])))
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", f.format)
	}
}

// List renders a collection of resources sharing the same columns
func (f *Formatter) List(columns []string, rows [][]any) error {
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
	}

	switch f.format {
	case FormatJSON, FormatYAML:
		records := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			record := make(map[string]any, len(columns))
			for i, col := range columns {
				record[col] = machineValue(row[i])
			}
			records = append(records, record)
		}
		return f.encode(records)
	case FormatValue:
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = oneLine(humanValue(v))
			}
			if _, err := fmt.Fprintln(f.writer, strings.Join(cells, " ")); err != nil {
				return err
			}
		}
		return nil
	case FormatTable:
		w := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
		header := make([]string, len(columns))
		for i, col := range columns {
			header[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(w, strings.Join(header, "\t"))
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = oneLine(humanValue(v))
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", f.format)
	}
}

func (f *Formatter) encode(data any) error {
	if f.format == FormatYAML {
		encoder := yaml.NewEncoder(f.writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return err
		}
		return encoder.Close()
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func machineValue(v any) any {
	if col, ok := v.(sdkutils.FormattableColumn); ok {
		return col.MachineReadable()
	}
	return v
}

// humanValue renders a cell for people. Maps and slices are shown as JSON.
func humanValue(v any) string {
	if col, ok := v.(sdkutils.FormattableColumn); ok {
		if s := col.HumanReadable(); s != nil {
			return *s
		}
		return ""
	}
	if v == nil {
		return ""
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}

// oneLine keeps a cell on one table row
func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// AddFormatFlag adds a persistent --format flag to a cobra command
func AddFormatFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("format", "f", string(FormatTable), "Output format (table|json|yaml|value)")
}

// GetFormatFromCmd extracts the output format from a cobra command's flags
func GetFormatFromCmd(cmd *cobra.Command) (Format, error) {
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return FormatTable, err
	}

	format := Format(formatStr)
	for _, known := range Formats {
		if format == known {
			return format, nil
		}
	}
	return FormatTable, fmt.Errorf("invalid output format: %s (must be one of table, json, yaml, value)", formatStr)
}
