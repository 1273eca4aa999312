package sdkutils

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ColumnMapping renames an SDK attribute to the column name shown to the user.
type ColumnMapping struct {
	SDKAttr     string
	DisplayAttr string
}

// ColumnMap is an ordered list of renames. Order matters: when two entries
// target the same display name, the later one wins.
type ColumnMap []ColumnMapping

// Resource is a snapshot of one remote entity keyed by attribute name
type Resource map[string]any

// ShowColumns computes the display columns of a show command and the SDK
// attribute backing each of them.
//
// Invisible attributes are removed before renames are applied, so a rename
// whose source is invisible (or absent) still adds its display column.
// Both returned slices have the same length; display columns are sorted.
func ShowColumns(resource Resource, columnMap ColumnMap, invisible []string) ([]string, []string) {
	display := make([]string, 0, len(resource))
	for key := range resource {
		display = append(display, key)
	}

	for _, name := range invisible {
		display = removeColumn(display, name)
	}

	attrMap := make(map[string]string)
	for _, m := range columnMap {
		if containsColumn(display, m.SDKAttr) {
			attrMap[m.DisplayAttr] = m.SDKAttr
			display = removeColumn(display, m.SDKAttr)
		}
		if !containsColumn(display, m.DisplayAttr) {
			display = append(display, m.DisplayAttr)
		}
	}

	sort.Strings(display)

	attrs := make([]string, len(display))
	for i, column := range display {
		if sdkAttr, ok := attrMap[column]; ok {
			attrs[i] = sdkAttr
		} else {
			attrs[i] = column
		}
	}

	return display, attrs
}

// ShowColumnsForResource is ShowColumns for SDK resource objects. Structs are
// converted with ToResourceMap first; a Resource or plain map is used as is.
func ShowColumnsForResource(v any, columnMap ColumnMap, invisible []string) ([]string, []string, error) {
	resource, err := ToResourceMap(v)
	if err != nil {
		return nil, nil, err
	}
	display, attrs := ShowColumns(resource, columnMap, invisible)
	return display, attrs, nil
}

// ToResourceMap converts an SDK resource into its body attributes. Nil and
// omitempty fields are left out, matching what the API would render.
func ToResourceMap(v any) (Resource, error) {
	switch r := v.(type) {
	case nil:
		return Resource{}, nil
	case Resource:
		return r, nil
	case map[string]any:
		return Resource(r), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}

	var resource Resource
	if err := json.Unmarshal(data, &resource); err != nil {
		return nil, fmt.Errorf("resource %T is not an object: %w", v, err)
	}
	for key, value := range resource {
		if value == nil {
			delete(resource, key)
		}
	}
	return resource, nil
}

// Formatters maps an SDK attribute to the column type used to render it.
type Formatters map[string]func(any) FormattableColumn

// ItemProperties extracts the values of attrs from resource, in order.
// Missing attributes yield an empty string.
func ItemProperties(resource Resource, attrs []string, formatters Formatters) []any {
	values := make([]any, len(attrs))
	for i, attr := range attrs {
		value, ok := resource[attr]
		if !ok {
			values[i] = ""
			continue
		}
		if format, ok := formatters[attr]; ok {
			values[i] = format(value)
			continue
		}
		values[i] = value
	}
	return values
}

// ItemPropertiesForResource is ItemProperties for SDK resource objects
func ItemPropertiesForResource(v any, attrs []string, formatters Formatters) ([]any, error) {
	resource, err := ToResourceMap(v)
	if err != nil {
		return nil, err
	}
	return ItemProperties(resource, attrs, formatters), nil
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// removeColumn drops the first occurrence of name.
func removeColumn(columns []string, name string) []string {
	for i, c := range columns {
		if c == name {
			return append(columns[:i], columns[i+1:]...)
		}
	}
	return columns
}
