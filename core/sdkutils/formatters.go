package sdkutils

import (
	"fmt"
	"reflect"
	"strings"
)

// FormattableColumn renders a raw attribute value for display.
// HumanReadable returns nil when there is nothing to show.
type FormattableColumn interface {
	HumanReadable() *string
	MachineReadable() any
}

type baseColumn struct {
	value any
}

func (c baseColumn) MachineReadable() any {
	return c.value
}

// ListOfIDsColumn renders a list of objects as "[id1,id2]".
type ListOfIDsColumn struct{ baseColumn }

// NewListOfIDsColumn wraps value in a ListOfIDsColumn.
func NewListOfIDsColumn(value any) FormattableColumn {
	return ListOfIDsColumn{baseColumn{value}}
}

func (c ListOfIDsColumn) HumanReadable() *string {
	if isNil(c.value) {
		return nil
	}
	s := "[" + strings.Join(collectIDs(c.value), ",") + "]"
	return &s
}

// ListOfIDsColumnBR renders the ids of a list of objects one per line.
type ListOfIDsColumnBR struct{ baseColumn }

func NewListOfIDsColumnBR(value any) FormattableColumn {
	return ListOfIDsColumnBR{baseColumn{value}}
}

func (c ListOfIDsColumnBR) HumanReadable() *string {
	if isNil(c.value) {
		return nil
	}
	s := strings.Join(collectIDs(c.value), "\n")
	return &s
}

// ListOfDictColumn renders every element of a list on its own line
type ListOfDictColumn struct{ baseColumn }

func NewListOfDictColumn(value any) FormattableColumn {
	return ListOfDictColumn{baseColumn{value}}
}

func (c ListOfDictColumn) HumanReadable() *string {
	if isNil(c.value) {
		return nil
	}
	items := listItems(c.value)
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprint(item))
	}
	s := strings.Join(lines, "\n")
	return &s
}

// DictListColumn renders a mapping (string keys, list values) unchanged.
type DictListColumn struct{ baseColumn }

func NewDictListColumn(value any) FormattableColumn {
	return DictListColumn{baseColumn{value}}
}

func (c DictListColumn) HumanReadable() *string {
	if isNil(c.value) {
		return nil
	}
	s := fmt.Sprint(c.value)
	return &s
}

// collectIDs returns the "id" of every element that has one.
func collectIDs(value any) []string {
	ids := []string{}
	for _, item := range listItems(value) {
		if id, ok := lookupID(item); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func lookupID(item any) (string, bool) {
	switch m := item.(type) {
	case map[string]any:
		id, ok := m["id"]
		if !ok {
			return "", false
		}
		return fmt.Sprint(id), true
	case map[string]string:
		id, ok := m["id"]
		return id, ok
	case Resource:
		return lookupID(map[string]any(m))
	}

	// SDK structs and pointers to them
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return "", false
	}
	resource, err := ToResourceMap(item)
	if err != nil {
		return "", false
	}
	// untagged fields keep their Go name
	for key, id := range resource {
		if strings.EqualFold(key, "id") {
			return fmt.Sprint(id), true
		}
	}
	return "", false
}

// listItems flattens any slice or array into []any. Other values yield nil.
func listItems(value any) []any {
	if items, ok := value.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
