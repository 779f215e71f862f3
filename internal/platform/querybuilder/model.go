package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// InsertModel builds an INSERT for every exported field of model carrying a
// db tag. The suffix commonly holds an ON CONFLICT clause.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", nil, fmt.Errorf("model cannot be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", nil, fmt.Errorf("model must be struct")
	}

	ins := InsertInto(table)
	var cols []string
	var vals []any
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		col, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, v.Field(i).Interface())
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("model has no db columns")
	}
	return ins.Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}
