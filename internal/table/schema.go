package table

import (
	"errors"
	"fmt"
)

// SchemaError reports a column the cleaning logic needs that the uploaded
// dataset does not carry. Column-position guessing is deliberately not
// attempted; the caller surfaces the dataset and column names to the user.
type SchemaError struct {
	Dataset string
	Column  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %s: required column %q is missing", e.Dataset, e.Column)
}

// Require validates that every named column exists in t. All missing
// columns are reported, joined into a single error.
func Require(t *Table, dataset string, columns ...string) error {
	var errs []error
	for _, c := range columns {
		if !t.HasColumn(c) {
			errs = append(errs, &SchemaError{Dataset: dataset, Column: c})
		}
	}
	return errors.Join(errs...)
}
