package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds shared by the pipeline stages. Callers match them
// with errors.Is.
var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrSourceRead        = errors.New("source read failed")
	ErrSchema            = errors.New("schema error")
	ErrEmptyDataset      = errors.New("empty dataset")
	ErrNoMetricsComputed = errors.New("no metrics computed")
)

// SchemaError reports required fields missing from a row schema.
type SchemaError struct {
	Stage   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required fields [%s]", e.Stage, strings.Join(e.Missing, ", "))
}

// Unwrap makes errors.Is(err, ErrSchema) hold.
func (e *SchemaError) Unwrap() error { return ErrSchema }

// EmptyDatasetError reports that no usable rows were left at a stage.
func EmptyDatasetError(stage, reason string) error {
	return fmt.Errorf("%s: %w: %s", stage, ErrEmptyDataset, reason)
}
