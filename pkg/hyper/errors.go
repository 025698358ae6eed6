package hyper

import "fmt"

// SchemaError reports a missing or malformed field in a hyperparameter
// document. Field holds the dotted path of the offending key.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("hyper: field %q: %s", e.Field, e.Reason)
}

func schemaErrorf(field, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedOptionError reports a class_name that the catalog does not
// recognize for the given component kind.
type UnsupportedOptionError struct {
	Kind string
	Name string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("hyper: unsupported %s %q", e.Kind, e.Name)
}
