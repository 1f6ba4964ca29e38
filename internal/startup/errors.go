package startup

import "fmt"

// UnknownSegmentError is returned when a segment name is not registered in
// the catalog.
type UnknownSegmentError struct {
	Name string
}

func (e *UnknownSegmentError) Error() string {
	return fmt.Sprintf("unknown script segment %q", e.Name)
}

// TemplateSyntaxError is returned when a segment template fails to parse.
// Offset is the byte position of the offending tag within the template body.
type TemplateSyntaxError struct {
	Segment string
	Offset  int
	Msg     string
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("segment %q: template syntax error at offset %d: %s", e.Segment, e.Offset, e.Msg)
}

// MissingContextKeyError is returned when a template references a context key
// that was not supplied for the render.
type MissingContextKeyError struct {
	Segment string
	Key     string
}

func (e *MissingContextKeyError) Error() string {
	return fmt.Sprintf("segment %q: missing context key %q", e.Segment, e.Key)
}

// TypeMismatchError is returned when a context value's shape does not match
// what the template expects, e.g. an iteration block bound to a scalar.
type TypeMismatchError struct {
	Segment string
	Key     string
	Want    string
	Got     string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("segment %q: context key %q: expected %s, got %s", e.Segment, e.Key, e.Want, e.Got)
}
