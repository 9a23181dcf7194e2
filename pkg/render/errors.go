package render

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound matches every TemplateNotFoundError.
	ErrTemplateNotFound = errors.New("render: template not found")
	// ErrInvalidSource is returned when a Request has no usable Source.
	ErrInvalidSource = errors.New("render: invalid template source")
	// ErrInvalidRequest is returned for Request fields that conflict.
	ErrInvalidRequest = errors.New("render: invalid request")
)

// TemplateNotFoundError reports a template name that could not be located.
// Dir is empty when the lookup went through a caller supplied loader.
type TemplateNotFoundError struct {
	Name string
	Dir  string
}

func (e *TemplateNotFoundError) Error() string {
	if e.Dir == "" {
		return fmt.Sprintf("render: template %q not found", e.Name)
	}
	return fmt.Sprintf("render: template %q not found in %s", e.Name, e.Dir)
}

// Is lets errors.Is(err, ErrTemplateNotFound) match.
func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}
