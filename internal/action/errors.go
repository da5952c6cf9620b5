package action

import (
	"fmt"
	"strings"
)

// UnknownActionError indicates an activity names an action that has no
// template.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Action)
}

// MissingTemplateParameterError indicates placeholders with no supplied value.
type MissingTemplateParameterError struct {
	Template string
	Params   []string
}

func (e *MissingTemplateParameterError) Error() string {
	return fmt.Sprintf("missing template parameter(s) %s for %q", strings.Join(e.Params, ", "), e.Template)
}

// UnusedTemplateParameterError indicates kwargs that match no placeholder.
type UnusedTemplateParameterError struct {
	Template string
	Params   []string
}

func (e *UnusedTemplateParameterError) Error() string {
	return fmt.Sprintf("unused template parameter(s) %s for %q", strings.Join(e.Params, ", "), e.Template)
}

// MalformedTemplateError indicates a template that cannot be parsed.
type MalformedTemplateError struct {
	Template string
	Reason   string
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed template %q: %s", e.Template, e.Reason)
}
