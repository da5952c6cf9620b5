// Package action resolves activities into shell command strings.
//
// Action templates use named placeholders in braces:
//
//	pactl set-default-source {source}
//
// Every placeholder must be supplied by the activity's kwargs and every
// kwarg must be used by a placeholder. Doubled braces ({{ and }}) produce
// literal braces. Substitution is strict: there are no format specs,
// attribute lookups or positional fields.
package action

import (
	"fmt"
	"sort"
	"strings"

	"aioniser/internal/cycle"
)

// Template is a parsed action template.
type Template struct {
	raw    string
	parts  []part
	fields []string
}

type part struct {
	literal string
	field   string
}

// Parse parses an action template.
//
// Returns [*MalformedTemplateError] for an unterminated placeholder, an
// empty placeholder, a placeholder containing a brace, or a lone closing
// brace.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}
	seen := make(map[string]bool)

	var lit strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, &MalformedTemplateError{Template: raw, Reason: fmt.Sprintf("unterminated placeholder at offset %d", i)}
			}
			name := raw[i+1 : i+1+end]
			if name == "" {
				return nil, &MalformedTemplateError{Template: raw, Reason: fmt.Sprintf("empty placeholder at offset %d", i)}
			}
			if strings.ContainsRune(name, '{') {
				return nil, &MalformedTemplateError{Template: raw, Reason: fmt.Sprintf("nested brace in placeholder at offset %d", i)}
			}
			if lit.Len() > 0 {
				t.parts = append(t.parts, part{literal: lit.String()})
				lit.Reset()
			}
			t.parts = append(t.parts, part{field: name})
			if !seen[name] {
				seen[name] = true
				t.fields = append(t.fields, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &MalformedTemplateError{Template: raw, Reason: fmt.Sprintf("single '}' at offset %d", i)}
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.parts = append(t.parts, part{literal: lit.String()})
	}
	return t, nil
}

// Expand substitutes kwargs into the template.
//
// Returns [*MissingTemplateParameterError] if a placeholder has no value and
// [*UnusedTemplateParameterError] if a kwarg matches no placeholder.
func (t *Template) Expand(kwargs map[string]string) (string, error) {
	var missing []string
	for _, f := range t.fields {
		if _, ok := kwargs[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return "", &MissingTemplateParameterError{Template: t.raw, Params: missing}
	}

	used := make(map[string]bool, len(t.fields))
	for _, f := range t.fields {
		used[f] = true
	}
	var unused []string
	for k := range kwargs {
		if !used[k] {
			unused = append(unused, k)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return "", &UnusedTemplateParameterError{Template: t.raw, Params: unused}
	}

	var b strings.Builder
	for _, p := range t.parts {
		if p.field != "" {
			b.WriteString(kwargs[p.field])
		} else {
			b.WriteString(p.literal)
		}
	}
	return b.String(), nil
}

// Resolver resolves activities against a set of action templates.
type Resolver struct {
	templates map[string]string
}

// NewResolver creates a [Resolver] for the given action name → template map.
func NewResolver(templates map[string]string) *Resolver {
	return &Resolver{templates: templates}
}

// Resolve returns the command string for a single activity.
//
// Returns [*UnknownActionError] if the action has no template; template
// parse and expansion errors are wrapped with the action name.
func (r *Resolver) Resolve(a cycle.Activity) (string, error) {
	raw, ok := r.templates[a.Action]
	if !ok {
		return "", &UnknownActionError{Action: a.Action}
	}
	t, err := Parse(raw)
	if err != nil {
		return "", fmt.Errorf("action %q: %w", a.Action, err)
	}
	cmd, err := t.Expand(a.Kwargs)
	if err != nil {
		return "", fmt.Errorf("action %q: %w", a.Action, err)
	}
	return cmd, nil
}

// ResolveStep resolves every activity of a step, in order.
func (r *Resolver) ResolveStep(s cycle.Step) ([]string, error) {
	cmds := make([]string, 0, len(s.Activities))
	for _, a := range s.Activities {
		cmd, err := r.Resolve(a)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// ResolveCycle resolves every step of a cycle. The result is indexed by step.
func (r *Resolver) ResolveCycle(c cycle.Cycle) ([][]string, error) {
	out := make([][]string, 0, len(c.Steps))
	for i, s := range c.Steps {
		cmds, err := r.ResolveStep(s)
		if err != nil {
			return nil, fmt.Errorf("cycle %q step %d: %w", c.Name, i, err)
		}
		out = append(out, cmds)
	}
	return out, nil
}
