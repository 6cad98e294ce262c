package tools

import (
	"fmt"
	"regexp"
)

// ToolParameter describes one sandboxed-tool command parameter: its name,
// whether a value is mandatory, and a default substituted when the caller
// doesn't supply one.
type ToolParameter struct {
	Name     string
	Required bool
	Default  string
}

// placeholderRe matches both <param> and {param} placeholder spellings a
// command template may use.
var placeholderRe = regexp.MustCompile(`<(\w+)>|\{(\w+)\}`)

// RenderCommandTemplate substitutes <param>/{param} placeholders in template
// with values from args, falling back to each parameter's default when args
// doesn't supply one. A required parameter with neither an arg nor a default
// is an error. The renderer never shells out or interpolates via a shell —
// it is pure string substitution; the result is handed to the container
// executor as-is.
func RenderCommandTemplate(template string, params []ToolParameter, args map[string]string) (string, error) {
	defaults := make(map[string]string, len(params))
	required := make(map[string]bool, len(params))
	for _, p := range params {
		defaults[p.Name] = p.Default
		required[p.Name] = p.Required
	}

	var renderErr error
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if v, ok := args[name]; ok && v != "" {
			return v
		}
		if d, ok := defaults[name]; ok && d != "" {
			return d
		}
		if required[name] {
			renderErr = fmt.Errorf("template render: missing required parameter %q", name)
			return match
		}
		return ""
	})
	if renderErr != nil {
		return "", renderErr
	}
	return rendered, nil
}
