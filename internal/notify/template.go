package notify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Template is one entry of push_templates
type Template struct {
	Enable  bool
	Title   string
	Content string
}

// Templates maps each kind to its template
type Templates map[Kind]Template

// Message is a rendered notification
type Message struct {
	Title   string
	Content string
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// "{{" and "}}" are literal braces
const (
	openEscape  = "\x00"
	closeEscape = "\x01"
)

// TemplateError reports a placeholder with no value
type TemplateError struct {
	Kind         Kind
	Placeholders []string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s references undefined variable(s): %s",
		e.Kind, strings.Join(e.Placeholders, ", "))
}

// Validate checks that every placeholder in the template belongs to kind's
// closed variable set.
func (t Template) Validate(kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown template %q", kind)
	}

	allowed := make(map[string]bool)
	for _, v := range AllowedVariables(kind) {
		allowed[v] = true
	}

	var unknown []string
	for _, name := range placeholders(t.Title + "\n" + t.Content) {
		if !allowed[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &TemplateError{Kind: kind, Placeholders: unknown}
	}
	return nil
}

// Validate checks every template
func (ts Templates) Validate() error {
	for _, kind := range Kinds {
		if t, ok := ts[kind]; ok {
			if err := t.Validate(kind); err != nil {
				return err
			}
		}
	}
	for kind := range ts {
		if !kind.Valid() {
			return fmt.Errorf("unknown template %q", kind)
		}
	}
	return nil
}

// Render substitutes vars into the template
func (t Template) Render(kind Kind, vars map[string]string) (Message, error) {
	title, missingTitle := substitute(t.Title, vars)
	content, missingContent := substitute(t.Content, vars)

	missing := append(missingTitle, missingContent...)
	if len(missing) > 0 {
		return Message{}, &TemplateError{Kind: kind, Placeholders: dedupe(missing)}
	}
	return Message{Title: title, Content: content}, nil
}

func substitute(text string, vars map[string]string) (string, []string) {
	escaped := strings.NewReplacer("{{", openEscape, "}}", closeEscape).Replace(text)

	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})

	return strings.NewReplacer(openEscape, "{", closeEscape, "}").Replace(out), missing
}

func placeholders(text string) []string {
	escaped := strings.NewReplacer("{{", openEscape, "}}", closeEscape).Replace(text)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(escaped, -1) {
		names = append(names, m[1])
	}
	return dedupe(names)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
