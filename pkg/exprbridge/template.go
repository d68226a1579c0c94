package exprbridge

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// TemplateEvaluator is the default, minimal Evaluator: expressions are
// Go text/template strings (e.g. "{{._input}}{{index ._vars 0}}" rendered against env),
// and step bodies are executed as a sequence of `name = template` lines,
// each producing one env delta entry. It is intentionally small — sandboxed
// enough for the test suite and for workflows that don't need a general
// expression language — and exists purely behind the Evaluator interface so
// it can be swapped for CELEvaluator (cel.go) or a real sandboxed language
// runtime without touching the rest of the engine.
type TemplateEvaluator struct{}

func NewTemplateEvaluator() *TemplateEvaluator { return &TemplateEvaluator{} }

func (e *TemplateEvaluator) Eval(_ context.Context, expr string, env Env) (interface{}, error) {
	tmpl, err := template.New("expr").Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("exprbridge: parse %q: %w", expr, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}(env)); err != nil {
		return nil, fmt.Errorf("exprbridge: eval %q: %w", expr, err)
	}
	return buf.String(), nil
}

// ExecBody parses `name = expr` lines (blank lines and `#`-comments
// ignored) and evaluates each expr against the accumulating environment,
// returning only the delta.
func (e *TemplateEvaluator) ExecBody(ctx context.Context, body string, env Env) (Env, error) {
	delta := Env{}
	acc := env
	for _, line := range splitLines(body) {
		line = trimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		name, expr, ok := splitAssignment(line)
		if !ok {
			continue
		}
		val, err := e.Eval(ctx, expr, acc)
		if err != nil {
			return nil, err
		}
		delta[name] = val
		acc = acc.Merge(Env{name: val})
	}
	return delta, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t' || s[j-1] == '\r') {
		j--
	}
	return s[i:j]
}

func splitAssignment(line string) (name, expr string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == '=' {
			return trimSpace(line[:i]), trimSpace(line[i+1:]), true
		}
	}
	return "", "", false
}
