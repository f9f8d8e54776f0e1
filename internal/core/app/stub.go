package app

import (
	"fmt"
	"strings"

	domainerrors "implementor/internal/core/errors"
	"implementor/internal/engine/source"
)

// RenderStubs renders one method body per declaration. Each stub opens and
// closes with a newline plus indent so consecutive stubs line up when the
// result is inserted inside a class body.
func RenderStubs(decls []source.MethodSignature, indent, body string) string {
	var sb strings.Builder
	for _, d := range decls {
		sb.WriteString("\n" + indent + d.Declaration)
		sb.WriteString("\n" + indent + "{")
		sb.WriteString("\n" + indent + indent + body)
		sb.WriteString("\n" + indent + "}")
		sb.WriteString("\n" + indent)
	}
	return sb.String()
}

// Stubs renders decls with the configured body and indent.
func (a *App) Stubs(decls []source.MethodSignature) string {
	cfg := a.currentConfig()
	return RenderStubs(decls, cfg.Stub.Indent, cfg.Stub.Body)
}

// SelectMethods keeps the declarations named in names, compared
// case-insensitively, in declaration order. An empty names selects all.
func SelectMethods(decls []source.MethodSignature, names []string) ([]source.MethodSignature, error) {
	if len(names) == 0 {
		return decls, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	var out []source.MethodSignature
	for _, d := range decls {
		key := strings.ToLower(d.Name)
		if wanted[key] {
			out = append(out, d)
			delete(wanted, key)
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, n := range names {
			if wanted[strings.ToLower(strings.TrimSpace(n))] {
				missing = append(missing, n)
			}
		}
		return nil, domainerrors.New(domainerrors.CodeValidationError,
			fmt.Sprintf("not an outstanding method: %s", strings.Join(missing, ", ")))
	}
	return out, nil
}

// InsertStubs places stubs after the given 1-based line of text. A line of
// zero inserts before the last closing brace, which closes the class body
// in a single-class file.
func InsertStubs(text string, line int, stubs string) (string, error) {
	if line < 0 {
		return "", domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf("invalid line %d", line))
	}
	if line == 0 {
		idx := strings.LastIndex(text, "}")
		if idx < 0 {
			return "", domainerrors.New(domainerrors.CodeValidationError, "no closing brace to insert before")
		}
		return text[:idx] + stubs + text[idx:], nil
	}

	offset := 0
	for n := 1; n <= line; n++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			if n == line && offset < len(text) {
				return text + "\n" + stubs, nil
			}
			return "", domainerrors.New(domainerrors.CodeValidationError,
				fmt.Sprintf("line %d is past the end of the file", line))
		}
		offset += next + 1
	}
	return text[:offset] + stubs + text[offset:], nil
}
