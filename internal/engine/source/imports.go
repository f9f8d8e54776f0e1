package source

import (
	"regexp"
	"strings"
)

// Import is one imported name. Alias is empty when the statement has no `as`.
type Import struct {
	Path  string
	Alias string
}

// Name is the local name the import introduces.
func (i Import) Name() string {
	if i.Alias != "" {
		return i.Alias
	}
	return lastSegment(i.Path)
}

var (
	usePattern     = regexp.MustCompile(`(?i)(?:^|[\s;}])use\s+([^;(][^;]*);`)
	useAliasClause = regexp.MustCompile(`(?i)^(\S+)(?:\s+as\s+(\S+))?$`)
)

// Imports lists the file-level use statements that appear before the type
// declaration. Function and constant imports are skipped; group and
// comma-separated forms are expanded.
func (u *Unit) Imports() []Import {
	head := u.text
	if decl, ok := u.declaration(); ok {
		head = u.text[:decl.start]
	}
	var out []Import
	for _, m := range usePattern.FindAllStringSubmatch(head, -1) {
		out = append(out, parseUseStatement(m[1])...)
	}
	return out
}

func parseUseStatement(stmt string) []Import {
	stmt = strings.TrimSpace(stmt)
	lower := strings.ToLower(stmt)
	if strings.HasPrefix(lower, "function ") || strings.HasPrefix(lower, "const ") {
		return nil
	}

	base := ""
	body := stmt
	if open := strings.Index(stmt, "{"); open >= 0 {
		end := strings.LastIndex(stmt, "}")
		if end < open {
			return nil
		}
		base = strings.TrimRight(strings.TrimSpace(stmt[:open]), `\`)
		body = stmt[open+1 : end]
	}

	var out []Import
	for _, part := range strings.Split(body, ",") {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		m := useAliasClause.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		path := m[1]
		if base != "" {
			path = base + `\` + path
		}
		path = formatNamespace(path)
		if path == "" {
			continue
		}
		out = append(out, Import{Path: path, Alias: m[2]})
	}
	return out
}

// ResolveReference turns a class reference written in this unit into a
// fully-qualified identifier.
//
// A leading separator marks the reference as already qualified. A qualified
// reference beginning with the `namespace` marker is rebased onto the unit's
// namespace; otherwise its prefix is looked up among the imports and the
// reference is taken verbatim when nothing matches. A bare name resolves to an
// aliased import, then a plain import ending in that name, then the unit's
// namespace.
func (u *Unit) ResolveReference(token string) string {
	token = strings.Join(strings.Fields(token), "")
	if token == "" {
		return ""
	}
	if strings.Contains(token, `\`) {
		return formatNamespace(u.resolveQualified(token))
	}
	return formatNamespace(u.resolveBare(token))
}

func (u *Unit) resolveQualified(token string) string {
	if strings.HasPrefix(token, `\`) {
		return token
	}
	idx := strings.LastIndex(token, `\`)
	prefix, rest := token[:idx], token[idx:]

	first := prefix
	if i := strings.Index(prefix, `\`); i >= 0 {
		first = prefix[:i]
	}
	if strings.EqualFold(first, "namespace") {
		return u.Namespace() + prefix[len(first):] + rest
	}

	imports := u.Imports()
	for _, imp := range imports {
		if imp.Alias != "" {
			if imp.Alias == prefix {
				return imp.Path + rest
			}
			continue
		}
		if imp.Path == prefix || strings.HasSuffix(imp.Path, `\`+prefix) {
			return imp.Path + rest
		}
	}
	// A multi-segment prefix whose first segment names an import is relative
	// to that import, as PHP resolves it.
	if first != prefix {
		for _, imp := range imports {
			if imp.Name() == first {
				return imp.Path + prefix[len(first):] + rest
			}
		}
	}
	return token
}

func (u *Unit) resolveBare(token string) string {
	imports := u.Imports()
	for _, imp := range imports {
		if imp.Alias == token {
			return imp.Path
		}
	}
	for _, imp := range imports {
		if imp.Alias == "" && lastSegment(imp.Path) == token {
			return imp.Path
		}
	}
	ns := u.Namespace()
	if ns == "" {
		return token
	}
	return ns + `\` + token
}

func formatNamespace(name string) string {
	for strings.Contains(name, `\\`) {
		name = strings.ReplaceAll(name, `\\`, `\`)
	}
	return strings.TrimPrefix(name, `\`)
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, `\`); i >= 0 {
		return name[i+1:]
	}
	return name
}
