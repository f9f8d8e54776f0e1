// Package source recognizes the structure of a single PHP file (namespace,
// imports, class header and method declarations) with lightweight pattern
// matching over comment-stripped text.
package source

import (
	"regexp"
	"strings"
)

// Kind is the keyword of the first class-like declaration in a unit.
type Kind string

const (
	KindNone      Kind = ""
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindTrait     Kind = "trait"
	KindEnum      Kind = "enum"
)

// MethodSignature identifies a method by name; Declaration is the cleaned
// header text ready to receive a body.
type MethodSignature struct {
	Name        string `json:"name"`
	Declaration string `json:"declaration"`
}

// Heritage holds the raw reference tokens of a declaration's extends and
// implements clauses, in source order.
type Heritage struct {
	Extends    []string
	Implements []string
}

// Unit is an immutable view over one file's normalized text.
type Unit struct {
	path string
	text string
}

type declaration struct {
	kind   Kind
	name   string
	clause string
	start  int
}

var (
	namespacePattern   = regexp.MustCompile(`(?i)(?:^|[\s;}])namespace\s+([A-Za-z_\\][A-Za-z0-9_\\]*)\s*[;{]`)
	declarationPattern = regexp.MustCompile(`(?i)(?:^|[^\w$:>])(?:(?:abstract|final|readonly)\s+)*(class|interface|trait|enum)\s+([A-Za-z_][A-Za-z0-9_]*)([^{;]*)\{`)
	extendsPattern     = regexp.MustCompile(`(?is)\bextends\s+(.*?)\s*(?:\bimplements\b|$)`)
	implementsPattern  = regexp.MustCompile(`(?is)\bimplements\s+(.*)$`)
)

// NewUnit normalizes text and wraps it.
func NewUnit(text string) *Unit {
	return &Unit{text: Normalize(text)}
}

// NewUnitAt is NewUnit for text read from path.
func NewUnitAt(path, text string) *Unit {
	return &Unit{path: path, text: Normalize(text)}
}

// Path is the file the unit was read from, empty for editor buffers.
func (u *Unit) Path() string { return u.path }

// Text returns the normalized text.
func (u *Unit) Text() string { return u.text }

// Namespace returns the declared namespace, or "" for the global namespace.
func (u *Unit) Namespace() string {
	m := namespacePattern.FindStringSubmatch(u.text)
	if m == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(m[1]), `\`)
}

// Kind reports whether the unit declares a class, interface, trait or enum.
func (u *Unit) Kind() Kind {
	decl, ok := u.declaration()
	if !ok {
		return KindNone
	}
	return decl.kind
}

// Name is the short name of the first declared class-like type.
func (u *Unit) Name() string {
	decl, _ := u.declaration()
	return decl.name
}

// Identifier is the fully-qualified name of the declared type.
func (u *Unit) Identifier() string {
	decl, ok := u.declaration()
	if !ok {
		return ""
	}
	ns := u.Namespace()
	if ns == "" {
		return decl.name
	}
	return ns + `\` + decl.name
}

// Heritage returns the extends and implements tokens with whitespace removed.
func (u *Unit) Heritage() Heritage {
	decl, ok := u.declaration()
	if !ok {
		return Heritage{}
	}
	var h Heritage
	if m := extendsPattern.FindStringSubmatch(decl.clause); m != nil {
		h.Extends = splitReferenceList(m[1])
	}
	if m := implementsPattern.FindStringSubmatch(decl.clause); m != nil {
		h.Implements = splitReferenceList(m[1])
	}
	return h
}

// Parents resolves the heritage tokens to fully-qualified identifiers,
// extends targets first.
func (u *Unit) Parents() []string {
	h := u.Heritage()
	parents := make([]string, 0, len(h.Extends)+len(h.Implements))
	for _, token := range append(h.Extends, h.Implements...) {
		if id := u.ResolveReference(token); id != "" {
			parents = append(parents, id)
		}
	}
	return parents
}

func (u *Unit) declaration() (declaration, bool) {
	for _, m := range declarationPattern.FindAllStringSubmatchIndex(u.text, -1) {
		name := u.text[m[4]:m[5]]
		switch strings.ToLower(name) {
		case "extends", "implements":
			continue
		}
		return declaration{
			kind:   Kind(strings.ToLower(u.text[m[2]:m[3]])),
			name:   name,
			clause: u.text[m[6]:m[7]],
			start:  m[2],
		}, true
	}
	return declaration{}, false
}

func splitReferenceList(list string) []string {
	collapsed := strings.Join(strings.Fields(list), "")
	if collapsed == "" {
		return nil
	}
	var out []string
	for _, token := range strings.Split(collapsed, ",") {
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}
