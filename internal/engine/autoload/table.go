// Package autoload maps fully-qualified PHP identifiers to files through an
// ordered prefix table with a glob-based classmap fallback.
package autoload

import (
	"path"
	"strings"
)

// DefaultExtension is appended to mapped paths when a table has none.
const DefaultExtension = ".php"

// Root maps a namespace prefix to a directory, relative to the workspace root.
type Root struct {
	Prefix string
	Dir    string
}

// ClassmapRoot lists the glob roots searched for identifiers under Prefix.
type ClassmapRoot struct {
	Prefix string
	Globs  []string
}

// Table is an immutable autoload snapshot. Build one with a Builder.
type Table struct {
	roots     []Root
	classmap  []ClassmapRoot
	extension string
}

// Roots returns a copy of the prefix mappings in table order.
func (t *Table) Roots() []Root {
	if t == nil {
		return nil
	}
	return append([]Root(nil), t.roots...)
}

// Classmap returns a copy of the classmap entries in table order.
func (t *Table) Classmap() []ClassmapRoot {
	if t == nil {
		return nil
	}
	out := make([]ClassmapRoot, len(t.classmap))
	for i, c := range t.classmap {
		out[i] = ClassmapRoot{Prefix: c.Prefix, Globs: append([]string(nil), c.Globs...)}
	}
	return out
}

// Extension is the source file extension, including the dot.
func (t *Table) Extension() string {
	if t == nil || t.extension == "" {
		return DefaultExtension
	}
	return t.extension
}

// Len reports the number of prefix and classmap entries.
func (t *Table) Len() (roots, classmap int) {
	if t == nil {
		return 0, 0
	}
	return len(t.roots), len(t.classmap)
}

// MapPrefix applies the first prefix mapping that starts identifier and
// returns the workspace-relative file path.
func (t *Table) MapPrefix(identifier string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, r := range t.roots {
		if !strings.HasPrefix(identifier, r.Prefix) {
			continue
		}
		rest := strings.ReplaceAll(identifier[len(r.Prefix):], `\`, "/")
		p := rest
		if r.Dir != "" {
			p = r.Dir + "/" + rest
		}
		for strings.Contains(p, "//") {
			p = strings.ReplaceAll(p, "//", "/")
		}
		return path.Clean(p) + t.Extension(), true
	}
	return "", false
}

// ClassmapFor returns the first classmap entry whose prefix starts identifier.
func (t *Table) ClassmapFor(identifier string) (ClassmapRoot, bool) {
	if t == nil {
		return ClassmapRoot{}, false
	}
	for _, c := range t.classmap {
		if strings.HasPrefix(identifier, c.Prefix) {
			return ClassmapRoot{Prefix: c.Prefix, Globs: append([]string(nil), c.Globs...)}, true
		}
	}
	return ClassmapRoot{}, false
}

// Builder accumulates table entries with ordered-map semantics: setting an
// existing prefix replaces its value in place, new prefixes are appended.
type Builder struct {
	roots     []Root
	rootIdx   map[string]int
	classmap  []ClassmapRoot
	classIdx  map[string]int
	extension string
}

func NewBuilder() *Builder {
	return &Builder{
		rootIdx:  make(map[string]int),
		classIdx: make(map[string]int),
	}
}

// SetExtension overrides the source file extension.
func (b *Builder) SetExtension(ext string) *Builder {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	b.extension = ext
	return b
}

func (b *Builder) extensionOrDefault() string {
	if b.extension == "" {
		return DefaultExtension
	}
	return b.extension
}

// AddRoot sets prefix to dir.
func (b *Builder) AddRoot(prefix, dir string) *Builder {
	if i, ok := b.rootIdx[prefix]; ok {
		b.roots[i].Dir = dir
		return b
	}
	b.rootIdx[prefix] = len(b.roots)
	b.roots = append(b.roots, Root{Prefix: prefix, Dir: dir})
	return b
}

// AddClassmap sets the glob roots searched for prefix.
func (b *Builder) AddClassmap(prefix string, globs ...string) *Builder {
	globs = append([]string(nil), globs...)
	if i, ok := b.classIdx[prefix]; ok {
		b.classmap[i].Globs = globs
		return b
	}
	b.classIdx[prefix] = len(b.classmap)
	b.classmap = append(b.classmap, ClassmapRoot{Prefix: prefix, Globs: globs})
	return b
}

// Merge adds every entry of t in order.
func (b *Builder) Merge(t *Table) *Builder {
	for _, r := range t.Roots() {
		b.AddRoot(r.Prefix, r.Dir)
	}
	for _, c := range t.Classmap() {
		b.AddClassmap(c.Prefix, c.Globs...)
	}
	return b
}

// Build returns an immutable table. The builder may be reused afterwards.
func (b *Builder) Build() *Table {
	t := &Table{
		roots:     append([]Root(nil), b.roots...),
		classmap:  make([]ClassmapRoot, len(b.classmap)),
		extension: b.extension,
	}
	for i, c := range b.classmap {
		t.classmap[i] = ClassmapRoot{Prefix: c.Prefix, Globs: append([]string(nil), c.Globs...)}
	}
	return t
}
