package source

import (
	"regexp"
	"strings"
)

// Parameter lists may nest parentheses two levels deep, as in
// `array $x = array(1, array(2))`. Deeper nesting is not recognised.
const (
	methodModifiers = `((?:(?:public|protected|private|static|abstract|final)\s+)*)`
	methodParens    = `\((?:[^(){}]|\([^(){}]*\))*\)`
	methodHead      = `(?:^|\s)` + methodModifiers + `function\s+&?\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(((?:[^(){}]|` + methodParens + `)*)\)`
	methodReturn    = `(?:\s*:\s*[?A-Za-z0-9_\\|&()\s]+?)?`
)

var (
	declaredMethodPattern = regexp.MustCompile(`(?i)` + methodHead + methodReturn + `\s*;`)
	ownMethodPattern      = regexp.MustCompile(`(?i)` + methodHead + methodReturn + `\s*\{`)
	abstractKeyword       = regexp.MustCompile(`(?i)\babstract\s+`)
)

// DeclaredMethods lists the methods the unit obliges implementers to define:
// every bodiless method of an interface, or the abstract methods of a class
// or trait.
func (u *Unit) DeclaredMethods() []MethodSignature {
	kind := u.Kind()
	var out []MethodSignature
	for _, m := range declaredMethodPattern.FindAllStringSubmatchIndex(u.text, -1) {
		modifiers := u.text[m[2]:m[3]]
		if kind != KindInterface && !abstractKeyword.MatchString(modifiers) {
			continue
		}
		out = append(out, MethodSignature{
			Name:        u.text[m[4]:m[5]],
			Declaration: cleanDeclaration(modifiers, u.text[m[3]:m[1]]),
		})
	}
	return out
}

// OwnMethods lists the methods that have a body in this unit.
func (u *Unit) OwnMethods() []MethodSignature {
	var out []MethodSignature
	for _, m := range ownMethodPattern.FindAllStringSubmatchIndex(u.text, -1) {
		out = append(out, MethodSignature{
			Name:        u.text[m[4]:m[5]],
			Declaration: cleanDeclaration(u.text[m[2]:m[3]], u.text[m[3]:m[1]]),
		})
	}
	return out
}

// HasOwnMethod reports whether name has a body in this unit. PHP method names
// are case-insensitive.
func (u *Unit) HasOwnMethod(name string) bool {
	for _, m := range u.OwnMethods() {
		if strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

// cleanDeclaration drops the abstract modifier and the terminator, then
// collapses whitespace so multi-line signatures render on one line.
func cleanDeclaration(modifiers, rest string) string {
	modifiers = abstractKeyword.ReplaceAllString(modifiers, "")
	rest = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), ";{"))
	decl := strings.Join(strings.Fields(modifiers+" "+rest), " ")
	decl = strings.ReplaceAll(decl, "( ", "(")
	decl = strings.ReplaceAll(decl, " )", ")")
	decl = strings.ReplaceAll(decl, " ,", ",")
	return decl
}
