package source

import (
	"reflect"
	"testing"
)

func TestNormalizeStripsComments(t *testing.T) {
	in := "<?php\n// line\nclass A # hash\n{ /* block\nspanning */ }\n"
	got := Normalize(in)
	want := "<?php\n\nclass A \n{  }\n"
	if got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeKeepsStringLiterals(t *testing.T) {
	in := "$a = '#'; // gone\n$b = \"http://x\"; # gone\n$c = 'it\\'s // kept';\n"
	got := Normalize(in)
	want := "$a = '#'; \n$b = \"http://x\"; \n$c = 'it\\'s // kept';\n"
	if got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"$u = \"http://a\"; // c\n$h = '#'; # d",
		"<?php // a\n/* b */ class A {}",
		"/*/ still comment */ code",
		"a /* x // y */ b # z\n c",
		"/ /* */ / # // \n",
		"text with no comments at all",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNamespace(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"statement", "<?php\nnamespace App\\Models;\nclass A {}", `App\Models`},
		{"braced", "<?php namespace App {\nclass A {}\n}", "App"},
		{"global", "<?php\nclass A {}", ""},
		{"commented out", "<?php\n// namespace Old;\nnamespace New;\n", "New"},
		{"relative marker not a declaration", "<?php\n$x = namespace\\foo();\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewUnit(tt.text).Namespace(); got != tt.want {
				t.Fatalf("Namespace() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeclarationHeader(t *testing.T) {
	text := `<?php
namespace App;

$name = Foo::class;

final class Service extends Base\Model implements
    Contracts\Repo,
    \Countable
{
}
`
	u := NewUnit(text)
	if u.Kind() != KindClass {
		t.Fatalf("Kind() = %q, want class", u.Kind())
	}
	if u.Identifier() != `App\Service` {
		t.Fatalf("Identifier() = %q", u.Identifier())
	}
	h := u.Heritage()
	if !reflect.DeepEqual(h.Extends, []string{`Base\Model`}) {
		t.Fatalf("Extends = %v", h.Extends)
	}
	if !reflect.DeepEqual(h.Implements, []string{`Contracts\Repo`, `\Countable`}) {
		t.Fatalf("Implements = %v", h.Implements)
	}
}

func TestInterfaceExtendsList(t *testing.T) {
	u := NewUnit("<?php\ninterface Both extends First, Second {}\n")
	if u.Kind() != KindInterface {
		t.Fatalf("Kind() = %q", u.Kind())
	}
	want := []string{"First", "Second"}
	if got := u.Parents(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Parents() = %v, want %v", got, want)
	}
}

func TestNoHeritage(t *testing.T) {
	u := NewUnit("<?php\nnamespace App;\nclass Plain {}\n")
	if got := u.Parents(); len(got) != 0 {
		t.Fatalf("Parents() = %v, want none", got)
	}
}

func TestImports(t *testing.T) {
	text := `<?php
namespace App;

use Foo\Bar as Baz;
use Vendor\Lib\{Client, Server as S};
use Plain\One, Plain\Two as Deux;
use function Vendor\helper;
use const Vendor\LIMIT;

class A {
    use SomeTrait;
}
`
	got := NewUnit(text).Imports()
	want := []Import{
		{Path: `Foo\Bar`, Alias: "Baz"},
		{Path: `Vendor\Lib\Client`},
		{Path: `Vendor\Lib\Server`, Alias: "S"},
		{Path: `Plain\One`},
		{Path: `Plain\Two`, Alias: "Deux"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Imports() = %#v, want %#v", got, want)
	}
}

func TestResolveReference(t *testing.T) {
	text := `<?php
namespace App\Http;

use Foo\Bar as Baz;
use Vendor\Contracts\Repo;
use Vendor\Sub;
use \Leading\Slash;

class A {}
`
	u := NewUnit(text)
	tests := []struct {
		token string
		want  string
	}{
		{"Baz", `Foo\Bar`},
		{"Repo", `Vendor\Contracts\Repo`},
		{"Slash", `Leading\Slash`},
		{"Local", `App\Http\Local`},
		{`\Global\Thing`, `Global\Thing`},
		{`\Countable`, "Countable"},
		{`namespace\Sibling`, `App\Http\Sibling`},
		{`namespace\Deep\Child`, `App\Http\Deep\Child`},
		{`Sub\Other`, `Vendor\Sub\Other`},
		{`Contracts\Other`, `Contracts\Other`},
		{`Baz\Inner`, `Foo\Bar\Inner`},
		{`Sub\Deep\Thing`, `Vendor\Sub\Deep\Thing`},
		{`Unknown\Thing`, `Unknown\Thing`},
		{" Spaced ", `App\Http\Spaced`},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := u.ResolveReference(tt.token); got != tt.want {
				t.Fatalf("ResolveReference(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestResolveReferenceGlobalNamespace(t *testing.T) {
	u := NewUnit("<?php\nclass A extends B {}\n")
	if got := u.ResolveReference("B"); got != "B" {
		t.Fatalf("ResolveReference = %q, want B", got)
	}
	if got := u.ResolveReference(`namespace\B`); got != "B" {
		t.Fatalf("marker in global namespace = %q, want B", got)
	}
}

func TestAliasedImportNotReturnedAsAlias(t *testing.T) {
	u := NewUnit("<?php\nnamespace App;\nuse Foo\\Bar as Baz;\nclass A implements Baz {}\n")
	got := u.Parents()
	if !reflect.DeepEqual(got, []string{`Foo\Bar`}) {
		t.Fatalf("Parents() = %v, want [Foo\\Bar]", got)
	}
}

func TestDeclaredMethodsInterface(t *testing.T) {
	text := `<?php
interface Repo
{
    public function find(int $id): ?Model;
    public static function make(
        array $options = array(),
        ?callable $cb = null,
    ): static;
    function &ref();
}
`
	got := NewUnit(text).DeclaredMethods()
	want := []MethodSignature{
		{Name: "find", Declaration: "public function find(int $id): ?Model"},
		{Name: "make", Declaration: "public static function make(array $options = array(), ?callable $cb = null,): static"},
		{Name: "ref", Declaration: "function &ref()"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeclaredMethods() = %#v\nwant %#v", got, want)
	}
}

func TestDeclaredMethodsAbstractClass(t *testing.T) {
	text := `<?php
abstract class Base
{
    abstract protected function foo();
    public abstract function bar(string $a, $b): void;
    public function done() { return 1; }
    // abstract public function commented();
    private function helper(): int;
}
`
	u := NewUnit(text)
	got := u.DeclaredMethods()
	want := []MethodSignature{
		{Name: "foo", Declaration: "protected function foo()"},
		{Name: "bar", Declaration: "public function bar(string $a, $b): void"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeclaredMethods() = %#v\nwant %#v", got, want)
	}

	own := u.OwnMethods()
	if len(own) != 1 || own[0].Name != "done" {
		t.Fatalf("OwnMethods() = %#v, want [done]", own)
	}
	if !u.HasOwnMethod("DONE") {
		t.Fatal("HasOwnMethod should be case-insensitive")
	}
}

func TestMethodSignatureEdgeCases(t *testing.T) {
	text := `<?php
interface Edge
{
    public function a(array $x = array(1, array(2)));
    public function b(string $sep = '#', string $url = "http://example.com"): void;
    public function d(int $n): (A&B)|null;
}

abstract class Impl implements Edge
{
    public function u($url = "http://example.com") {}
}
`
	u := NewUnit(text)
	got := u.DeclaredMethods()
	want := []MethodSignature{
		{Name: "a", Declaration: "public function a(array $x = array(1, array(2)))"},
		{Name: "b", Declaration: `public function b(string $sep = '#', string $url = "http://example.com"): void`},
		{Name: "d", Declaration: "public function d(int $n): (A&B)|null"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeclaredMethods() = %#v\nwant %#v", got, want)
	}
	if !u.HasOwnMethod("u") {
		t.Fatalf("OwnMethods() = %#v, want u", u.OwnMethods())
	}
}

func TestDeclaredMethodsDeepNestingNotRecognised(t *testing.T) {
	text := "<?php\ninterface Deep\n{\n    public function e($x = f(g(h(1))));\n    public function ok();\n}\n"
	got := NewUnit(text).DeclaredMethods()
	if len(got) != 1 || got[0].Name != "ok" {
		t.Fatalf("DeclaredMethods() = %#v, want only ok", got)
	}
}

func TestOwnMethodsMultiline(t *testing.T) {
	text := `<?php
class A extends B
{
    final
    public
    static function build(
        array $items = []
    ): self
    {
        return new self(function ($x) { return $x; });
    }

    public function __construct(private Repo $repo) {}
}
`
	got := NewUnit(text).OwnMethods()
	if len(got) != 2 {
		t.Fatalf("OwnMethods() = %#v, want 2 methods", got)
	}
	if got[0].Name != "build" || got[0].Declaration != "final public static function build(array $items = []): self" {
		t.Fatalf("unexpected first method %#v", got[0])
	}
	if got[1].Name != "__construct" {
		t.Fatalf("unexpected second method %#v", got[1])
	}
}
