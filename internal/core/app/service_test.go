package app

import (
	"strings"
	"testing"

	domainerrors "implementor/internal/core/errors"
	"implementor/internal/engine/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stubDecls = []source.MethodSignature{
	{Name: "save", Declaration: "public function save(array $data): bool"},
	{Name: "id", Declaration: "public function id(): int"},
}

func TestRenderStubs(t *testing.T) {
	got := RenderStubs(stubDecls[:1], "    ", `throw new \Exception("Method not implemented");`)
	want := "\n    public function save(array $data): bool" +
		"\n    {" +
		"\n        throw new \\Exception(\"Method not implemented\");" +
		"\n    }" +
		"\n    "
	assert.Equal(t, want, got)
	assert.Empty(t, RenderStubs(nil, "\t", "x"))
}

func TestSelectMethods(t *testing.T) {
	all, err := SelectMethods(stubDecls, nil)
	require.NoError(t, err)
	assert.Equal(t, stubDecls, all)

	picked, err := SelectMethods(stubDecls, []string{"ID"})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, "id", picked[0].Name)

	_, err = SelectMethods(stubDecls, []string{"save", "load"})
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
	assert.Contains(t, err.Error(), "load")
}

func TestInsertStubs(t *testing.T) {
	text := "<?php\nclass A implements B\n{\n}\n"

	after, err := InsertStubs(text, 3, "STUB\n")
	require.NoError(t, err)
	assert.Equal(t, "<?php\nclass A implements B\n{\nSTUB\n}\n", after)

	beforeBrace, err := InsertStubs(text, 0, "STUB")
	require.NoError(t, err)
	assert.Equal(t, "<?php\nclass A implements B\n{\nSTUB}\n", beforeBrace)

	lastLine, err := InsertStubs("a\nb", 2, "X")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nX", lastLine)

	_, err = InsertStubs(text, 9, "STUB")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))

	_, err = InsertStubs("<?php\n", 0, "STUB")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "closing brace"))
}
