package autoload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	domainerrors "implementor/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestLocatorPrefixMapping(t *testing.T) {
	root := t.TempDir()
	full := writeFile(t, root, "src/Contracts/Repo.php", "<?php\nnamespace App\\Contracts;\ninterface Repo {}\n")

	table := NewBuilder().AddRoot(`App\`, "src/").Build()
	locator, err := NewLocator(root, StaticTable{T: table})
	require.NoError(t, err)

	unit, err := locator.Locate(context.Background(), `App\Contracts\Repo`)
	require.NoError(t, err)
	assert.Equal(t, full, unit.Path())
	assert.Equal(t, `App\Contracts\Repo`, unit.Identifier())
}

func TestLocatorPrefixMissingFileIsNotFound(t *testing.T) {
	root := t.TempDir()
	table := NewBuilder().AddRoot(`App\`, "src").AddClassmap(`App\`, "lib").Build()
	writeFile(t, root, "lib/Gone.php", "<?php\nnamespace App;\nclass Gone {}\n")
	locator, err := NewLocator(root, StaticTable{T: table})
	require.NoError(t, err)

	// a matching prefix suppresses the classmap fallback
	_, err = locator.Locate(context.Background(), `App\Gone`)
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocatorClassmapChecksNamespace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/a/Widget.php", "<?php\nnamespace Other;\nclass Widget {}\n")
	want := writeFile(t, root, "lib/b/Widget.php", "<?php\n// namespace Other;\nnamespace Legacy\\Ui;\nclass Widget {}\n")

	table := NewBuilder().AddClassmap(`Legacy\`, "lib/").Build()
	locator, err := NewLocator(root, StaticTable{T: table})
	require.NoError(t, err)

	unit, err := locator.Locate(context.Background(), `Legacy\Ui\Widget`)
	require.NoError(t, err)
	assert.Equal(t, want, unit.Path())
}

func TestLocatorClassmapFileRootAndExcludes(t *testing.T) {
	root := t.TempDir()
	single := writeFile(t, root, "legacy/Single.php", "<?php\nclass Single {}\n")
	writeFile(t, root, "lib/cache/Cached.php", "<?php\nclass Cached {}\n")

	table := NewBuilder().AddClassmap("", "legacy/Single.php", "lib").Build()
	locator, err := NewLocator(root, StaticTable{T: table}, WithExcludeDirs("cach*"))
	require.NoError(t, err)

	unit, err := locator.Locate(context.Background(), "Single")
	require.NoError(t, err)
	assert.Equal(t, single, unit.Path())

	_, err = locator.Locate(context.Background(), "Cached")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))
}

func TestLocatorClassmapCandidatesMatchLiterally(t *testing.T) {
	root := t.TempDir()
	plain := writeFile(t, root, "lib/a/Widget.php", "<?php\nclass Widget {}\n")
	odd := writeFile(t, root, "lib/b/Odd[1]{x}*.php", "<?php\nclass Odd {}\n")
	writeFile(t, root, "lib/b/Odd1x.php", "<?php\nclass Odd1x {}\n")
	writeFile(t, root, "lib/b/Odd1{x}yz.php", "<?php\nclass Other {}\n")

	locator, err := NewLocator(root, NewHolder(nil))
	require.NoError(t, err)

	got, err := locator.candidates("lib/", "Widget.php", ".php")
	require.NoError(t, err)
	assert.Equal(t, []string{plain}, got)

	got, err = locator.candidates("lib/", "Odd[1]{x}*.php", ".php")
	require.NoError(t, err)
	assert.Equal(t, []string{odd}, got)
}

func TestEscapeGlobMeta(t *testing.T) {
	assert.Equal(t, "Widget.php", escapeGlobMeta("Widget.php"))
	assert.Equal(t, `a\*b\?c\[d\]e\{f\}g\\h`, escapeGlobMeta(`a*b?c[d]e{f}g\h`))
}

func TestLocatorNoStrategyMatches(t *testing.T) {
	locator, err := NewLocator(t.TempDir(), NewHolder(nil))
	require.NoError(t, err)
	_, err = locator.Locate(context.Background(), `Nowhere\Thing`)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))
}

func TestLocatorCanceledContext(t *testing.T) {
	locator, err := NewLocator(t.TempDir(), NewHolder(nil))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locator.Locate(ctx, "A")
	assert.ErrorIs(t, err, context.Canceled)
}
