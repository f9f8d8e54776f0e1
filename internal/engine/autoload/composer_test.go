package autoload

import (
	"context"
	"testing"

	domainerrors "implementor/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposerReaderBuildsOrderedTable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "composer.json", `{
		"autoload": {
			"psr-4": {"App\\": "src/", "Domain\\": ["domain/", "extra/"]},
			"classmap": ["legacy/"]
		},
		"autoload-dev": {"psr-4": {"Tests\\": "tests/"}},
		"require": {
			"php": ">=8.1",
			"ext-json": "*",
			"acme/http": "^1.0",
			"acme/broken": "^1.0"
		},
		"require-dev": {"acme/tools": "^2.0"}
	}`)
	writeFile(t, root, "src/Kernel.php", "<?php\nnamespace App;\nclass Kernel {}\n")
	writeFile(t, root, "vendor/acme/http/composer.json", `{
		"autoload": {"psr-4": {"Acme\\Http\\": "src"}},
		"require": {"acme/util": "*", "acme/http": "*"}
	}`)
	writeFile(t, root, "vendor/acme/util/composer.json", `{
		"autoload": {"psr-4": {"Acme\\Util\\": "lib/"}, "classmap": ["compat/"]}
	}`)
	writeFile(t, root, "vendor/acme/util/src/Helpers.php", "<?php\nnamespace Acme\\Util;\nfinal class Helpers {}\n")
	writeFile(t, root, "vendor/acme/broken/composer.json", `{"autoload": `)
	writeFile(t, root, "vendor/acme/tools/composer.json", `{"autoload": {"psr-4": {"App\\": "overridden/"}}}`)

	res, err := NewComposerReader(root).Read(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []Root{
		{Prefix: `App\`, Dir: "vendor/acme/tools/overridden"},
		{Prefix: `Domain\`, Dir: "domain"},
		{Prefix: `Tests\`, Dir: "tests"},
		{Prefix: `Acme\Http\`, Dir: "vendor/acme/http/src"},
		{Prefix: `Acme\Util\`, Dir: "vendor/acme/util/lib"},
	}, res.Table.Roots())

	assert.Equal(t, []ClassmapRoot{
		{Prefix: "App", Globs: []string{"legacy/"}},
		{Prefix: `Acme\Util`, Globs: []string{"vendor/acme/util/compat/"}},
	}, res.Table.Classmap())

	assert.Equal(t, 3, res.Packages)
	require.Len(t, res.Warnings, 1)
	assert.True(t, domainerrors.IsCode(res.Warnings[0], domainerrors.CodeManifest))
}

func TestComposerReaderVendorDirAndSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "backend/composer.json", `{
		"config": {"vendor-dir": "deps"},
		"autoload": {"psr-4": {"Api\\": "app"}},
		"require": {"acme/missing": "*", "acme/core": "*"}
	}`)
	writeFile(t, root, "backend/deps/acme/core/composer.json", `{"autoload": {"psr-4": {"Core\\": "src/"}}}`)

	res, err := NewComposerReader(root).Read(context.Background(), "backend/")
	require.NoError(t, err)
	assert.Equal(t, []Root{
		{Prefix: `Api\`, Dir: "backend/app"},
		{Prefix: `Core\`, Dir: "backend/deps/acme/core/src"},
	}, res.Table.Roots())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Error(), "acme/missing")
}

func TestComposerReaderRootManifestErrors(t *testing.T) {
	root := t.TempDir()
	_, err := NewComposerReader(root).Read(context.Background(), "")
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeManifest))

	writeFile(t, root, "composer.json", `{"autoload": {"psr-4": "not-an-object"}}`)
	_, err = NewComposerReader(root).Read(context.Background(), "")
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeManifest))
}

func TestComposerReaderEmptyArrayObjects(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "composer.json", `{"autoload": {"psr-4": []}, "require": [], "require-dev": null}`)
	res, err := NewComposerReader(root).Read(context.Background(), "")
	require.NoError(t, err)
	roots, classmap := res.Table.Len()
	assert.Zero(t, roots)
	assert.Zero(t, classmap)
}

func TestIsPlatformPackage(t *testing.T) {
	for name, want := range map[string]bool{
		"php":                 true,
		"ext-mbstring":        true,
		"lib-icu":             true,
		"composer-plugin-api": true,
		"acme/lib":            false,
	} {
		if got := isPlatformPackage(name); got != want {
			t.Fatalf("isPlatformPackage(%q) = %v, want %v", name, got, want)
		}
	}
}
