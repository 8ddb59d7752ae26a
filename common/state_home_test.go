package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTwigStateHome(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		override := filepath.Join(t.TempDir(), "custom-state")
		t.Setenv("TWIG_STATE_HOME", override)

		dir, err := GetTwigStateHome()
		require.NoError(t, err)
		assert.Equal(t, override, dir)
		assert.DirExists(t, dir)
	})

	t.Run("xdg default", func(t *testing.T) {
		t.Setenv("TWIG_STATE_HOME", "")

		dir, err := GetTwigStateHome()
		require.NoError(t, err)
		assert.Equal(t, "twig", filepath.Base(dir))
		assert.DirExists(t, dir)
	})
}

func TestGetTwigDataHome(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom-data")
	t.Setenv("TWIG_DATA_HOME", override)

	dir, err := GetTwigDataHome()
	require.NoError(t, err)
	assert.Equal(t, override, dir)
}

func TestGetTwigConfigHome(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom-config")
	t.Setenv("TWIG_CONFIG_HOME", override)

	dir, err := GetTwigConfigHome()
	require.NoError(t, err)
	assert.Equal(t, override, dir)
}
