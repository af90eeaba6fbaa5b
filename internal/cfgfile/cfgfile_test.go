package cfgfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	MTU   int    `yaml:"mtu"`
	Name  string `yaml:"name"`
}

func TestLoadDirectPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mtu: 185\nname: board-a\n"), 0o644))

	var s sample
	require.NoError(t, Load(path, &s))
	assert.Equal(t, 185, s.MTU)
	assert.Equal(t, "board-a", s.Name)
}

func TestLoadSearchesLocations(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "found.yaml"), []byte("mtu: 20\n"), 0o644))

	orig := SearchLocations
	defer func() { SearchLocations = orig }()
	SearchLocations = []string{filepath.Join(dir, "nope"), dir}

	var s sample
	require.NoError(t, Load("found.yaml", &s))
	assert.Equal(t, 20, s.MTU)
}

func TestLoadMissingReturnsError(t *testing.T) {
	orig := SearchLocations
	defer func() { SearchLocations = orig }()
	SearchLocations = []string{t.TempDir()}

	var s sample
	err := Load("does-not-exist.yaml", &s)
	assert.Error(t, err)
}
