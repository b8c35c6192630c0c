package finitemutsel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewickLengths(t *testing.T) {
	assert.Equal(t, []float64{0.1, 0.2, 0.05, 1e-3}, newickLengths("((a:0.1,b:0.2):0.05,c:1e-3);"))
	assert.Empty(t, newickLengths("((a,b),c);"))
}

func TestReadTree(t *testing.T) {
	nwk, err := readTree(" (a:1,b:2); ")
	require.NoError(t, err)
	assert.Equal(t, "(a:1,b:2);", nwk)

	path := filepath.Join(t.TempDir(), "t.tre")
	require.NoError(t, os.WriteFile(path, []byte("(a:1,\nb:2);\n"), 0o644))
	nwk, err = readTree(path)
	require.NoError(t, err)
	assert.Equal(t, "(a:1,b:2);", nwk)

	_, err = readTree(filepath.Join(t.TempDir(), "none.tre"))
	assert.True(t, IsConfigError(err))
}

func TestStarTree(t *testing.T) {
	assert.Equal(t, "(a:1,b:1,c:1);", starTree([]string{"a", "b", "c"}))
}
