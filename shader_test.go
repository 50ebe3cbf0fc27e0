package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShaderRootPrecedence(t *testing.T) {
	saved := DefaultShaderOutputDir
	defer func() { DefaultShaderOutputDir = saved }()

	t.Setenv(shaderRootEnv, "/from/env")
	DefaultShaderOutputDir = "/from/default"

	root, err := ResolveShaderRoot("/explicit")
	require.NoError(t, err)
	assert.Equal(t, "/explicit", root)

	root, err = ResolveShaderRoot("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", root)

	t.Setenv(shaderRootEnv, "")
	root, err = ResolveShaderRoot("")
	require.NoError(t, err)
	assert.Equal(t, "/from/default", root)
}

func TestResolveShaderRootUnconfigured(t *testing.T) {
	saved := DefaultShaderOutputDir
	defer func() { DefaultShaderOutputDir = saved }()

	t.Setenv(shaderRootEnv, "")
	DefaultShaderOutputDir = ""

	_, err := ResolveShaderRoot("")
	assert.ErrorIs(t, err, ErrNoShaderRoot)
}
