package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceManagerHandles(t *testing.T) {
	rm := CreateResourceManager(nil, nil, nil)

	a := rm.RegisterMesh(&MeshData{})
	b := rm.RegisterMesh(&MeshData{})

	assert.Equal(t, MeshHandle(1), a)
	assert.Equal(t, MeshHandle(2), b)
	assert.NotEqual(t, a, b)
}

func TestResourceManagerUnknownHandle(t *testing.T) {
	rm := CreateResourceManager(nil, nil, nil)

	_, err := rm.RequireMesh(42)
	assert.Error(t, err)
}
