package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestFrameContextRegistry(t *testing.T) {
	f := &FrameContext{}

	_, err := f.BufferNamed("object_uniforms")
	assert.Error(t, err)

	buf := &Buffer{Size: 256}
	f.RegisterBuffer("object_uniforms", buf)
	got, err := f.BufferNamed("object_uniforms")
	require.NoError(t, err)
	assert.Same(t, buf, got)

	layout := vk.ImageLayoutUndefined
	img := &TrackedImage{Image: &Image{}, Layout: &layout}
	f.RegisterImage("scene_color", img)

	gotImg, err := f.ImageNamed("scene_color")
	require.NoError(t, err)
	assert.Same(t, img, gotImg)

	_, err = f.ImageNamed("scene_depth")
	assert.Error(t, err)

	ds := &DescriptorSet{}
	f.RegisterDescriptorSet("compute", ds)
	gotSet, err := f.DescriptorSetNamed("compute")
	require.NoError(t, err)
	assert.Same(t, ds, gotSet)

	_, err = f.DescriptorSetNamed("present")
	assert.Error(t, err)
}

func TestFrameContextRegisterOverwrites(t *testing.T) {
	f := &FrameContext{}

	first := &Buffer{Size: 16}
	second := &Buffer{Size: 32}
	f.RegisterBuffer("staging", first)
	f.RegisterBuffer("staging", second)

	got, err := f.BufferNamed("staging")
	require.NoError(t, err)
	assert.Same(t, second, got)
}
