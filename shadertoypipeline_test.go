package rtr

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestComputeGroupCount(t *testing.T) {
	assert.Equal(t, uint32(1), computeGroupCount(1))
	assert.Equal(t, uint32(1), computeGroupCount(8))
	assert.Equal(t, uint32(2), computeGroupCount(9))
	assert.Equal(t, uint32(75), computeGroupCount(600))
	assert.Equal(t, uint32(100), computeGroupCount(800))
}

func TestShaderToyUniformLayout(t *testing.T) {
	var u ShaderToyUniform
	assert.Equal(t, uintptr(0), unsafe.Offsetof(u.IResolution))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(u.ITime))
	assert.Equal(t, uintptr(32), unsafe.Sizeof(u))
}

func TestShaderToyRenderReturnsRebuildError(t *testing.T) {
	rebuildErr := errors.New("rebuild failed")
	p := &ShaderToyPipeline{rebuildErr: rebuildErr}
	frame := &FrameContext{Extent: vk.Extent2D{Width: 800, Height: 600}}
	assert.ErrorIs(t, p.Render(frame), rebuildErr)
}
