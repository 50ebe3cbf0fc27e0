package rtr

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

func TestPackRowMajor(t *testing.T) {
	var m lin.Mat4x4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			m[col][row] = float32(col*10 + row)
		}
	}

	packed := packRowMajor(m)

	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			assert.Equal(t, float32(col*10+row), packed[row*4+col])
		}
	}
}

func TestPackRowMajorIdentity(t *testing.T) {
	var m lin.Mat4x4
	m.Identity()

	packed := packRowMajor(m)

	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(1), packed[i*4+i])
	}
}

func TestObjectUniformLayout(t *testing.T) {
	var u ObjectUniform
	assert.Equal(t, uintptr(0), unsafe.Offsetof(u.Model))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(u.View))
	assert.Equal(t, uintptr(128), unsafe.Offsetof(u.Proj))
	assert.Equal(t, uintptr(192), unsafe.Offsetof(u.Normal))
	assert.Equal(t, uintptr(256), unsafe.Offsetof(u.BaseColor))
	assert.Equal(t, uintptr(272), unsafe.Sizeof(u))
}

func TestForwardRenderZeroExtentIsNoop(t *testing.T) {
	p := &ForwardPipeline{}
	assert.NoError(t, p.Render(&FrameContext{}))
}

func TestForwardRenderRequiresResourceManager(t *testing.T) {
	p := &ForwardPipeline{}
	frame := &FrameContext{Extent: vk.Extent2D{Width: 800, Height: 600}}
	assert.ErrorIs(t, p.Render(frame), ErrNoResourceManager)
}

func TestForwardRenderRequiresSceneView(t *testing.T) {
	p := &ForwardPipeline{rm: CreateResourceManager(nil, nil, nil)}
	frame := &FrameContext{Extent: vk.Extent2D{Width: 800, Height: 600}}
	assert.ErrorIs(t, p.Render(frame), ErrNoSceneView)
}

func TestForwardRenderRejectsTooManyRenderables(t *testing.T) {
	p := &ForwardPipeline{rm: CreateResourceManager(nil, nil, nil)}
	p.views[0] = &ForwardSceneView{
		Renderables: make([]ForwardSceneRenderable, MaxRenderables+1),
	}
	frame := &FrameContext{Extent: vk.Extent2D{Width: 800, Height: 600}}
	assert.ErrorIs(t, p.Render(frame), ErrTooManyRenderables)
}

func TestForwardPrepareFrameRequiresProvider(t *testing.T) {
	p := &ForwardPipeline{}
	assert.ErrorIs(t, p.PrepareFrame(&FramePrepareContext{}), ErrNoSceneViewProvider)
}

func TestForwardRenderReturnsRebuildError(t *testing.T) {
	rebuildErr := errors.New("rebuild failed")
	p := &ForwardPipeline{rebuildErr: rebuildErr}
	frame := &FrameContext{Extent: vk.Extent2D{Width: 800, Height: 600}}
	assert.ErrorIs(t, p.Render(frame), rebuildErr)
}
