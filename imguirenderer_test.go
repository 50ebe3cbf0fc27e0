package rtr

import (
	"testing"

	imgui "github.com/inkyblackness/imgui-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestClampedScissorInsideFramebuffer(t *testing.T) {
	extent := vk.Extent2D{Width: 800, Height: 600}

	scissor, visible := clampedScissor(imgui.Vec4{X: 10, Y: 20, Z: 110, W: 220}, extent)
	require.True(t, visible)
	assert.Equal(t, int32(10), scissor.Offset.X)
	assert.Equal(t, int32(20), scissor.Offset.Y)
	assert.Equal(t, uint32(100), scissor.Extent.Width)
	assert.Equal(t, uint32(200), scissor.Extent.Height)
}

func TestClampedScissorNegativeOrigin(t *testing.T) {
	extent := vk.Extent2D{Width: 800, Height: 600}

	// A window dragged past the top-left corner produces negative rect
	// coordinates.
	scissor, visible := clampedScissor(imgui.Vec4{X: -50, Y: -30, Z: 100, W: 80}, extent)
	require.True(t, visible)
	assert.Equal(t, int32(0), scissor.Offset.X)
	assert.Equal(t, int32(0), scissor.Offset.Y)
	assert.Equal(t, uint32(100), scissor.Extent.Width)
	assert.Equal(t, uint32(80), scissor.Extent.Height)
}

func TestClampedScissorPastFramebuffer(t *testing.T) {
	extent := vk.Extent2D{Width: 800, Height: 600}

	scissor, visible := clampedScissor(imgui.Vec4{X: 700, Y: 500, Z: 900, W: 700}, extent)
	require.True(t, visible)
	assert.Equal(t, int32(700), scissor.Offset.X)
	assert.Equal(t, int32(500), scissor.Offset.Y)
	assert.Equal(t, uint32(100), scissor.Extent.Width)
	assert.Equal(t, uint32(100), scissor.Extent.Height)
}

func TestClampedScissorFullyOffscreen(t *testing.T) {
	extent := vk.Extent2D{Width: 800, Height: 600}

	_, visible := clampedScissor(imgui.Vec4{X: -200, Y: -100, Z: -10, W: -5}, extent)
	assert.False(t, visible)

	_, visible = clampedScissor(imgui.Vec4{X: 900, Y: 700, Z: 1000, W: 800}, extent)
	assert.False(t, visible)
}
