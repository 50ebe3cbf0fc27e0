package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestSceneTargetControllerFollowsSwapchain(t *testing.T) {
	c := &sceneTargetController{}
	swapchain := vk.Extent2D{Width: 800, Height: 600}

	assert.Equal(t, swapchain, c.DesiredExtent(swapchain))
	assert.True(t, c.NeedsRebuild(swapchain))

	c.Rebuilt(swapchain)
	assert.False(t, c.NeedsRebuild(swapchain))

	// Swapchain resize is picked up without an explicit request.
	swapchain = vk.Extent2D{Width: 1024, Height: 768}
	assert.True(t, c.NeedsRebuild(swapchain))
}

func TestSceneTargetControllerViewportOverride(t *testing.T) {
	c := &sceneTargetController{}
	swapchain := vk.Extent2D{Width: 800, Height: 600}
	c.Rebuilt(swapchain)

	assert.False(t, c.SetViewportExtent(vk.Extent2D{}))
	assert.False(t, c.SetViewportExtent(vk.Extent2D{Width: 100}))
	assert.False(t, c.NeedsRebuild(swapchain))

	panel := vk.Extent2D{Width: 640, Height: 360}
	assert.True(t, c.SetViewportExtent(panel))
	assert.Equal(t, panel, c.DesiredExtent(swapchain))
	assert.True(t, c.NeedsRebuild(swapchain))

	// Repeating the same request is a no-op.
	assert.False(t, c.SetViewportExtent(panel))

	c.Rebuilt(panel)
	assert.False(t, c.NeedsRebuild(swapchain))

	// Once a viewport drives the size, swapchain resizes are irrelevant.
	swapchain = vk.Extent2D{Width: 1920, Height: 1080}
	assert.False(t, c.NeedsRebuild(swapchain))
}

func TestSceneTargetControllerMarkDirty(t *testing.T) {
	c := &sceneTargetController{}
	swapchain := vk.Extent2D{Width: 800, Height: 600}
	c.Rebuilt(swapchain)

	c.MarkDirty()
	assert.True(t, c.NeedsRebuild(swapchain))

	c.Rebuilt(swapchain)
	assert.False(t, c.NeedsRebuild(swapchain))
}
