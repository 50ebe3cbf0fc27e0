package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// sceneTargetController decides what size offscreen scene targets should
// be. A zero viewport extent means the scene follows the swapchain;
// otherwise an editor panel drives the size independently.
type sceneTargetController struct {
	viewportExtent vk.Extent2D
	currentExtent  vk.Extent2D
	dirty          bool
}

// SetViewportExtent records a requested scene viewport size. Zero sized
// requests are ignored. Returns true when the request differs from the
// current one.
func (c *sceneTargetController) SetViewportExtent(extent vk.Extent2D) bool {
	if extent.Width == 0 || extent.Height == 0 {
		return false
	}
	if extent.Width == c.viewportExtent.Width && extent.Height == c.viewportExtent.Height {
		return false
	}
	c.viewportExtent = extent
	c.dirty = true
	return true
}

// DesiredExtent reports the size scene targets should have given the
// current swapchain extent.
func (c *sceneTargetController) DesiredExtent(swapchain vk.Extent2D) vk.Extent2D {
	if c.viewportExtent.Width > 0 && c.viewportExtent.Height > 0 {
		return c.viewportExtent
	}
	return swapchain
}

// NeedsRebuild reports whether targets must be recreated before rendering
// at the desired extent.
func (c *sceneTargetController) NeedsRebuild(swapchain vk.Extent2D) bool {
	if c.dirty {
		return true
	}
	desired := c.DesiredExtent(swapchain)
	return desired.Width != c.currentExtent.Width || desired.Height != c.currentExtent.Height
}

// MarkDirty forces a rebuild on the next frame, used when the swapchain or
// attachment formats change underneath the targets.
func (c *sceneTargetController) MarkDirty() {
	c.dirty = true
}

// Rebuilt records that targets now exist at the given extent.
func (c *sceneTargetController) Rebuilt(extent vk.Extent2D) {
	c.currentExtent = extent
	c.dirty = false
}
