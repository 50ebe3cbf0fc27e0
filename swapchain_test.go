package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestChoosePresentMode(t *testing.T) {
	modes := VKPresentModes{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeImmediate}
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes))

	modes = VKPresentModes{vk.PresentModeFifo, vk.PresentModeImmediate}
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes))

	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil))
}

func TestChooseImageCount(t *testing.T) {
	// One more than the minimum when the surface allows it.
	assert.Equal(t, uint32(3), chooseImageCount(2, 8))

	// Clamped by the maximum.
	assert.Equal(t, uint32(2), chooseImageCount(2, 2))

	// Zero maximum means unbounded.
	assert.Equal(t, uint32(4), chooseImageCount(3, 0))
}
