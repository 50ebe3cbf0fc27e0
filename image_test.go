package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestFormatHasStencil(t *testing.T) {
	assert.True(t, formatHasStencil(vk.FormatD32SfloatS8Uint))
	assert.True(t, formatHasStencil(vk.FormatD24UnormS8Uint))
	assert.True(t, formatHasStencil(vk.FormatD16UnormS8Uint))

	assert.False(t, formatHasStencil(vk.FormatD32Sfloat))
	assert.False(t, formatHasStencil(vk.FormatD16Unorm))
	assert.False(t, formatHasStencil(vk.FormatB8g8r8a8Unorm))
}
