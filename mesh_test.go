package rtr

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestVertexLayout(t *testing.T) {
	layout := VertexLayout{}

	binding := layout.GetBindingDescription()
	assert.Equal(t, uint32(0), binding.Binding)
	assert.Equal(t, uint32(unsafe.Sizeof(Vertex{})), binding.Stride)
	assert.Equal(t, vk.VertexInputRateVertex, binding.InputRate)

	attrs := layout.GetAttributeDescriptions()
	require.Len(t, attrs, 3)

	var v Vertex
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attrs[0].Format)
	assert.Equal(t, uint32(unsafe.Offsetof(v.Position)), attrs[0].Offset)

	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[1].Format)
	assert.Equal(t, uint32(unsafe.Offsetof(v.UV)), attrs[1].Offset)

	assert.Equal(t, vk.FormatR32g32b32Sfloat, attrs[2].Format)
	assert.Equal(t, uint32(unsafe.Offsetof(v.Normal)), attrs[2].Offset)
}
