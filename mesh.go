package rtr

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Vertex is the interleaved vertex format used by the forward pipeline.
type Vertex struct {
	Position [3]float32
	UV       [2]float32
	Normal   [3]float32
}

// VertexLayout describes the Vertex struct to the pipeline.
type VertexLayout struct{}

func (VertexLayout) GetBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
}

func (VertexLayout) GetAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Position)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.UV)),
		},
		{
			Location: 2,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Normal)),
		},
	}
}

// Mesh holds device local vertex and index buffers for one piece of
// geometry. Indices are 32 bit.
type Mesh struct {
	VertexBuffer *Buffer
	IndexBuffer  *Buffer
	IndexCount   uint32
}

// CreateMesh uploads vertex and index data into device local buffers
// through staging copies on the given queue.
func (d *Device) CreateMesh(vertices []Vertex, indices []uint32, pool *CommandPool, queue *Queue) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("mesh requires at least one vertex and one index")
	}

	vertexBytes := ToBytes(unsafe.Pointer(&vertices[0]), len(vertices)*int(unsafe.Sizeof(Vertex{})))
	indexBytes := ToBytes(unsafe.Pointer(&indices[0]), len(indices)*4)

	vb, err := d.CreateDeviceLocalBufferWithData(vertexBytes, vk.BufferUsageVertexBufferBit, pool, queue)
	if err != nil {
		return nil, fmt.Errorf("unable to upload vertex buffer: %w", err)
	}

	ib, err := d.CreateDeviceLocalBufferWithData(indexBytes, vk.BufferUsageIndexBufferBit, pool, queue)
	if err != nil {
		vb.Destroy()
		return nil, fmt.Errorf("unable to upload index buffer: %w", err)
	}

	return &Mesh{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexCount:   uint32(len(indices)),
	}, nil
}

func (m *Mesh) Destroy() {
	m.VertexBuffer.Destroy()
	m.IndexBuffer.Destroy()
}
