package rtr

import (
	"fmt"
)

// MeshHandle identifies registered mesh data. Handles stay valid until the
// ResourceManager is destroyed.
type MeshHandle uint64

// MeshData is CPU-side geometry waiting to be uploaded.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// ResourceManager owns mesh data and uploads it to the GPU on first use.
// Uploaded meshes are cached per handle.
type ResourceManager struct {
	device *Device
	pool   *CommandPool
	queue  *Queue

	cpu  map[MeshHandle]*MeshData
	gpu  map[MeshHandle]*Mesh
	next MeshHandle
}

func CreateResourceManager(device *Device, pool *CommandPool, queue *Queue) *ResourceManager {
	return &ResourceManager{
		device: device,
		pool:   pool,
		queue:  queue,
		cpu:    make(map[MeshHandle]*MeshData),
		gpu:    make(map[MeshHandle]*Mesh),
		next:   1,
	}
}

// RegisterMesh records geometry and returns a handle for it. No GPU work
// happens until the mesh is first required.
func (rm *ResourceManager) RegisterMesh(data *MeshData) MeshHandle {
	h := rm.next
	rm.next++
	rm.cpu[h] = data
	return h
}

// RequireMesh returns the uploaded mesh for a handle, uploading on first
// use.
func (rm *ResourceManager) RequireMesh(h MeshHandle) (*Mesh, error) {
	if mesh, ok := rm.gpu[h]; ok {
		return mesh, nil
	}

	data, ok := rm.cpu[h]
	if !ok {
		return nil, fmt.Errorf("unknown mesh handle %d", h)
	}

	mesh, err := rm.device.CreateMesh(data.Vertices, data.Indices, rm.pool, rm.queue)
	if err != nil {
		return nil, err
	}
	rm.gpu[h] = mesh
	return mesh, nil
}

func (rm *ResourceManager) Destroy() {
	for _, mesh := range rm.gpu {
		mesh.Destroy()
	}
	rm.gpu = nil
	rm.cpu = nil
}
