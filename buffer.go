package rtr

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Buffer is a vulkan buffer bound to its own device memory allocation.
// Host visible buffers stay persistently mapped through Ptr.
type Buffer struct {
	Device   *Device
	VKBuffer vk.Buffer
	VKMemory vk.DeviceMemory
	Size     uint64
	Ptr      unsafe.Pointer
}

func (d *Device) createBoundBuffer(sizeInBytes uint64, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlagBits) (*Buffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeInBytes),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	err := vk.Error(vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer))
	if err != nil {
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.VKDevice, buffer, &memoryRequirements)
	memoryRequirements.Deref()

	memory, err := d.Allocate(int(memoryRequirements.Size), memoryRequirements.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(d.VKDevice, buffer, nil)
		return nil, err
	}

	err = vk.Error(vk.BindBufferMemory(d.VKDevice, buffer, memory, 0))
	if err != nil {
		vk.FreeMemory(d.VKDevice, memory, nil)
		vk.DestroyBuffer(d.VKDevice, buffer, nil)
		return nil, err
	}

	var ret Buffer
	ret.Device = d
	ret.VKBuffer = buffer
	ret.VKMemory = memory
	ret.Size = sizeInBytes

	return &ret, nil
}

// CreateHostBuffer creates a host visible and coherent buffer and maps it
// persistently. The mapping stays valid until Destroy.
func (d *Device) CreateHostBuffer(sizeInBytes uint64, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	b, err := d.createBoundBuffer(sizeInBytes, vk.BufferUsageFlags(usage),
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}

	var ptr unsafe.Pointer
	err = vk.Error(vk.MapMemory(d.VKDevice, b.VKMemory, 0, vk.DeviceSize(b.Size), 0, &ptr))
	if err != nil {
		b.Destroy()
		return nil, err
	}
	b.Ptr = ptr

	return b, nil
}

// CreateDeviceLocalBuffer creates a device local buffer.
func (d *Device) CreateDeviceLocalBuffer(sizeInBytes uint64, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	return d.createBoundBuffer(sizeInBytes, vk.BufferUsageFlags(usage), vk.MemoryPropertyDeviceLocalBit)
}

// CreateDeviceLocalBufferWithData creates a device local buffer and fills
// it through a transient staging copy on the given queue.
func (d *Device) CreateDeviceLocalBufferWithData(data []byte, usage vk.BufferUsageFlagBits, pool *CommandPool, queue *Queue) (*Buffer, error) {
	dst, err := d.CreateDeviceLocalBuffer(uint64(len(data)), usage|vk.BufferUsageTransferDstBit)
	if err != nil {
		return nil, err
	}

	staging, err := d.CreateHostBuffer(uint64(len(data)), vk.BufferUsageTransferSrcBit)
	if err != nil {
		dst.Destroy()
		return nil, err
	}
	defer staging.Destroy()

	copy(staging.Bytes(), data)

	cmd, err := pool.AllocateBuffer()
	if err != nil {
		dst.Destroy()
		return nil, err
	}
	defer pool.FreeBuffer(cmd)

	err = cmd.BeginOneTime()
	if err != nil {
		dst.Destroy()
		return nil, err
	}
	vk.CmdCopyBuffer(cmd.VK(), staging.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(len(data)),
	}})
	err = cmd.End()
	if err != nil {
		dst.Destroy()
		return nil, err
	}

	err = queue.SubmitWithFence(vk.NullFence, cmd)
	if err != nil {
		dst.Destroy()
		return nil, fmt.Errorf("unable to submit staging copy: %w", err)
	}
	err = queue.WaitIdle()
	if err != nil {
		dst.Destroy()
		return nil, err
	}

	return dst, nil
}

// Bytes returns the persistently mapped contents of a host buffer.
func (b *Buffer) Bytes() []byte {
	if b.Ptr == nil {
		return nil
	}
	return ToBytes(b.Ptr, int(b.Size))
}

func (b *Buffer) DSInfo(offset, rng uint64) vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: b.VKBuffer,
		Offset: vk.DeviceSize(offset),
		Range:  vk.DeviceSize(rng),
	}
}

func (b *Buffer) Destroy() {
	if b.Ptr != nil {
		vk.UnmapMemory(b.Device.VKDevice, b.VKMemory)
		b.Ptr = nil
	}
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
	vk.FreeMemory(b.Device.VKDevice, b.VKMemory, nil)
}
