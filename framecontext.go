package rtr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// FrameContext carries everything a pipeline needs to record one frame:
// the command buffer, the acquired swapchain image, and a name-keyed
// registry passes use to hand resources to each other.
type FrameContext struct {
	FrameIndex uint32
	ImageIndex uint32
	Generation uint64
	Cmd        *CommandBuffer
	Extent     vk.Extent2D

	SwapchainImage vk.Image
	SwapchainView  vk.ImageView

	buffers map[string]*Buffer
	images  map[string]*TrackedImage
	sets    map[string]*DescriptorSet
}

func (f *FrameContext) RegisterBuffer(name string, b *Buffer) {
	if f.buffers == nil {
		f.buffers = make(map[string]*Buffer)
	}
	f.buffers[name] = b
}

func (f *FrameContext) BufferNamed(name string) (*Buffer, error) {
	b, ok := f.buffers[name]
	if !ok {
		return nil, fmt.Errorf("no buffer registered under %q", name)
	}
	return b, nil
}

func (f *FrameContext) RegisterImage(name string, img *TrackedImage) {
	if f.images == nil {
		f.images = make(map[string]*TrackedImage)
	}
	f.images[name] = img
}

func (f *FrameContext) ImageNamed(name string) (*TrackedImage, error) {
	img, ok := f.images[name]
	if !ok {
		return nil, fmt.Errorf("no image registered under %q", name)
	}
	return img, nil
}

func (f *FrameContext) RegisterDescriptorSet(name string, ds *DescriptorSet) {
	if f.sets == nil {
		f.sets = make(map[string]*DescriptorSet)
	}
	f.sets[name] = ds
}

func (f *FrameContext) DescriptorSetNamed(name string) (*DescriptorSet, error) {
	ds, ok := f.sets[name]
	if !ok {
		return nil, fmt.Errorf("no descriptor set registered under %q", name)
	}
	return ds, nil
}
