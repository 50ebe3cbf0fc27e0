package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// Image is a 2D vulkan image bound to its own device local allocation,
// together with a default view over its whole subresource range.
type Image struct {
	Device   *Device
	VKImage  vk.Image
	VKMemory vk.DeviceMemory
	VKView   vk.ImageView
	Format   vk.Format
	Extent   vk.Extent2D
	Aspect   vk.ImageAspectFlagBits
}

// CreateRenderTarget creates a device local 2D image with the given usage
// and an image view over it.
func (d *Device) CreateRenderTarget(extent vk.Extent2D, format vk.Format, usage vk.ImageUsageFlagBits, aspect vk.ImageAspectFlagBits) (*Image, error) {
	var imageCreateInfo = vk.ImageCreateInfo{}
	imageCreateInfo.SType = vk.StructureTypeImageCreateInfo
	imageCreateInfo.ImageType = vk.ImageType2d
	imageCreateInfo.Format = format
	imageCreateInfo.Extent = vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}
	imageCreateInfo.MipLevels = 1
	imageCreateInfo.ArrayLayers = 1
	imageCreateInfo.Samples = vk.SampleCount1Bit
	imageCreateInfo.Tiling = vk.ImageTilingOptimal
	imageCreateInfo.Usage = vk.ImageUsageFlags(usage)
	imageCreateInfo.SharingMode = vk.SharingModeExclusive
	imageCreateInfo.InitialLayout = vk.ImageLayoutUndefined

	var image vk.Image
	err := vk.Error(vk.CreateImage(d.VKDevice, &imageCreateInfo, nil, &image))
	if err != nil {
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.VKDevice, image, &memoryRequirements)
	memoryRequirements.Deref()

	memory, err := d.Allocate(int(memoryRequirements.Size), memoryRequirements.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(d.VKDevice, image, nil)
		return nil, err
	}

	err = vk.Error(vk.BindImageMemory(d.VKDevice, image, memory, 0))
	if err != nil {
		vk.FreeMemory(d.VKDevice, memory, nil)
		vk.DestroyImage(d.VKDevice, image, nil)
		return nil, err
	}

	view, err := d.CreateImageViewWithAspectMask(image, format, aspect)
	if err != nil {
		vk.FreeMemory(d.VKDevice, memory, nil)
		vk.DestroyImage(d.VKDevice, image, nil)
		return nil, err
	}

	var ret Image
	ret.Device = d
	ret.VKImage = image
	ret.VKMemory = memory
	ret.VKView = view
	ret.Format = format
	ret.Extent = extent
	ret.Aspect = aspect

	return &ret, nil
}

// CreateImageViewWithAspectMask creates a 2D image view over the first mip
// level and array layer of an image.
func (d *Device) CreateImageViewWithAspectMask(image vk.Image, format vk.Format, aspect vk.ImageAspectFlagBits) (vk.ImageView, error) {
	var imageViewCreateInfo = vk.ImageViewCreateInfo{}
	imageViewCreateInfo.SType = vk.StructureTypeImageViewCreateInfo
	imageViewCreateInfo.Image = image
	imageViewCreateInfo.ViewType = vk.ImageViewType2d
	imageViewCreateInfo.Format = format
	imageViewCreateInfo.Components = vk.ComponentMapping{
		R: vk.ComponentSwizzleIdentity,
		G: vk.ComponentSwizzleIdentity,
		B: vk.ComponentSwizzleIdentity,
		A: vk.ComponentSwizzleIdentity,
	}
	imageViewCreateInfo.SubresourceRange = vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(aspect),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	var view vk.ImageView
	err := vk.Error(vk.CreateImageView(d.VKDevice, &imageViewCreateInfo, nil, &view))
	if err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// formatHasStencil reports whether a depth format carries a stencil
// component, which widens the aspect mask of views over it.
func formatHasStencil(format vk.Format) bool {
	switch format {
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint:
		return true
	}
	return false
}

func (d *Device) VKDestroyImageView(v vk.ImageView) {
	vk.DestroyImageView(d.VKDevice, v, nil)
}

func (i *Image) Destroy() {
	vk.DestroyImageView(i.Device.VKDevice, i.VKView, nil)
	vk.DestroyImage(i.Device.VKDevice, i.VKImage, nil)
	vk.FreeMemory(i.Device.VKDevice, i.VKMemory, nil)
}
