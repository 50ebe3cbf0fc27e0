package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// Swapchain owns the presentable images for a surface along with one image
// view per image. Usage includes transfer destination so offscreen scene
// color can be blitted into the presentable image.
type Swapchain struct {
	Device      *Device
	VKSwapchain vk.Swapchain
	Extent      vk.Extent2D
	Format      vk.Format
	Images      []vk.Image
	Views       []vk.ImageView
}

func (s *Swapchain) Destroy() {
	for _, v := range s.Views {
		vk.DestroyImageView(s.Device.VKDevice, v, nil)
	}
	s.Views = nil
	vk.DestroySwapchain(s.Device.VKDevice, s.VKSwapchain, nil)
}

type CreateSwapchainOptions struct {
	OldSwapchain *Swapchain
	// ActualSize is used when the surface reports no fixed extent, as
	// happens on some window systems.
	ActualSize vk.Extent2D
}

// choosePresentMode picks Mailbox when available, otherwise the always
// present FIFO.
func choosePresentMode(modes VKPresentModes) vk.PresentMode {
	if len(modes.Filter(vk.PresentModeMailbox)) > 0 {
		return vk.PresentModeMailbox
	}
	return vk.PresentModeFifo
}

// chooseImageCount asks for one more than the minimum so acquire rarely
// blocks on the driver. A max of zero means no upper bound.
func chooseImageCount(minImages, maxImages uint32) uint32 {
	desired := minImages + 1
	if maxImages > 0 && desired > maxImages {
		desired = maxImages
	}
	return desired
}

func (d *Device) CreateSwapchain(surface vk.Surface, graphicsQueue, presentQueue *Queue, options *CreateSwapchainOptions) (*Swapchain, error) {

	modes, err := d.PhysicalDevice.GetSurfacePresentModes(surface)
	if err != nil {
		return nil, err
	}

	presentMode := choosePresentMode(modes)

	formats, err := d.PhysicalDevice.GetSurfaceFormats(surface)
	if err != nil {
		return nil, err
	}

	var format vk.SurfaceFormat
	found := formats.Filter(func(f vk.SurfaceFormat) bool {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Unorm {
			format = f
			return true
		}
		return false
	})
	if len(found) == 0 && len(formats) > 0 {
		format = formats[0]
		format.Deref()
	}

	caps, err := d.PhysicalDevice.GetSurfaceCapabilities(surface)
	if err != nil {
		return nil, err
	}
	caps.Deref()

	var swapchainSize vk.Extent2D

	caps.CurrentExtent.Deref()
	if caps.CurrentExtent.Width == vk.MaxUint32 {
		if options != nil {
			swapchainSize = options.ActualSize
		} else {
			swapchainSize = caps.MinImageExtent
		}
	} else {
		swapchainSize = caps.CurrentExtent
	}

	desiredImages := chooseImageCount(caps.MinImageCount, caps.MaxImageCount)

	var swapchain vk.Swapchain

	createInfo := &vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         surface,
		MinImageCount:   desiredImages,
		ImageFormat:     format.Format,
		ImageColorSpace: format.ColorSpace,
		ImageExtent: vk.Extent2D{
			Width:  swapchainSize.Width,
			Height: swapchainSize.Height,
		},
		PresentMode:      presentMode,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageArrayLayers: 1,
		Clipped:          vk.True,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		OldSwapchain:     vk.NullSwapchain,
	}

	if options != nil {
		if options.OldSwapchain != nil {
			createInfo.OldSwapchain = options.OldSwapchain.VKSwapchain
		}
	}

	if graphicsQueue.QueueFamily.Index != presentQueue.QueueFamily.Index {
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{uint32(graphicsQueue.QueueFamily.Index), uint32(presentQueue.QueueFamily.Index)}
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
	} else {
		createInfo.QueueFamilyIndexCount = 0
		createInfo.PQueueFamilyIndices = nil
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	err = vk.Error(vk.CreateSwapchain(d.VKDevice, createInfo, nil, &swapchain))
	if err != nil {
		return nil, err
	}

	var ret Swapchain
	ret.VKSwapchain = swapchain
	ret.Device = d
	ret.Extent = vk.Extent2D{
		Width:  swapchainSize.Width,
		Height: swapchainSize.Height,
	}
	ret.Format = format.Format

	err = ret.fetchImages()
	if err != nil {
		ret.Destroy()
		return nil, err
	}

	return &ret, nil

}

func (s *Swapchain) fetchImages() error {
	var imageCount uint32
	err := vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, nil))
	if err != nil {
		return err
	}

	images := make([]vk.Image, imageCount)
	err = vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, images))
	if err != nil {
		return err
	}

	views := make([]vk.ImageView, imageCount)
	for i := range images {
		views[i], err = s.Device.CreateImageViewWithAspectMask(images[i], s.Format, vk.ImageAspectColorBit)
		if err != nil {
			for j := 0; j < i; j++ {
				vk.DestroyImageView(s.Device.VKDevice, views[j], nil)
			}
			return err
		}
	}

	s.Images = images
	s.Views = views
	return nil
}
