package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreateLinearSampler creates a bilinear clamp-to-edge sampler suitable for
// sampling render targets and UI textures.
func (d *Device) CreateLinearSampler() (vk.Sampler, error) {
	var samplerCreateInfo = vk.SamplerCreateInfo{}
	samplerCreateInfo.SType = vk.StructureTypeSamplerCreateInfo
	samplerCreateInfo.MagFilter = vk.FilterLinear
	samplerCreateInfo.MinFilter = vk.FilterLinear
	samplerCreateInfo.MipmapMode = vk.SamplerMipmapModeLinear
	samplerCreateInfo.AddressModeU = vk.SamplerAddressModeClampToEdge
	samplerCreateInfo.AddressModeV = vk.SamplerAddressModeClampToEdge
	samplerCreateInfo.AddressModeW = vk.SamplerAddressModeClampToEdge
	samplerCreateInfo.MinLod = -1000
	samplerCreateInfo.MaxLod = 1000
	samplerCreateInfo.MaxAnisotropy = 1.0

	var sampler vk.Sampler
	err := vk.Error(vk.CreateSampler(d.VKDevice, &samplerCreateInfo, nil, &sampler))
	if err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}

func (d *Device) VKDestroySampler(s vk.Sampler) {
	vk.DestroySampler(d.VKDevice, s, nil)
}
