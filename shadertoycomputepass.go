package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// ShaderToyUniform is the constant block fed to the procedural compute
// shader. Both fields are padded to vec4 for std140 layout.
type ShaderToyUniform struct {
	// IResolution holds (width, height, 1, 0).
	IResolution [4]float32
	// ITime holds (seconds since pipeline start, 0, 0, 0).
	ITime [4]float32
}

// computeGroupCount is the number of workgroups needed to cover size
// pixels with the shader's fixed local size of 8.
func computeGroupCount(size uint32) uint32 {
	return (size + 7) / 8
}

// shaderToyComputePass dispatches the procedural shader over the offscreen
// storage image.
type shaderToyComputePass struct {
	pipeline *ComputePipeline
	layout   *PipelineLayout
}

func (p *shaderToyComputePass) Name() string { return "shadertoy_compute" }

func (p *shaderToyComputePass) Dependencies() []ResourceDependency {
	return []ResourceDependency{
		{Name: "shadertoy_output", Access: ResourceWrite},
	}
}

// Execute transitions the target into General layout and dispatches enough
// workgroups to cover it.
func (p *shaderToyComputePass) Execute(cmd *CommandBuffer, target TrackedImage, set *DescriptorSet) {
	srcStage, srcAccess := barrierSourceForLayout(*target.Layout)
	cmd.CmdTransitionImageLayout(target.Image.VKImage, vk.ImageAspectColorBit,
		*target.Layout, vk.ImageLayoutGeneral,
		srcStage, srcAccess,
		vk.PipelineStageComputeShaderBit, vk.AccessShaderWriteBit)
	*target.Layout = vk.ImageLayoutGeneral

	cmd.CmdBindComputePipeline(p.pipeline)
	cmd.CmdBindDescriptorSets(vk.PipelineBindPointCompute, p.layout, 0, set)

	extent := target.Image.Extent
	cmd.CmdDispatch(int(computeGroupCount(extent.Width)), int(computeGroupCount(extent.Height)), 1)
}
