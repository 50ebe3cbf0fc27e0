package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// presentImagePass draws a fullscreen triangle sampling the offscreen
// image into the swapchain attachment.
type presentImagePass struct {
	renderPass vk.RenderPass
	pipeline   vk.Pipeline
	layout     *PipelineLayout
}

func (p *presentImagePass) Name() string { return "present_image" }

func (p *presentImagePass) Dependencies() []ResourceDependency {
	return []ResourceDependency{
		{Name: "shadertoy_output", Access: ResourceRead},
	}
}

// Execute moves the sampled source into ShaderReadOnly, then rasterizes a
// single fullscreen triangle over the swapchain framebuffer. The sampler
// set lives at set index 1; set 0 is reserved for the compute-side layout
// so both stages can share pipeline layouts.
func (p *presentImagePass) Execute(cmd *CommandBuffer, framebuffer vk.Framebuffer, extent vk.Extent2D, source TrackedImage, set *DescriptorSet) {
	srcStage, srcAccess := barrierSourceForLayout(*source.Layout)
	cmd.CmdTransitionImageLayout(source.Image.VKImage, vk.ImageAspectColorBit,
		*source.Layout, vk.ImageLayoutShaderReadOnlyOptimal,
		srcStage, srcAccess,
		vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit)
	*source.Layout = vk.ImageLayoutShaderReadOnlyOptimal

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{0.0, 0.0, 0.0, 1.0})

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  p.renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(cmd.VK(), &beginInfo, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd.VK(), vk.PipelineBindPointGraphics, p.pipeline)
	cmd.CmdSetViewportScissor(extent)
	cmd.CmdBindDescriptorSets(vk.PipelineBindPointGraphics, p.layout, 1, set)
	vk.CmdDraw(cmd.VK(), 3, 1, 0, 0)
	vk.CmdEndRenderPass(cmd.VK())
}
