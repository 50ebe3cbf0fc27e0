package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// ForwardDrawItem is one mesh draw with its per-object descriptor set
// already written for the current frame slot.
type ForwardDrawItem struct {
	Mesh          *Mesh
	DescriptorSet vk.DescriptorSet
}

// ForwardPassResources is everything the forward pass needs for one frame:
// the scene color and depth targets, the framebuffer binding them, and the
// prepared draw list.
type ForwardPassResources struct {
	Color       TrackedImage
	Depth       *Image
	Framebuffer vk.Framebuffer
	Extent      vk.Extent2D
	Items       []ForwardDrawItem
}

// ForwardPass records the lit geometry pass into the scene color target.
type ForwardPass struct {
	renderPass vk.RenderPass
	pipeline   vk.Pipeline
	layout     *PipelineLayout
}

func (p *ForwardPass) Name() string { return "forward" }

func (p *ForwardPass) Dependencies() []ResourceDependency {
	return []ResourceDependency{
		{Name: "scene_color", Access: ResourceWrite},
		{Name: "scene_depth", Access: ResourceWrite},
	}
}

// Execute transitions the targets, renders all draw items and leaves the
// color target in ColorAttachmentOptimal.
func (p *ForwardPass) Execute(cmd *CommandBuffer, res *ForwardPassResources) {
	srcStage, srcAccess := barrierSourceForLayout(*res.Color.Layout)
	cmd.CmdTransitionImageLayout(res.Color.Image.VKImage, vk.ImageAspectColorBit,
		*res.Color.Layout, vk.ImageLayoutColorAttachmentOptimal,
		srcStage, srcAccess,
		vk.PipelineStageColorAttachmentOutputBit, vk.AccessColorAttachmentWriteBit)

	cmd.CmdTransitionImageLayout(res.Depth.VKImage, res.Depth.Aspect,
		vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal,
		vk.PipelineStageTopOfPipeBit, 0,
		vk.PipelineStageEarlyFragmentTestsBit, vk.AccessDepthStencilAttachmentWriteBit)

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{0.0, 0.0, 0.0, 1.0})
	clearValues[1].SetDepthStencil(1.0, 0)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  p.renderPass,
		Framebuffer: res.Framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: res.Extent,
		},
		ClearValueCount: 2,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(cmd.VK(), &beginInfo, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd.VK(), vk.PipelineBindPointGraphics, p.pipeline)
	cmd.CmdSetViewportScissor(res.Extent)

	for _, item := range res.Items {
		vk.CmdBindVertexBuffers(cmd.VK(), 0, 1,
			[]vk.Buffer{item.Mesh.VertexBuffer.VKBuffer}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cmd.VK(), item.Mesh.IndexBuffer.VKBuffer, 0, vk.IndexTypeUint32)
		vk.CmdBindDescriptorSets(cmd.VK(), vk.PipelineBindPointGraphics,
			p.layout.VKPipelineLayout, 0, 1, []vk.DescriptorSet{item.DescriptorSet}, 0, nil)
		vk.CmdDrawIndexed(cmd.VK(), item.Mesh.IndexCount, 1, 0, 0, 0)
	}

	vk.CmdEndRenderPass(cmd.VK())

	*res.Color.Layout = vk.ImageLayoutColorAttachmentOptimal
}

// barrierSourceForLayout picks the stage and access a barrier must wait on
// given the layout an image was last left in.
func barrierSourceForLayout(layout vk.ImageLayout) (vk.PipelineStageFlagBits, vk.AccessFlagBits) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return vk.PipelineStageTopOfPipeBit, 0
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit
	case vk.ImageLayoutGeneral:
		return vk.PipelineStageComputeShaderBit, vk.AccessShaderWriteBit
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.PipelineStageColorAttachmentOutputBit, vk.AccessColorAttachmentWriteBit
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.PipelineStageTransferBit, vk.AccessTransferReadBit
	case vk.ImageLayoutTransferDstOptimal:
		return vk.PipelineStageTransferBit, vk.AccessTransferWriteBit
	default:
		return vk.PipelineStageTopOfPipeBit, 0
	}
}
