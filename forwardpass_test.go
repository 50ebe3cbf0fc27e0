package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestBarrierSourceForLayout(t *testing.T) {
	cases := []struct {
		layout vk.ImageLayout
		stage  vk.PipelineStageFlagBits
		access vk.AccessFlagBits
	}{
		{vk.ImageLayoutUndefined, vk.PipelineStageTopOfPipeBit, 0},
		{vk.ImageLayoutShaderReadOnlyOptimal, vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit},
		{vk.ImageLayoutGeneral, vk.PipelineStageComputeShaderBit, vk.AccessShaderWriteBit},
		{vk.ImageLayoutColorAttachmentOptimal, vk.PipelineStageColorAttachmentOutputBit, vk.AccessColorAttachmentWriteBit},
		{vk.ImageLayoutTransferSrcOptimal, vk.PipelineStageTransferBit, vk.AccessTransferReadBit},
		{vk.ImageLayoutTransferDstOptimal, vk.PipelineStageTransferBit, vk.AccessTransferWriteBit},
		// Unmapped layouts fall back to a full wait at the top of the pipe.
		{vk.ImageLayoutPresentSrc, vk.PipelineStageTopOfPipeBit, 0},
	}

	for _, c := range cases {
		stage, access := barrierSourceForLayout(c.layout)
		assert.Equal(t, c.stage, stage, "layout %d", c.layout)
		assert.Equal(t, c.access, access, "layout %d", c.layout)
	}
}

func TestForwardPassDependencies(t *testing.T) {
	p := &ForwardPass{}
	assert.Equal(t, "forward", p.Name())

	deps := p.Dependencies()
	assert.Len(t, deps, 2)
	for _, dep := range deps {
		assert.Equal(t, ResourceWrite, dep.Access)
	}
}
