package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestPipelineRuntimeValid(t *testing.T) {
	r := PipelineRuntime{}
	assert.False(t, r.Valid())

	r = PipelineRuntime{
		Device:      &Device{},
		Window:      &Window{},
		ImageCount:  3,
		ColorFormat: vk.FormatB8g8r8a8Unorm,
	}
	assert.True(t, r.Valid())

	r.ImageCount = 0
	assert.False(t, r.Valid())
}

func TestFrameColorSourceViewValid(t *testing.T) {
	var v FrameColorSourceView
	assert.False(t, v.Valid())

	// A null image view is never samplable, regardless of the rest.
	v = FrameColorSourceView{
		ImageView: vk.NullImageView,
		Layout:    vk.ImageLayoutShaderReadOnlyOptimal,
		Extent:    vk.Extent2D{Width: 640, Height: 360},
	}
	assert.False(t, v.Valid())
}

func TestSwapchainStateTracker(t *testing.T) {
	tracker := &swapchainStateTracker{}

	state := SwapchainState{
		Generation:  1,
		Extent:      vk.Extent2D{Width: 800, Height: 600},
		ImageCount:  3,
		ColorFormat: vk.FormatB8g8r8a8Unorm,
		DepthFormat: vk.FormatD32Sfloat,
	}

	// First observation diffs against the zero state.
	summary := tracker.Observe(state)
	assert.True(t, summary.Any())

	summary = tracker.Observe(state)
	assert.False(t, summary.Any())
	assert.False(t, summary.ExtentOrDepthChanged())
	assert.False(t, summary.ColorOrDepthChanged())

	state.Extent.Width = 1024
	summary = tracker.Observe(state)
	assert.True(t, summary.ExtentChanged)
	assert.True(t, summary.ExtentOrDepthChanged())
	assert.False(t, summary.ColorOrDepthChanged())

	state.ColorFormat = vk.FormatR8g8b8a8Unorm
	summary = tracker.Observe(state)
	assert.False(t, summary.ExtentChanged)
	assert.True(t, summary.ColorFormatChanged)
	assert.True(t, summary.ColorOrDepthChanged())

	state.DepthFormat = vk.FormatD24UnormS8Uint
	summary = tracker.Observe(state)
	assert.True(t, summary.DepthFormatChanged)
	assert.True(t, summary.ExtentOrDepthChanged())
	assert.True(t, summary.ColorOrDepthChanged())
}
