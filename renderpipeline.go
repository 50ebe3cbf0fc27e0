package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// PipelineRuntime carries everything a render pipeline needs at
// construction time: the device, the window, and the current surface
// properties.
type PipelineRuntime struct {
	Device        *Device
	Window        *Window
	GraphicsQueue *Queue
	ImageCount    uint32
	ColorFormat   vk.Format
	DepthFormat   vk.Format
	ShaderRootDir string
}

// Valid reports whether the runtime is usable for pipeline construction.
func (r *PipelineRuntime) Valid() bool {
	return r.Device != nil && r.Window != nil &&
		r.ImageCount > 0 && r.ColorFormat != vk.FormatUndefined
}

// RenderPipeline is the contract between the renderer and a frame
// producer. Render records work into the frame's command buffer and must
// leave the swapchain image in ColorAttachmentOptimal layout.
type RenderPipeline interface {
	OnResize(width, height int)
	OnSwapchainStateChanged(state SwapchainState)
	Render(frame *FrameContext) error
	Destroy()
}

// FramePrepareContext is passed to pipelines that do CPU-side work before
// command recording starts.
type FramePrepareContext struct {
	FrameIndex uint32
}

// FramePreparePipeline is implemented by pipelines that pull scene data or
// update per-frame CPU state before the command buffer is opened.
type FramePreparePipeline interface {
	PrepareFrame(prep *FramePrepareContext) error
}

// ResourceAwarePipeline is implemented by pipelines that draw meshes owned
// by a ResourceManager.
type ResourceAwarePipeline interface {
	SetResourceManager(rm *ResourceManager)
}

// SceneViewportSink is implemented by pipelines that can render the scene
// at a size decoupled from the swapchain, such as into an editor viewport
// panel.
type SceneViewportSink interface {
	SetSceneViewportExtent(extent vk.Extent2D)
}

// FrameColorSourceView names an image view a consumer may sample, plus the
// layout the producer left it in.
type FrameColorSourceView struct {
	ImageView vk.ImageView
	Layout    vk.ImageLayout
	Extent    vk.Extent2D
}

// Valid reports whether the view can be sampled.
func (v FrameColorSourceView) Valid() bool {
	return v.ImageView != vk.NullImageView &&
		v.Layout != vk.ImageLayoutUndefined &&
		v.Extent.Width > 0 && v.Extent.Height > 0
}

// FrameColorSource is implemented by pipelines whose rendered color output
// can be sampled by a wrapping pipeline, keyed by frame slot.
type FrameColorSource interface {
	FrameColorSourceView(frameIndex uint32) FrameColorSourceView
}

// SwapchainChangeSummary describes which surface properties changed between
// two observed swapchain states.
type SwapchainChangeSummary struct {
	ExtentChanged      bool
	ImageCountChanged  bool
	ColorFormatChanged bool
	DepthFormatChanged bool
}

func (s SwapchainChangeSummary) Any() bool {
	return s.ExtentChanged || s.ImageCountChanged || s.ColorFormatChanged || s.DepthFormatChanged
}

func (s SwapchainChangeSummary) ExtentOrDepthChanged() bool {
	return s.ExtentChanged || s.DepthFormatChanged
}

func (s SwapchainChangeSummary) ColorOrDepthChanged() bool {
	return s.ColorFormatChanged || s.DepthFormatChanged
}

// swapchainStateTracker diffs successive swapchain states so pipelines
// rebuild only what a change actually invalidates.
type swapchainStateTracker struct {
	last SwapchainState
}

func (t *swapchainStateTracker) Observe(state SwapchainState) SwapchainChangeSummary {
	summary := SwapchainChangeSummary{
		ExtentChanged: state.Extent.Width != t.last.Extent.Width ||
			state.Extent.Height != t.last.Extent.Height,
		ImageCountChanged:  state.ImageCount != t.last.ImageCount,
		ColorFormatChanged: state.ColorFormat != t.last.ColorFormat,
		DepthFormatChanged: state.DepthFormat != t.last.DepthFormat,
	}
	t.last = state
	return summary
}
