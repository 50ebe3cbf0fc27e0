/*
Package rtr implements a Vulkan render-pipeline runtime: the layer of a
real-time renderer that owns the swapchain, orchestrates frames in flight,
routes per-frame GPU resources between render passes, and recreates the
swapchain when the window resizes or presentation goes out of date.

The runtime is built from a handful of cooperating pieces:

	FrameScheduler	owns the swapchain, per-frame and per-image sync
			objects, and hands out FrameTickets
	RenderPipeline	the pipeline contract; implementations compose
			render passes and react to swapchain state changes
	FrameContext	per-frame facade passed into render passes
	ForwardPipeline	raster pipeline drawing into an offscreen color
			image and blitting it to the swapchain
	ShaderToyPipeline	compute pass writing a storage image plus a
			full-screen present pass sampling it
	EditorOverlayPipeline	wraps another pipeline and republishes its
			offscreen color as an ImGui texture
	Renderer	top-level orchestrator; binds exactly one pipeline
			and drives DrawFrame, plus a one-shot compute
			side channel independent of presentation

Native Vulkan handles are exposed on all wrapper objects with a 'VK'
prefix in the field name, so applications are never limited by what the
wrappers choose to surface.

The CPU side is single threaded: the Renderer, FrameScheduler and all
pipelines assume one owner goroutine. Parallelism happens on the GPU via
FramesInFlight concurrently recorded frames, each frame slot owning its
own command buffer, uniform buffers, descriptor sets and offscreen
images.
*/
package rtr
