package rtr

import (
	"errors"
	"fmt"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

var (
	ErrNilPipeline   = errors.New("pipeline must not be nil")
	ErrPipelineBound = errors.New("a pipeline is already bound")
	ErrNoPipeline    = errors.New("no pipeline bound")
)

// RendererOptions configures renderer construction.
type RendererOptions struct {
	AppName          string
	Width            int
	Height           int
	ShaderRoot       string
	EnableValidation bool
}

// Renderer owns the window, vulkan device and frame scheduler, and drives
// one bound RenderPipeline. A transient command pool provides a compute
// side-channel for GPU work outside the frame loop.
type Renderer struct {
	window   *Window
	instance *Instance
	surface  vk.Surface
	device   *Device

	graphicsQueue *Queue
	presentQueue  *Queue

	scheduler     *FrameScheduler
	resources     *ResourceManager
	transientPool *CommandPool

	shaderRoot string

	pipeline       RenderPipeline
	lastGeneration uint64
}

// NewRenderer brings up the whole vulkan stack over a new window. The
// windowing layer must already be initialized via InitWindowing.
func NewRenderer(opts RendererOptions) (*Renderer, error) {
	r := &Renderer{shaderRoot: opts.ShaderRoot}

	var err error
	r.window, err = CreateWindow(opts.Width, opts.Height, opts.AppName)
	if err != nil {
		return nil, err
	}

	app := &App{
		Name:       opts.AppName,
		EngineName: "rtr",
		Version:    Version{Major: 1},
		APIVersion: Version{Major: 1, Minor: 1},
	}
	for _, ext := range r.window.RequiredInstanceExtensions() {
		app.EnableExtension(ext)
	}
	if opts.EnableValidation {
		app.EnableDebugging()
	}

	r.instance, err = app.CreateInstance()
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("unable to create instance: %w", err)
	}
	if opts.EnableValidation {
		r.instance.UseDefaultDebugCallback()
	}

	r.surface, err = r.window.CreateSurface(r.instance)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	physicalDevices, err := r.instance.PhysicalDevices()
	if err != nil {
		r.Destroy()
		return nil, err
	}
	if len(physicalDevices) == 0 {
		r.Destroy()
		return nil, fmt.Errorf("no vulkan capable devices found")
	}
	physicalDevice := physicalDevices[0]

	queueFamilies, err := physicalDevice.QueueFamilies()
	if err != nil {
		r.Destroy()
		return nil, err
	}

	families := queueFamilies.FilterGraphicsAndPresent(r.surface)
	if len(families) == 0 {
		r.Destroy()
		return nil, fmt.Errorf("no queue family supports both graphics and present")
	}

	r.device, err = physicalDevice.CreateLogicalDeviceWithOptions(families[:1], &CreateDeviceOptions{
		EnabledExtensions: []string{"VK_KHR_swapchain"},
	})
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("unable to create device: %w", err)
	}

	r.graphicsQueue = r.device.GetQueue(families[0])
	r.presentQueue = r.graphicsQueue

	r.scheduler, err = CreateFrameScheduler(r.device, r.graphicsQueue, r.presentQueue, r.window, r.surface)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.transientPool, err = r.device.CreateCommandPool(families[0], vk.CommandPoolCreateTransientBit)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.resources = CreateResourceManager(r.device, r.transientPool, r.graphicsQueue)

	return r, nil
}

// Window exposes the renderer's window for event polling.
func (r *Renderer) Window() *Window {
	return r.window
}

// Resources exposes the renderer's mesh resource manager.
func (r *Renderer) Resources() *ResourceManager {
	return r.resources
}

// Runtime builds the construction context pipelines are created with.
func (r *Renderer) Runtime() PipelineRuntime {
	state := r.scheduler.SwapchainState()
	return PipelineRuntime{
		Device:        r.device,
		Window:        r.window,
		GraphicsQueue: r.graphicsQueue,
		ImageCount:    state.ImageCount,
		ColorFormat:   state.ColorFormat,
		DepthFormat:   state.DepthFormat,
		ShaderRootDir: r.shaderRoot,
	}
}

// TransientPool exposes the pool used for one-shot uploads.
func (r *Renderer) TransientPool() *CommandPool {
	return r.transientPool
}

// GraphicsQueue exposes the queue frames and uploads are submitted to.
func (r *Renderer) GraphicsQueue() *Queue {
	return r.graphicsQueue
}

// SetPipeline binds the pipeline driven by DrawFrame. Binding is
// permanent for the renderer's lifetime; a second call fails.
func (r *Renderer) SetPipeline(p RenderPipeline) error {
	if p == nil {
		return ErrNilPipeline
	}
	if r.pipeline != nil {
		return ErrPipelineBound
	}
	r.pipeline = p

	if aware, ok := p.(ResourceAwarePipeline); ok {
		aware.SetResourceManager(r.resources)
	}

	r.window.OnResize(func(width, height int) {
		r.pipeline.OnResize(width, height)
	})

	state := r.scheduler.SwapchainState()
	p.OnSwapchainStateChanged(state)
	r.lastGeneration = state.Generation

	return nil
}

// DrawFrame renders and presents one frame through the bound pipeline.
// Frames skipped for swapchain rebuilds return nil.
func (r *Renderer) DrawFrame() error {
	if r.pipeline == nil {
		return ErrNoPipeline
	}

	ticket, err := r.scheduler.BeginFrame()
	if err != nil {
		return err
	}
	if ticket == nil {
		return nil
	}

	state := r.scheduler.SwapchainState()
	if state.Generation != r.lastGeneration {
		r.pipeline.OnSwapchainStateChanged(state)
		r.lastGeneration = state.Generation
	}

	if preparer, ok := r.pipeline.(FramePreparePipeline); ok {
		err = preparer.PrepareFrame(&FramePrepareContext{FrameIndex: ticket.FrameIndex})
		if err != nil {
			return err
		}
	}

	swapchain := r.scheduler.Swapchain()
	frame := &FrameContext{
		FrameIndex:     ticket.FrameIndex,
		ImageIndex:     ticket.ImageIndex,
		Generation:     state.Generation,
		Cmd:            ticket.Cmd,
		Extent:         state.Extent,
		SwapchainImage: swapchain.Images[ticket.ImageIndex],
		SwapchainView:  swapchain.Views[ticket.ImageIndex],
	}

	err = ticket.Cmd.Reset()
	if err != nil {
		return err
	}
	err = ticket.Cmd.Begin()
	if err != nil {
		return err
	}

	err = r.pipeline.Render(frame)
	if err != nil {
		return err
	}

	// Pipelines leave the swapchain image in ColorAttachmentOptimal; the
	// renderer owns the transition to the presentable layout.
	ticket.Cmd.CmdTransitionImageLayout(frame.SwapchainImage, vk.ImageAspectColorBit,
		vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc,
		vk.PipelineStageColorAttachmentOutputBit, vk.AccessColorAttachmentWriteBit,
		vk.PipelineStageBottomOfPipeBit, 0)

	err = ticket.Cmd.End()
	if err != nil {
		return err
	}

	return r.scheduler.SubmitAndPresent(ticket)
}

// ComputeAsync records a one-shot command buffer and submits it on the
// graphics queue, returning a job handle. The optional onComplete callback
// fires from the first IsDone, Wait or Destroy that observes completion.
func (r *Renderer) ComputeAsync(record func(cmd *CommandBuffer) error, onComplete func()) (*ComputeJob, error) {
	cmd, err := r.transientPool.AllocateBuffer()
	if err != nil {
		return nil, err
	}

	err = cmd.BeginOneTime()
	if err != nil {
		r.transientPool.FreeBuffer(cmd)
		return nil, err
	}

	err = record(cmd)
	if err != nil {
		r.transientPool.FreeBuffer(cmd)
		return nil, err
	}

	err = cmd.End()
	if err != nil {
		r.transientPool.FreeBuffer(cmd)
		return nil, err
	}

	fence, err := r.device.VKCreateFence(false)
	if err != nil {
		r.transientPool.FreeBuffer(cmd)
		return nil, err
	}

	err = r.graphicsQueue.SubmitWithFence(fence, cmd)
	if err != nil {
		r.device.VKDestroyFence(fence)
		r.transientPool.FreeBuffer(cmd)
		return nil, fmt.Errorf("unable to submit compute work: %w", err)
	}

	return &ComputeJob{
		device:     r.device,
		pool:       r.transientPool,
		cmd:        cmd,
		fence:      fence,
		onComplete: onComplete,
	}, nil
}

// Compute runs one-shot GPU work synchronously with a deadline.
func (r *Renderer) Compute(record func(cmd *CommandBuffer) error, timeout time.Duration) error {
	job, err := r.ComputeAsync(record, nil)
	if err != nil {
		return err
	}
	defer job.Destroy()
	return job.Wait(timeout)
}

func (r *Renderer) Destroy() {
	if r.device != nil {
		r.device.WaitIdle()
	}

	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.resources != nil {
		r.resources.Destroy()
		r.resources = nil
	}
	if r.scheduler != nil {
		r.scheduler.Destroy()
		r.scheduler = nil
	}
	if r.transientPool != nil {
		r.transientPool.Destroy()
		r.transientPool = nil
	}
	if r.surface != vk.NullSurface && r.instance != nil {
		vk.DestroySurface(r.instance.VKInstance, r.surface, nil)
		r.surface = vk.NullSurface
	}
	if r.device != nil {
		r.device.Destroy()
		r.device = nil
	}
	if r.instance != nil {
		r.instance.Destroy()
		r.instance = nil
	}
	if r.window != nil {
		r.window.Destroy()
		r.window = nil
	}
}
