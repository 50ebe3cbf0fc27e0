package rtr

import (
	"fmt"
	"log"

	vk "github.com/vulkan-go/vulkan"
)

// FrameTicket is the handle to one in-flight frame, handed out by
// BeginFrame and consumed by SubmitAndPresent.
type FrameTicket struct {
	FrameIndex uint32
	ImageIndex uint32
	Cmd        *CommandBuffer
}

// SwapchainState is a snapshot of the presentable surface. Generation is
// bumped on every swapchain rebuild so pipelines can detect staleness with
// a single comparison.
type SwapchainState struct {
	Generation  uint64
	Extent      vk.Extent2D
	ImageCount  uint32
	ColorFormat vk.Format
	DepthFormat vk.Format
}

// FrameScheduler owns the swapchain and the CPU/GPU frame pacing state:
// per-frame fences and acquire semaphores, and per-image present
// semaphores. It hides swapchain loss behind BeginFrame returning a nil
// ticket for frames that must be skipped.
type FrameScheduler struct {
	Device *Device

	graphicsQueue *Queue
	presentQueue  *Queue
	window        *Window
	surface       vk.Surface

	swapchain   *Swapchain
	commandPool *CommandPool
	depthFormat vk.Format

	frameCmds      [FramesInFlight]*CommandBuffer
	imageAvailable [FramesInFlight]vk.Semaphore
	inFlight       [FramesInFlight]vk.Fence

	// One per swapchain image. Keyed by image index so presents of the
	// same image can never race on a semaphore still in flight.
	renderFinished []vk.Semaphore

	currentFrame    int
	generation      uint64
	resizeRequested bool
}

var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

func CreateFrameScheduler(device *Device, graphicsQueue, presentQueue *Queue, window *Window, surface vk.Surface) (*FrameScheduler, error) {
	fs := &FrameScheduler{
		Device:        device,
		graphicsQueue: graphicsQueue,
		presentQueue:  presentQueue,
		window:        window,
		surface:       surface,
		generation:    1,
	}

	var err error
	fs.depthFormat, err = device.PhysicalDevice.FindSupportedFormat(depthFormatCandidates,
		vk.ImageTilingOptimal, vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
	if err != nil {
		return nil, fmt.Errorf("unable to pick a depth format: %w", err)
	}

	fs.swapchain, err = device.CreateSwapchain(surface, graphicsQueue, presentQueue, &CreateSwapchainOptions{
		ActualSize: window.FramebufferSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create swapchain: %w", err)
	}

	fs.commandPool, err = device.CreateCommandPool(graphicsQueue.QueueFamily, vk.CommandPoolCreateResetCommandBufferBit)
	if err != nil {
		fs.swapchain.Destroy()
		return nil, err
	}

	for i := 0; i < FramesInFlight; i++ {
		fs.frameCmds[i], err = fs.commandPool.AllocateBuffer()
		if err != nil {
			fs.Destroy()
			return nil, err
		}
		fs.imageAvailable[i], err = device.VKCreateSemaphore()
		if err != nil {
			fs.Destroy()
			return nil, err
		}
		// Signaled so the first wait on each frame slot passes.
		fs.inFlight[i], err = device.VKCreateFence(true)
		if err != nil {
			fs.Destroy()
			return nil, err
		}
	}

	err = fs.createPerImageSemaphores()
	if err != nil {
		fs.Destroy()
		return nil, err
	}

	window.OnResize(func(width, height int) {
		fs.resizeRequested = true
	})

	return fs, nil
}

func (fs *FrameScheduler) createPerImageSemaphores() error {
	fs.renderFinished = make([]vk.Semaphore, len(fs.swapchain.Images))
	for i := range fs.renderFinished {
		var err error
		fs.renderFinished[i], err = fs.Device.VKCreateSemaphore()
		if err != nil {
			return err
		}
	}
	return nil
}

func (fs *FrameScheduler) destroyPerImageSemaphores() {
	for _, s := range fs.renderFinished {
		if s != vk.NullSemaphore {
			fs.Device.VKDestroySemaphore(s)
		}
	}
	fs.renderFinished = nil
}

// SwapchainState reports the current surface snapshot.
func (fs *FrameScheduler) SwapchainState() SwapchainState {
	return SwapchainState{
		Generation:  fs.generation,
		Extent:      fs.swapchain.Extent,
		ImageCount:  uint32(len(fs.swapchain.Images)),
		ColorFormat: fs.swapchain.Format,
		DepthFormat: fs.depthFormat,
	}
}

// Swapchain exposes the current swapchain. The pointer is invalidated by
// any rebuild; consult SwapchainState().Generation before caching views.
func (fs *FrameScheduler) Swapchain() *Swapchain {
	return fs.swapchain
}

// BeginFrame waits for the frame slot's previous work, acquires the next
// swapchain image and returns a ticket for recording. A nil ticket with a
// nil error means the frame must be skipped; the swapchain was rebuilt or
// the frame could not start, and the caller should simply try again next
// iteration.
func (fs *FrameScheduler) BeginFrame() (*FrameTicket, error) {
	res := fs.Device.VKWaitForFenceForever(fs.inFlight[fs.currentFrame])
	if res != vk.Success {
		log.Printf("frame fence wait returned %d, skipping frame", res)
		return nil, nil
	}

	var imageIndex uint32
	res = vk.AcquireNextImage(fs.Device.VKDevice, fs.swapchain.VKSwapchain, vk.MaxUint64,
		fs.imageAvailable[fs.currentFrame], vk.NullFence, &imageIndex)

	if res == vk.ErrorOutOfDate {
		fs.Device.WaitIdle()
		err := fs.recreateSwapchain()
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
	if res != vk.Success && res != vk.Suboptimal {
		return nil, fmt.Errorf("unable to acquire swapchain image: %w", vk.Error(res))
	}

	return &FrameTicket{
		FrameIndex: uint32(fs.currentFrame),
		ImageIndex: imageIndex,
		Cmd:        fs.frameCmds[fs.currentFrame],
	}, nil
}

// SubmitAndPresent submits the ticket's command buffer and queues the image
// for presentation, then advances to the next frame slot. Swapchain loss
// reported by present triggers a rebuild; it is not an error.
func (fs *FrameScheduler) SubmitAndPresent(ticket *FrameTicket) error {
	// The fence is reset here rather than at acquire time so a frame
	// abandoned between BeginFrame and submit leaves it signaled.
	err := fs.Device.VKResetFence(fs.inFlight[ticket.FrameIndex])
	if err != nil {
		return err
	}

	waitStages := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{fs.imageAvailable[ticket.FrameIndex]},
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{ticket.Cmd.VKCommandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{fs.renderFinished[ticket.ImageIndex]},
	}

	err = vk.Error(vk.QueueSubmit(fs.graphicsQueue.VKQueue, 1, []vk.SubmitInfo{submitInfo}, fs.inFlight[ticket.FrameIndex]))
	if err != nil {
		return fmt.Errorf("unable to submit frame: %w", err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{fs.renderFinished[ticket.ImageIndex]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{fs.swapchain.VKSwapchain},
		PImageIndices:      []uint32{ticket.ImageIndex},
	}

	res := vk.QueuePresent(fs.presentQueue.VKQueue, &presentInfo)

	if res == vk.ErrorOutOfDate || res == vk.Suboptimal || fs.resizeRequested {
		fs.Device.WaitIdle()
		err = fs.recreateSwapchain()
		if err != nil {
			return err
		}
	} else if res != vk.Success {
		return fmt.Errorf("unable to present swapchain image: %w", vk.Error(res))
	}

	fs.currentFrame = (fs.currentFrame + 1) % FramesInFlight
	return nil
}

// recreateSwapchain rebuilds the swapchain at the current framebuffer size
// and bumps the generation counter. The device must be idle. A zero sized
// framebuffer (minimized window) leaves the resize request pending.
func (fs *FrameScheduler) recreateSwapchain() error {
	size := fs.window.FramebufferSize()
	if size.Width == 0 || size.Height == 0 {
		fs.resizeRequested = true
		return nil
	}

	old := fs.swapchain
	newSwapchain, err := fs.Device.CreateSwapchain(fs.surface, fs.graphicsQueue, fs.presentQueue, &CreateSwapchainOptions{
		OldSwapchain: old,
		ActualSize:   size,
	})
	if err != nil {
		return fmt.Errorf("unable to recreate swapchain: %w", err)
	}
	old.Destroy()
	fs.swapchain = newSwapchain

	fs.destroyPerImageSemaphores()
	err = fs.createPerImageSemaphores()
	if err != nil {
		return err
	}

	fs.resizeRequested = false
	fs.generation++
	return nil
}

func (fs *FrameScheduler) Destroy() {
	fs.Device.WaitIdle()

	fs.destroyPerImageSemaphores()
	for i := 0; i < FramesInFlight; i++ {
		if fs.imageAvailable[i] != vk.NullSemaphore {
			fs.Device.VKDestroySemaphore(fs.imageAvailable[i])
			fs.imageAvailable[i] = vk.NullSemaphore
		}
		if fs.inFlight[i] != vk.NullFence {
			fs.Device.VKDestroyFence(fs.inFlight[i])
			fs.inFlight[i] = vk.NullFence
		}
	}
	if fs.commandPool != nil {
		fs.commandPool.Destroy()
		fs.commandPool = nil
	}
	if fs.swapchain != nil {
		fs.swapchain.Destroy()
		fs.swapchain = nil
	}
}
