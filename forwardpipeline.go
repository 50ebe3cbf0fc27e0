package rtr

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

var (
	ErrNoResourceManager   = errors.New("no resource manager bound")
	ErrNoSceneViewProvider = errors.New("no scene view provider bound")
	ErrNoSceneView         = errors.New("no scene view prepared for this frame")
	ErrTooManyRenderables  = errors.New("scene view exceeds the renderable capacity")
)

// ObjectUniform is the per-object GPU constant block. Matrices are packed
// row major to match the shader-side declaration.
type ObjectUniform struct {
	Model     [16]float32
	View      [16]float32
	Proj      [16]float32
	Normal    [16]float32
	BaseColor [4]float32
}

// packRowMajor transposes a column major matrix into a flat row major
// array.
func packRowMajor(m lin.Mat4x4) [16]float32 {
	var out [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row*4+col] = m[col][row]
		}
	}
	return out
}

// ForwardPipeline renders lit geometry into offscreen scene targets and
// blits the result onto the swapchain image. The scene targets can follow
// the swapchain size or be driven independently through
// SetSceneViewportExtent.
type ForwardPipeline struct {
	runtime PipelineRuntime

	rm            *ResourceManager
	sceneProvider SceneViewProvider

	targets sceneTargetController
	tracker swapchainStateTracker

	// Set when a format-change rebuild fails; Render refuses to record
	// until a later rebuild succeeds.
	rebuildErr error

	colorFormat vk.Format
	depthFormat vk.Format

	renderPass     vk.RenderPass
	pipelineLayout *PipelineLayout
	pipelineCache  *PipelineCache
	pipeline       vk.Pipeline

	setLayout *DescriptorSetLayout
	pool      *DescriptorPool

	uniforms [FramesInFlight][MaxRenderables]*Buffer
	sets     [FramesInFlight][MaxRenderables]vk.DescriptorSet

	colorImages  [FramesInFlight]*Image
	colorLayouts [FramesInFlight]vk.ImageLayout
	depthImages  [FramesInFlight]*Image
	framebuffers [FramesInFlight]vk.Framebuffer

	views [FramesInFlight]*ForwardSceneView

	pass ForwardPass
}

func CreateForwardPipeline(runtime PipelineRuntime) (*ForwardPipeline, error) {
	if !runtime.Valid() {
		return nil, fmt.Errorf("invalid pipeline runtime")
	}

	p := &ForwardPipeline{
		runtime:     runtime,
		colorFormat: runtime.ColorFormat,
		depthFormat: runtime.DepthFormat,
	}

	shaderRoot, err := ResolveShaderRoot(runtime.ShaderRootDir)
	if err != nil {
		return nil, err
	}

	device := runtime.Device

	p.setLayout = device.NewDescriptorSetLayout()
	p.setLayout.AddBinding(vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
	})
	_, err = device.CreateDescriptorSetLayout(p.setLayout)
	if err != nil {
		return nil, err
	}

	p.pool = device.NewDescriptorPool()
	p.pool.AddPoolSize(vk.DescriptorTypeUniformBuffer, FramesInFlight*MaxRenderables)
	_, err = device.CreateDescriptorPool(p.pool, FramesInFlight*MaxRenderables)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	// One small uniform buffer and set per draw slot sidesteps dynamic
	// offset alignment requirements entirely.
	uniformSize := uint64(unsafe.Sizeof(ObjectUniform{}))
	for frame := 0; frame < FramesInFlight; frame++ {
		for slot := 0; slot < MaxRenderables; slot++ {
			p.uniforms[frame][slot], err = device.CreateHostBuffer(uniformSize, vk.BufferUsageUniformBufferBit)
			if err != nil {
				p.Destroy()
				return nil, err
			}

			set, err := p.pool.Allocate(p.setLayout)
			if err != nil {
				p.Destroy()
				return nil, err
			}
			set.AddBuffer(0, vk.DescriptorTypeUniformBuffer, p.uniforms[frame][slot], 0)
			set.Write()
			p.sets[frame][slot] = set.VKDescriptorSet
		}
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(p.setLayout)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.pipelineCache, err = device.CreatePipelineCache()
	if err != nil {
		p.Destroy()
		return nil, err
	}

	err = p.createRenderPass()
	if err != nil {
		p.Destroy()
		return nil, err
	}

	err = p.createGraphicsPipeline(shaderRoot)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.pass = ForwardPass{
		renderPass: p.renderPass,
		pipeline:   p.pipeline,
		layout:     p.pipelineLayout,
	}

	return p, nil
}

// createRenderPass builds a pass rendering into the offscreen scene
// targets. Initial and final color layouts are both ColorAttachmentOptimal
// because explicit barriers around the pass own all transitions.
func (p *ForwardPipeline) createRenderPass() error {
	attachments := []vk.AttachmentDescription{
		{
			Format:         p.colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		},
		{
			Format:         p.depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorRef,
		PDepthStencilAttachment: &depthRef,
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 2,
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      subpasses,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(p.runtime.Device.VKDevice, &createInfo, nil, &renderPass))
	if err != nil {
		return err
	}
	p.renderPass = renderPass
	return nil
}

func (p *ForwardPipeline) createGraphicsPipeline(shaderRoot string) error {
	config := p.runtime.Device.CreateGraphicsPipelineConfig()
	defer config.Destroy()

	err := config.AddShaderStageFromFile(filepath.Join(shaderRoot, "forward_vert.spv"), "main", vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	err = config.AddShaderStageFromFile(filepath.Join(shaderRoot, "forward_frag.spv"), "main", vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}

	config.AddVertexDescriptor(VertexLayout{})
	config.SetPipelineLayout(p.pipelineLayout)
	config.SetCullMode(vk.CullModeNone)
	config.SetDynamicState(vk.DynamicStateViewport, vk.DynamicStateScissor)

	createInfo, err := config.VKGraphicsPipelineCreateInfo(vk.Extent2D{Width: 1, Height: 1})
	if err != nil {
		return err
	}
	createInfo.RenderPass = p.renderPass

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(p.runtime.Device.VKDevice, p.pipelineCache.VKPipelineCache,
		1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		return err
	}
	p.pipeline = pipelines[0]
	return nil
}

func (p *ForwardPipeline) destroyTargets() {
	device := p.runtime.Device
	for i := 0; i < FramesInFlight; i++ {
		if p.framebuffers[i] != vk.NullFramebuffer {
			vk.DestroyFramebuffer(device.VKDevice, p.framebuffers[i], nil)
			p.framebuffers[i] = vk.NullFramebuffer
		}
		if p.colorImages[i] != nil {
			p.colorImages[i].Destroy()
			p.colorImages[i] = nil
		}
		if p.depthImages[i] != nil {
			p.depthImages[i].Destroy()
			p.depthImages[i] = nil
		}
		p.colorLayouts[i] = vk.ImageLayoutUndefined
	}
}

func (p *ForwardPipeline) createTargets(extent vk.Extent2D) error {
	device := p.runtime.Device
	for i := 0; i < FramesInFlight; i++ {
		var err error
		p.colorImages[i], err = device.CreateRenderTarget(extent, p.colorFormat,
			vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransferSrcBit|vk.ImageUsageSampledBit,
			vk.ImageAspectColorBit)
		if err != nil {
			return fmt.Errorf("unable to create scene color target: %w", err)
		}

		depthAspect := vk.ImageAspectDepthBit
		if formatHasStencil(p.depthFormat) {
			depthAspect |= vk.ImageAspectStencilBit
		}
		p.depthImages[i], err = device.CreateRenderTarget(extent, p.depthFormat,
			vk.ImageUsageDepthStencilAttachmentBit, depthAspect)
		if err != nil {
			return fmt.Errorf("unable to create scene depth target: %w", err)
		}

		attachments := []vk.ImageView{p.colorImages[i].VKView, p.depthImages[i].VKView}
		fbCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      p.renderPass,
			Layers:          1,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
		}
		err = vk.Error(vk.CreateFramebuffer(device.VKDevice, &fbCreateInfo, nil, &p.framebuffers[i]))
		if err != nil {
			return err
		}

		p.colorLayouts[i] = vk.ImageLayoutUndefined
	}
	return nil
}

// SetResourceManager binds the manager meshes are pulled from.
func (p *ForwardPipeline) SetResourceManager(rm *ResourceManager) {
	p.rm = rm
}

// SetSceneViewProvider binds the per-frame scene snapshot source.
func (p *ForwardPipeline) SetSceneViewProvider(provider SceneViewProvider) {
	p.sceneProvider = provider
}

// SetSceneViewportExtent requests a scene target size decoupled from the
// swapchain.
func (p *ForwardPipeline) SetSceneViewportExtent(extent vk.Extent2D) {
	p.targets.SetViewportExtent(extent)
}

// PrepareFrame pulls the scene snapshot for the upcoming frame.
func (p *ForwardPipeline) PrepareFrame(prep *FramePrepareContext) error {
	if p.sceneProvider == nil {
		return ErrNoSceneViewProvider
	}
	p.views[prep.FrameIndex] = p.sceneProvider(prep.FrameIndex)
	return nil
}

// FrameColorSourceView exposes the scene color target for sampling by a
// wrapping pipeline.
func (p *ForwardPipeline) FrameColorSourceView(frameIndex uint32) FrameColorSourceView {
	img := p.colorImages[frameIndex]
	if img == nil {
		return FrameColorSourceView{}
	}
	return FrameColorSourceView{
		ImageView: img.VKView,
		Layout:    p.colorLayouts[frameIndex],
		Extent:    img.Extent,
	}
}

func (p *ForwardPipeline) OnResize(width, height int) {
	// Only matters when the scene follows the swapchain; a bound viewport
	// keeps its own size.
	if p.targets.viewportExtent.Width == 0 {
		p.targets.MarkDirty()
	}
}

func (p *ForwardPipeline) OnSwapchainStateChanged(state SwapchainState) {
	summary := p.tracker.Observe(state)

	if summary.ColorOrDepthChanged() {
		p.runtime.Device.WaitIdle()
		p.colorFormat = state.ColorFormat
		p.depthFormat = state.DepthFormat

		vk.DestroyPipeline(p.runtime.Device.VKDevice, p.pipeline, nil)
		vk.DestroyRenderPass(p.runtime.Device.VKDevice, p.renderPass, nil)
		p.pipeline = vk.NullPipeline
		p.renderPass = vk.NullRenderPass

		shaderRoot, err := ResolveShaderRoot(p.runtime.ShaderRootDir)
		if err == nil {
			if err = p.createRenderPass(); err == nil {
				err = p.createGraphicsPipeline(shaderRoot)
			}
		}
		if err != nil {
			log.Printf("forward pipeline rebuild failed: %v", err)
		}
		p.rebuildErr = err
		p.pass.renderPass = p.renderPass
		p.pass.pipeline = p.pipeline
		p.targets.MarkDirty()
		return
	}

	if summary.ExtentOrDepthChanged() {
		p.targets.MarkDirty()
	}
}

// Render draws the prepared scene into the offscreen targets and blits the
// result to the swapchain image, leaving it in ColorAttachmentOptimal.
func (p *ForwardPipeline) Render(frame *FrameContext) error {
	if p.rebuildErr != nil {
		return p.rebuildErr
	}

	extent := p.targets.DesiredExtent(frame.Extent)
	if extent.Width == 0 || extent.Height == 0 {
		return nil
	}

	if p.rm == nil {
		return ErrNoResourceManager
	}

	view := p.views[frame.FrameIndex]
	if view == nil {
		return ErrNoSceneView
	}
	if len(view.Renderables) > MaxRenderables {
		return fmt.Errorf("%w: %d renderables, capacity %d",
			ErrTooManyRenderables, len(view.Renderables), MaxRenderables)
	}

	if p.targets.NeedsRebuild(frame.Extent) {
		p.runtime.Device.WaitIdle()
		p.destroyTargets()
		err := p.createTargets(extent)
		if err != nil {
			return err
		}
		p.targets.Rebuilt(extent)
	}

	items := make([]ForwardDrawItem, len(view.Renderables))
	for i, r := range view.Renderables {
		uniform := ObjectUniform{
			Model:  packRowMajor(r.Model),
			View:   packRowMajor(view.Camera.View),
			Proj:   packRowMajor(view.Camera.Proj),
			Normal: packRowMajor(r.Normal),
			BaseColor: [4]float32{
				r.BaseColor[0], r.BaseColor[1], r.BaseColor[2], r.BaseColor[3],
			},
		}
		buf := p.uniforms[frame.FrameIndex][i]
		copy(buf.Bytes(), ToBytes(unsafe.Pointer(&uniform), int(unsafe.Sizeof(uniform))))

		mesh, err := p.rm.RequireMesh(r.Mesh)
		if err != nil {
			return err
		}
		items[i] = ForwardDrawItem{
			Mesh:          mesh,
			DescriptorSet: p.sets[frame.FrameIndex][i],
		}
	}

	colorTracked := TrackedImage{
		Image:  p.colorImages[frame.FrameIndex],
		Layout: &p.colorLayouts[frame.FrameIndex],
	}
	frame.RegisterImage("scene_color", &colorTracked)

	p.pass.Execute(frame.Cmd, &ForwardPassResources{
		Color:       colorTracked,
		Depth:       p.depthImages[frame.FrameIndex],
		Framebuffer: p.framebuffers[frame.FrameIndex],
		Extent:      extent,
		Items:       items,
	})

	p.blitToSwapchain(frame, extent)
	return nil
}

// blitToSwapchain scales the scene color target onto the swapchain image
// and leaves the target sampleable.
func (p *ForwardPipeline) blitToSwapchain(frame *FrameContext, sceneExtent vk.Extent2D) {
	cmd := frame.Cmd
	color := p.colorImages[frame.FrameIndex]

	cmd.CmdTransitionImageLayout(color.VKImage, vk.ImageAspectColorBit,
		p.colorLayouts[frame.FrameIndex], vk.ImageLayoutTransferSrcOptimal,
		vk.PipelineStageColorAttachmentOutputBit, vk.AccessColorAttachmentWriteBit,
		vk.PipelineStageTransferBit, vk.AccessTransferReadBit)

	cmd.CmdTransitionImageLayout(frame.SwapchainImage, vk.ImageAspectColorBit,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		vk.PipelineStageTopOfPipeBit, 0,
		vk.PipelineStageTransferBit, vk.AccessTransferWriteBit)

	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
	}
	region.SrcOffsets[1] = vk.Offset3D{X: int32(sceneExtent.Width), Y: int32(sceneExtent.Height), Z: 1}
	region.DstOffsets[1] = vk.Offset3D{X: int32(frame.Extent.Width), Y: int32(frame.Extent.Height), Z: 1}

	vk.CmdBlitImage(cmd.VK(),
		color.VKImage, vk.ImageLayoutTransferSrcOptimal,
		frame.SwapchainImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, vk.FilterLinear)

	cmd.CmdTransitionImageLayout(frame.SwapchainImage, vk.ImageAspectColorBit,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutColorAttachmentOptimal,
		vk.PipelineStageTransferBit, vk.AccessTransferWriteBit,
		vk.PipelineStageColorAttachmentOutputBit, vk.AccessColorAttachmentWriteBit)

	cmd.CmdTransitionImageLayout(color.VKImage, vk.ImageAspectColorBit,
		vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.PipelineStageTransferBit, vk.AccessTransferReadBit,
		vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit)

	p.colorLayouts[frame.FrameIndex] = vk.ImageLayoutShaderReadOnlyOptimal
}

func (p *ForwardPipeline) Destroy() {
	device := p.runtime.Device
	device.WaitIdle()

	p.destroyTargets()

	if p.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(device.VKDevice, p.pipeline, nil)
		p.pipeline = vk.NullPipeline
	}
	if p.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(device.VKDevice, p.renderPass, nil)
		p.renderPass = vk.NullRenderPass
	}
	if p.pipelineCache != nil {
		p.pipelineCache.Destroy(device)
		p.pipelineCache = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Destroy()
		p.pipelineLayout = nil
	}
	for frame := 0; frame < FramesInFlight; frame++ {
		for slot := 0; slot < MaxRenderables; slot++ {
			if p.uniforms[frame][slot] != nil {
				p.uniforms[frame][slot].Destroy()
				p.uniforms[frame][slot] = nil
			}
		}
	}
	if p.pool != nil {
		p.pool.Destroy()
		p.pool = nil
	}
	if p.setLayout != nil && p.setLayout.VKDescriptorSetLayout != vk.NullDescriptorSetLayout {
		p.setLayout.Destroy()
		p.setLayout = nil
	}
}
