package rtr

import (
	"fmt"
	"log"
	"path/filepath"
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

var storageFormatCandidates = []vk.Format{
	vk.FormatR16g16b16a16Sfloat,
	vk.FormatR8g8b8a8Unorm,
}

// ShaderToyPipeline runs a procedural compute shader into an offscreen
// storage image every frame and presents it with a fullscreen triangle.
// The offscreen image always matches the swapchain extent.
type ShaderToyPipeline struct {
	runtime PipelineRuntime
	tracker swapchainStateTracker

	// Set when a format-change rebuild fails; Render refuses to record
	// until a later rebuild succeeds.
	rebuildErr error

	shaderRoot    string
	start         time.Time
	storageFormat vk.Format
	colorFormat   vk.Format

	offscreen        [FramesInFlight]*Image
	offscreenLayouts [FramesInFlight]vk.ImageLayout
	offscreenExtent  vk.Extent2D

	ubos [FramesInFlight]*Buffer

	computeSetLayout *DescriptorSetLayout
	presentSetLayout *DescriptorSetLayout
	pool             *DescriptorPool
	computeSets      [FramesInFlight]*DescriptorSet
	presentSets      [FramesInFlight]*DescriptorSet
	sampler          vk.Sampler

	computeLayout   *PipelineLayout
	graphicsLayout  *PipelineLayout
	computeShader   *ShaderModule
	computePipeline *ComputePipeline
	cache           *PipelineCache

	presentRenderPass vk.RenderPass
	presentPipeline   vk.Pipeline

	// Swapchain framebuffers are created lazily per image index and
	// dropped wholesale whenever the swapchain changes.
	framebuffers map[uint32]vk.Framebuffer

	compute shaderToyComputePass
	present presentImagePass
}

func CreateShaderToyPipeline(runtime PipelineRuntime) (*ShaderToyPipeline, error) {
	if !runtime.Valid() {
		return nil, fmt.Errorf("invalid pipeline runtime")
	}

	p := &ShaderToyPipeline{
		runtime:      runtime,
		start:        time.Now(),
		colorFormat:  runtime.ColorFormat,
		framebuffers: make(map[uint32]vk.Framebuffer),
	}

	var err error
	p.shaderRoot, err = ResolveShaderRoot(runtime.ShaderRootDir)
	if err != nil {
		return nil, err
	}

	device := runtime.Device

	p.storageFormat, err = device.PhysicalDevice.FindSupportedFormat(storageFormatCandidates,
		vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit|vk.FormatFeatureSampledImageBit))
	if err != nil {
		return nil, fmt.Errorf("unable to pick a storage image format: %w", err)
	}

	p.computeSetLayout = device.NewDescriptorSetLayout()
	p.computeSetLayout.AddBinding(vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	})
	p.computeSetLayout.AddBinding(vk.DescriptorSetLayoutBinding{
		Binding:         1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	})
	_, err = device.CreateDescriptorSetLayout(p.computeSetLayout)
	if err != nil {
		return nil, err
	}

	p.presentSetLayout = device.NewDescriptorSetLayout()
	p.presentSetLayout.AddBinding(vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	})
	_, err = device.CreateDescriptorSetLayout(p.presentSetLayout)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.pool = device.NewDescriptorPool()
	p.pool.AddPoolSize(vk.DescriptorTypeUniformBuffer, FramesInFlight)
	p.pool.AddPoolSize(vk.DescriptorTypeStorageImage, FramesInFlight)
	p.pool.AddPoolSize(vk.DescriptorTypeCombinedImageSampler, FramesInFlight)
	_, err = device.CreateDescriptorPool(p.pool, 2*FramesInFlight)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	for i := 0; i < FramesInFlight; i++ {
		p.ubos[i], err = device.CreateHostBuffer(uint64(unsafe.Sizeof(ShaderToyUniform{})), vk.BufferUsageUniformBufferBit)
		if err != nil {
			p.Destroy()
			return nil, err
		}
		p.computeSets[i], err = p.pool.Allocate(p.computeSetLayout)
		if err != nil {
			p.Destroy()
			return nil, err
		}
		p.presentSets[i], err = p.pool.Allocate(p.presentSetLayout)
		if err != nil {
			p.Destroy()
			return nil, err
		}
	}

	p.sampler, err = device.CreateLinearSampler()
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.computeLayout, err = device.CreatePipelineLayout(p.computeSetLayout)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	// The graphics layout shares set 0 with the compute side so the
	// sampler set can live at index 1, matching the fragment shader.
	p.graphicsLayout, err = device.CreatePipelineLayout(p.computeSetLayout, p.presentSetLayout)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.cache, err = device.CreatePipelineCache()
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.computeShader, err = device.LoadShaderModuleFromFile(filepath.Join(p.shaderRoot, "shadertoy_comp.spv"))
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.computePipeline = &ComputePipeline{}
	p.computePipeline.SetPipelineLayout(p.computeLayout)
	p.computePipeline.SetShaderStage("main", p.computeShader)
	err = device.CreateComputePipelines(p.cache, p.computePipeline)
	if err != nil {
		p.Destroy()
		return nil, err
	}

	err = p.createPresentRenderPass()
	if err != nil {
		p.Destroy()
		return nil, err
	}

	err = p.createPresentPipeline()
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.compute = shaderToyComputePass{pipeline: p.computePipeline, layout: p.computeLayout}
	p.present = presentImagePass{renderPass: p.presentRenderPass, pipeline: p.presentPipeline, layout: p.graphicsLayout}

	return p, nil
}

// createPresentRenderPass builds the swapchain pass. The final layout is
// ColorAttachmentOptimal; the renderer owns the transition to present.
func (p *ShaderToyPipeline) createPresentRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         p.colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}}

	colorRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorRef,
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
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
	p.presentRenderPass = renderPass
	return nil
}

func (p *ShaderToyPipeline) createPresentPipeline() error {
	config := p.runtime.Device.CreateGraphicsPipelineConfig()
	defer config.Destroy()

	err := config.AddShaderStageFromFile(filepath.Join(p.shaderRoot, "shadertoy_vert.spv"), "main", vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	err = config.AddShaderStageFromFile(filepath.Join(p.shaderRoot, "shadertoy_frag.spv"), "main", vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}

	config.SetPipelineLayout(p.graphicsLayout)
	config.SetCullMode(vk.CullModeNone)
	config.SetDynamicState(vk.DynamicStateViewport, vk.DynamicStateScissor)
	config.DepthTestEnable = false
	config.DepthWriteEnable = false

	createInfo, err := config.VKGraphicsPipelineCreateInfo(vk.Extent2D{Width: 1, Height: 1})
	if err != nil {
		return err
	}
	createInfo.RenderPass = p.presentRenderPass

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(p.runtime.Device.VKDevice, p.cache.VKPipelineCache,
		1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		return err
	}
	p.presentPipeline = pipelines[0]
	return nil
}

func (p *ShaderToyPipeline) destroyOffscreen() {
	for i := 0; i < FramesInFlight; i++ {
		if p.offscreen[i] != nil {
			p.offscreen[i].Destroy()
			p.offscreen[i] = nil
		}
		p.offscreenLayouts[i] = vk.ImageLayoutUndefined
	}
	p.offscreenExtent = vk.Extent2D{}
}

// ensureOffscreen (re)creates the storage images at the given extent and
// rewrites the descriptor sets pointing at them.
func (p *ShaderToyPipeline) ensureOffscreen(extent vk.Extent2D) error {
	if p.offscreen[0] != nil &&
		p.offscreenExtent.Width == extent.Width && p.offscreenExtent.Height == extent.Height {
		return nil
	}

	device := p.runtime.Device
	device.WaitIdle()
	p.destroyOffscreen()

	for i := 0; i < FramesInFlight; i++ {
		var err error
		p.offscreen[i], err = device.CreateRenderTarget(extent, p.storageFormat,
			vk.ImageUsageStorageBit|vk.ImageUsageSampledBit, vk.ImageAspectColorBit)
		if err != nil {
			return fmt.Errorf("unable to create storage image: %w", err)
		}

		p.computeSets[i].AddBuffer(0, vk.DescriptorTypeUniformBuffer, p.ubos[i], 0)
		p.computeSets[i].AddStorageImage(1, vk.ImageLayoutGeneral, p.offscreen[i].VKView)
		p.computeSets[i].Write()

		p.presentSets[i].AddCombinedImageSampler(0, vk.ImageLayoutShaderReadOnlyOptimal, p.offscreen[i].VKView, p.sampler)
		p.presentSets[i].Write()
	}
	p.offscreenExtent = extent
	return nil
}

func (p *ShaderToyPipeline) framebufferFor(frame *FrameContext) (vk.Framebuffer, error) {
	if fb, ok := p.framebuffers[frame.ImageIndex]; ok {
		return fb, nil
	}

	attachments := []vk.ImageView{frame.SwapchainView}
	fbCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.presentRenderPass,
		Layers:          1,
		AttachmentCount: 1,
		PAttachments:    attachments,
		Width:           frame.Extent.Width,
		Height:          frame.Extent.Height,
	}

	var fb vk.Framebuffer
	err := vk.Error(vk.CreateFramebuffer(p.runtime.Device.VKDevice, &fbCreateInfo, nil, &fb))
	if err != nil {
		return vk.NullFramebuffer, err
	}
	p.framebuffers[frame.ImageIndex] = fb
	return fb, nil
}

func (p *ShaderToyPipeline) destroyFramebuffers() {
	for _, fb := range p.framebuffers {
		vk.DestroyFramebuffer(p.runtime.Device.VKDevice, fb, nil)
	}
	p.framebuffers = make(map[uint32]vk.Framebuffer)
}

func (p *ShaderToyPipeline) OnResize(width, height int) {}

func (p *ShaderToyPipeline) OnSwapchainStateChanged(state SwapchainState) {
	summary := p.tracker.Observe(state)

	p.runtime.Device.WaitIdle()
	p.destroyFramebuffers()

	if summary.ColorFormatChanged {
		p.colorFormat = state.ColorFormat
		vk.DestroyPipeline(p.runtime.Device.VKDevice, p.presentPipeline, nil)
		vk.DestroyRenderPass(p.runtime.Device.VKDevice, p.presentRenderPass, nil)
		p.presentPipeline = vk.NullPipeline
		p.presentRenderPass = vk.NullRenderPass

		err := p.createPresentRenderPass()
		if err == nil {
			err = p.createPresentPipeline()
		}
		if err != nil {
			log.Printf("shadertoy present pass rebuild failed: %v", err)
		}
		p.rebuildErr = err
		p.present.renderPass = p.presentRenderPass
		p.present.pipeline = p.presentPipeline
	}
}

// Render dispatches the compute shader into the offscreen image and draws
// it over the swapchain image.
func (p *ShaderToyPipeline) Render(frame *FrameContext) error {
	if p.rebuildErr != nil {
		return p.rebuildErr
	}
	if frame.Extent.Width == 0 || frame.Extent.Height == 0 {
		return nil
	}

	err := p.ensureOffscreen(frame.Extent)
	if err != nil {
		return err
	}

	elapsed := float32(time.Since(p.start).Seconds())
	uniform := ShaderToyUniform{
		IResolution: [4]float32{float32(frame.Extent.Width), float32(frame.Extent.Height), 1, 0},
		ITime:       [4]float32{elapsed, 0, 0, 0},
	}
	buf := p.ubos[frame.FrameIndex]
	copy(buf.Bytes(), ToBytes(unsafe.Pointer(&uniform), int(unsafe.Sizeof(uniform))))

	target := TrackedImage{
		Image:  p.offscreen[frame.FrameIndex],
		Layout: &p.offscreenLayouts[frame.FrameIndex],
	}
	frame.RegisterImage("shadertoy_output", &target)

	p.compute.Execute(frame.Cmd, target, p.computeSets[frame.FrameIndex])

	fb, err := p.framebufferFor(frame)
	if err != nil {
		return err
	}
	p.present.Execute(frame.Cmd, fb, frame.Extent, target, p.presentSets[frame.FrameIndex])

	return nil
}

func (p *ShaderToyPipeline) Destroy() {
	device := p.runtime.Device
	device.WaitIdle()

	p.destroyFramebuffers()
	p.destroyOffscreen()

	if p.presentPipeline != vk.NullPipeline {
		vk.DestroyPipeline(device.VKDevice, p.presentPipeline, nil)
		p.presentPipeline = vk.NullPipeline
	}
	if p.presentRenderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(device.VKDevice, p.presentRenderPass, nil)
		p.presentRenderPass = vk.NullRenderPass
	}
	if p.computePipeline != nil && p.computePipeline.VKPipeline != vk.NullPipeline {
		p.computePipeline.Destroy(device)
		p.computePipeline = nil
	}
	if p.computeShader != nil {
		p.computeShader.Destroy()
		p.computeShader = nil
	}
	if p.cache != nil {
		p.cache.Destroy(device)
		p.cache = nil
	}
	if p.graphicsLayout != nil {
		p.graphicsLayout.Destroy()
		p.graphicsLayout = nil
	}
	if p.computeLayout != nil {
		p.computeLayout.Destroy()
		p.computeLayout = nil
	}
	if p.sampler != vk.NullSampler {
		device.VKDestroySampler(p.sampler)
		p.sampler = vk.NullSampler
	}
	for i := 0; i < FramesInFlight; i++ {
		if p.ubos[i] != nil {
			p.ubos[i].Destroy()
			p.ubos[i] = nil
		}
	}
	if p.pool != nil {
		p.pool.Destroy()
		p.pool = nil
	}
	if p.presentSetLayout != nil && p.presentSetLayout.VKDescriptorSetLayout != vk.NullDescriptorSetLayout {
		p.presentSetLayout.Destroy()
		p.presentSetLayout = nil
	}
	if p.computeSetLayout != nil && p.computeSetLayout.VKDescriptorSetLayout != vk.NullDescriptorSetLayout {
		p.computeSetLayout.Destroy()
		p.computeSetLayout = nil
	}
}
