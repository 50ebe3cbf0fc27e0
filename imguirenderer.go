package rtr

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"unsafe"

	imgui "github.com/inkyblackness/imgui-go"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

const maxImguiTextures = 64

type imguiUBO struct {
	Proj lin.Mat4x4
}

func (u *imguiUBO) Bytes() []byte {
	size := int(unsafe.Sizeof(float32(1))) * 4 * 4
	return ToBytes(unsafe.Pointer(&u.Proj[0]), size)
}

// ImguiRenderer owns the imgui context and records the UI draw data over
// an already-rendered swapchain image. Textures rendered elsewhere in the
// frame can be registered for use with imgui.Image.
type ImguiRenderer struct {
	device *Device
	window *Window

	context *imgui.Context
	io      imgui.IO

	shaderRoot  string
	colorFormat vk.Format

	renderPass     vk.RenderPass
	pipeline       vk.Pipeline
	pipelineLayout *PipelineLayout
	cache          *PipelineCache

	uboLayout *DescriptorSetLayout
	texLayout *DescriptorSetLayout
	pool      *DescriptorPool

	uboBuffers [FramesInFlight]*Buffer
	uboSets    [FramesInFlight]*DescriptorSet

	vertexBuffers [FramesInFlight]*Buffer
	indexBuffers  [FramesInFlight]*Buffer
	maxVertexes   int
	maxIndexes    int

	fontImage *Image
	sampler   vk.Sampler
	fontTexID imgui.TextureID

	textures  map[imgui.TextureID]*DescriptorSet
	nextTexID imgui.TextureID

	framebuffers map[uint32]vk.Framebuffer

	// Set when a format-change rebuild fails; recording refuses to run
	// until a later rebuild succeeds.
	rebuildErr error

	time             float64
	mouseJustPressed [3]bool
	wantMouse        bool
	wantKeyboard     bool
}

// CreateImguiRenderer builds the imgui context, uploads the font atlas
// through the given pool and queue, and prepares the UI graphics pipeline.
func CreateImguiRenderer(device *Device, window *Window, colorFormat vk.Format, shaderRootDir string, pool *CommandPool, queue *Queue, maxVertexes, maxIndexes int) (*ImguiRenderer, error) {
	shaderRoot, err := ResolveShaderRoot(shaderRootDir)
	if err != nil {
		return nil, err
	}

	r := &ImguiRenderer{
		device:       device,
		window:       window,
		context:      imgui.CreateContext(nil),
		shaderRoot:   shaderRoot,
		colorFormat:  colorFormat,
		maxVertexes:  maxVertexes,
		maxIndexes:   maxIndexes,
		textures:     make(map[imgui.TextureID]*DescriptorSet),
		nextTexID:    1,
		framebuffers: make(map[uint32]vk.Framebuffer),
	}
	r.io = imgui.CurrentIO()
	r.setKeyMapping()
	r.installCallbacks()

	err = r.createBuffers()
	if err != nil {
		r.Destroy()
		return nil, err
	}
	err = r.createDescriptors()
	if err != nil {
		r.Destroy()
		return nil, err
	}
	err = r.createFontTexture(pool, queue)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	err = r.createRenderPass()
	if err != nil {
		r.Destroy()
		return nil, err
	}
	err = r.createGraphicsPipeline()
	if err != nil {
		r.Destroy()
		return nil, err
	}

	return r, nil
}

func (r *ImguiRenderer) GetBindingDescription() vk.VertexInputBindingDescription {
	vertexSize, _, _, _ := imgui.VertexBufferLayout()

	var bindingDescription = vk.VertexInputBindingDescription{}
	bindingDescription.Binding = 0
	bindingDescription.Stride = uint32(vertexSize)
	bindingDescription.InputRate = vk.VertexInputRateVertex

	return bindingDescription
}

func (r *ImguiRenderer) GetAttributeDescriptions() []vk.VertexInputAttributeDescription {
	_, vertexOffsetPos, vertexOffsetUv, vertexOffsetCol := imgui.VertexBufferLayout()

	attr := make([]vk.VertexInputAttributeDescription, 3)

	attr[0].Binding = 0
	attr[0].Location = 0
	attr[0].Format = vk.FormatR32g32Sfloat
	attr[0].Offset = uint32(vertexOffsetPos)

	attr[1].Binding = 0
	attr[1].Location = 1
	attr[1].Format = vk.FormatR32g32Sfloat
	attr[1].Offset = uint32(vertexOffsetUv)

	attr[2].Binding = 0
	attr[2].Location = 2
	attr[2].Format = vk.FormatR8g8b8a8Uint
	attr[2].Offset = uint32(vertexOffsetCol)

	return attr
}

func (r *ImguiRenderer) createBuffers() error {
	vertexSize, _, _, _ := imgui.VertexBufferLayout()
	indexSize := imgui.IndexBufferLayout()
	uboSize := uint64(unsafe.Sizeof(imguiUBO{}))

	for i := 0; i < FramesInFlight; i++ {
		var err error
		r.vertexBuffers[i], err = r.device.CreateHostBuffer(uint64(vertexSize*r.maxVertexes), vk.BufferUsageVertexBufferBit)
		if err != nil {
			return fmt.Errorf("unable to allocate UI vertex buffer: %w", err)
		}
		r.indexBuffers[i], err = r.device.CreateHostBuffer(uint64(indexSize*r.maxIndexes), vk.BufferUsageIndexBufferBit)
		if err != nil {
			return fmt.Errorf("unable to allocate UI index buffer: %w", err)
		}
		r.uboBuffers[i], err = r.device.CreateHostBuffer(uboSize, vk.BufferUsageUniformBufferBit)
		if err != nil {
			return fmt.Errorf("unable to allocate UI uniform buffer: %w", err)
		}
	}
	return nil
}

func (r *ImguiRenderer) createDescriptors() error {
	r.pool = r.device.NewDescriptorPool()
	r.pool.AddPoolSize(vk.DescriptorTypeUniformBuffer, FramesInFlight)
	r.pool.AddPoolSize(vk.DescriptorTypeCombinedImageSampler, maxImguiTextures)
	_, err := r.device.CreateDescriptorPool(r.pool, FramesInFlight+maxImguiTextures)
	if err != nil {
		return err
	}

	r.uboLayout = r.device.NewDescriptorSetLayout()
	r.uboLayout.AddBinding(vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	})
	_, err = r.device.CreateDescriptorSetLayout(r.uboLayout)
	if err != nil {
		return err
	}

	r.texLayout = r.device.NewDescriptorSetLayout()
	r.texLayout.AddBinding(vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	})
	_, err = r.device.CreateDescriptorSetLayout(r.texLayout)
	if err != nil {
		return err
	}

	for i := 0; i < FramesInFlight; i++ {
		r.uboSets[i], err = r.pool.Allocate(r.uboLayout)
		if err != nil {
			return err
		}
		r.uboSets[i].AddBuffer(0, vk.DescriptorTypeUniformBuffer, r.uboBuffers[i], 0)
		r.uboSets[i].Write()
	}

	r.pipelineLayout, err = r.device.CreatePipelineLayout(r.uboLayout, r.texLayout)
	if err != nil {
		return err
	}

	return nil
}

func (r *ImguiRenderer) createFontTexture(pool *CommandPool, queue *Queue) error {
	var err error
	r.sampler, err = r.device.CreateLinearSampler()
	if err != nil {
		return err
	}

	fontTexture := r.io.Fonts().TextureDataRGBA32()
	pixelCount := fontTexture.Width * fontTexture.Height * 4
	pixels := ToBytes(fontTexture.Pixels, pixelCount)

	r.fontImage, err = r.device.CreateRenderTarget(
		vk.Extent2D{Width: uint32(fontTexture.Width), Height: uint32(fontTexture.Height)},
		vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit,
		vk.ImageAspectColorBit)
	if err != nil {
		return fmt.Errorf("unable to create font atlas image: %w", err)
	}

	staging, err := r.device.CreateHostBuffer(uint64(pixelCount), vk.BufferUsageTransferSrcBit)
	if err != nil {
		return err
	}
	defer staging.Destroy()
	copy(staging.Bytes(), pixels)

	cmd, err := pool.AllocateBuffer()
	if err != nil {
		return err
	}
	defer pool.FreeBuffer(cmd)

	err = cmd.BeginOneTime()
	if err != nil {
		return err
	}

	cmd.CmdTransitionImageLayout(r.fontImage.VKImage, vk.ImageAspectColorBit,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		vk.PipelineStageTopOfPipeBit, 0,
		vk.PipelineStageTransferBit, vk.AccessTransferWriteBit)

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{
			Width:  uint32(fontTexture.Width),
			Height: uint32(fontTexture.Height),
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cmd.VK(), staging.VKBuffer, r.fontImage.VKImage,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	cmd.CmdTransitionImageLayout(r.fontImage.VKImage, vk.ImageAspectColorBit,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.PipelineStageTransferBit, vk.AccessTransferWriteBit,
		vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit)

	err = cmd.End()
	if err != nil {
		return err
	}
	err = queue.SubmitWithFence(vk.NullFence, cmd)
	if err != nil {
		return err
	}
	err = queue.WaitIdle()
	if err != nil {
		return err
	}

	r.fontTexID, err = r.RegisterTexture(r.fontImage.VKView, vk.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		return err
	}
	r.io.Fonts().SetTextureID(r.fontTexID)

	return nil
}

// createRenderPass builds a pass that loads the existing swapchain
// contents so the UI composites over the scene.
func (r *ImguiRenderer) createRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         r.colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
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
		SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
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
	err := vk.Error(vk.CreateRenderPass(r.device.VKDevice, &createInfo, nil, &renderPass))
	if err != nil {
		return err
	}
	r.renderPass = renderPass
	return nil
}

func (r *ImguiRenderer) createGraphicsPipeline() error {
	var err error
	r.cache, err = r.device.CreatePipelineCache()
	if err != nil {
		return err
	}

	config := r.device.CreateGraphicsPipelineConfig()
	defer config.Destroy()

	config.AddVertexDescriptor(r)
	config.AddBlendAttachment(vk.PipelineColorBlendAttachmentState{
		ColorWriteMask:      vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		BlendEnable:         vk.True,
	})
	err = config.AddShaderStageFromFile(filepath.Join(r.shaderRoot, "imgui_vert.spv"), "main", vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	err = config.AddShaderStageFromFile(filepath.Join(r.shaderRoot, "imgui_frag.spv"), "main", vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	config.SetDynamicState(vk.DynamicStateViewport, vk.DynamicStateScissor)
	config.SetCullMode(vk.CullModeNone)
	config.DepthWriteEnable = false
	config.DepthTestEnable = false
	config.SetPipelineLayout(r.pipelineLayout)

	createInfo, err := config.VKGraphicsPipelineCreateInfo(vk.Extent2D{Width: 1, Height: 1})
	if err != nil {
		return err
	}
	createInfo.RenderPass = r.renderPass

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(r.device.VKDevice, r.cache.VKPipelineCache,
		1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		return err
	}
	r.pipeline = pipelines[0]
	return nil
}

// RegisterTexture makes an image view usable as an imgui.TextureID.
func (r *ImguiRenderer) RegisterTexture(view vk.ImageView, layout vk.ImageLayout) (imgui.TextureID, error) {
	set, err := r.pool.Allocate(r.texLayout)
	if err != nil {
		return 0, err
	}
	set.AddCombinedImageSampler(0, layout, view, r.sampler)
	set.Write()

	id := r.nextTexID
	r.nextTexID++
	r.textures[id] = set
	return id, nil
}

// UnregisterTexture releases a previously registered texture binding.
func (r *ImguiRenderer) UnregisterTexture(id imgui.TextureID) {
	set, ok := r.textures[id]
	if !ok {
		return
	}
	r.pool.Free(set)
	delete(r.textures, id)
}

func (r *ImguiRenderer) WantCaptureMouse() bool    { return r.wantMouse }
func (r *ImguiRenderer) WantCaptureKeyboard() bool { return r.wantKeyboard }

// BeginFrame feeds input state to imgui and opens a new UI frame.
func (r *ImguiRenderer) BeginFrame(extent vk.Extent2D) {
	r.wantMouse = r.io.WantCaptureMouse()
	r.wantKeyboard = r.io.WantCaptureKeyboard()

	currentTime := glfw.GetTime()
	if r.time > 0 {
		r.io.SetDeltaTime(float32(currentTime - r.time))
	}
	r.time = currentTime

	if r.window.GLFW.GetAttrib(glfw.Focused) != 0 {
		x, y := r.window.GLFW.GetCursorPos()
		r.io.SetMousePosition(imgui.Vec2{X: float32(x), Y: float32(y)})
	} else {
		r.io.SetMousePosition(imgui.Vec2{X: -math.MaxFloat32, Y: -math.MaxFloat32})
	}

	for j := 0; j < len(r.mouseJustPressed); j++ {
		down := r.mouseJustPressed[j] || (r.window.GLFW.GetMouseButton(glfwButtonIDByIndex[j]) == glfw.Press)
		r.io.SetMouseButtonDown(j, down)
		r.mouseJustPressed[j] = false
	}

	r.io.SetDisplaySize(imgui.Vec2{X: float32(extent.Width), Y: float32(extent.Height)})
	imgui.NewFrame()
}

func (r *ImguiRenderer) setupUBO(frameIndex uint32, extent vk.Extent2D) {
	var proj lin.Mat4x4 = [4]lin.Vec4{
		{2.0, 0.0, 0.0, 0.0},
		{0.0, 2.0, 0.0, 0.0},
		{0.0, 0.0, 1.0, 0.0},
		{-1, -1, 0.0, 1.0},
	}
	proj[0][0] /= float32(extent.Width)
	proj[1][1] /= float32(extent.Height)

	ubo := imguiUBO{Proj: proj}
	copy(r.uboBuffers[frameIndex].Bytes(), ubo.Bytes())
}

func (r *ImguiRenderer) framebufferFor(frame *FrameContext) (vk.Framebuffer, error) {
	if fb, ok := r.framebuffers[frame.ImageIndex]; ok {
		return fb, nil
	}

	fbCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      r.renderPass,
		Layers:          1,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{frame.SwapchainView},
		Width:           frame.Extent.Width,
		Height:          frame.Extent.Height,
	}

	var fb vk.Framebuffer
	err := vk.Error(vk.CreateFramebuffer(r.device.VKDevice, &fbCreateInfo, nil, &fb))
	if err != nil {
		return vk.NullFramebuffer, err
	}
	r.framebuffers[frame.ImageIndex] = fb
	return fb, nil
}

// EndFrameAndRecord closes the UI frame and records its draw data over the
// swapchain image, which must already be in ColorAttachmentOptimal.
func (r *ImguiRenderer) EndFrameAndRecord(frame *FrameContext) error {
	// The UI frame opened by BeginFrame must be closed even when
	// recording cannot run.
	imgui.Render()
	if r.rebuildErr != nil {
		return r.rebuildErr
	}
	drawData := imgui.RenderedDrawData()
	drawData.ScaleClipRects(imgui.Vec2{X: 1.0, Y: 1.0})

	vertexSize, _, _, _ := imgui.VertexBufferLayout()
	indexSize := imgui.IndexBufferLayout()

	indexType := vk.IndexTypeUint16
	if indexSize == 4 {
		indexType = vk.IndexTypeUint32
	}

	// Pack every command list into the frame's persistent buffers,
	// remembering the base offsets for the draw calls.
	vbytes := r.vertexBuffers[frame.FrameIndex].Bytes()
	ibytes := r.indexBuffers[frame.FrameIndex].Bytes()
	var vertexBase, indexBase int

	type listOffsets struct {
		vertexOffset int32
		indexOffset  uint32
	}
	lists := drawData.CommandLists()
	offsets := make([]listOffsets, len(lists))

	for i, list := range lists {
		vertexData, vertexDataSize := list.VertexBuffer()
		indexData, indexDataSize := list.IndexBuffer()

		if vertexBase+vertexDataSize > len(vbytes) || indexBase+indexDataSize > len(ibytes) {
			return fmt.Errorf("UI draw data exceeds buffer capacity")
		}

		copy(vbytes[vertexBase:], ToBytes(vertexData, vertexDataSize))
		copy(ibytes[indexBase:], ToBytes(indexData, indexDataSize))

		offsets[i] = listOffsets{
			vertexOffset: int32(vertexBase / vertexSize),
			indexOffset:  uint32(indexBase / indexSize),
		}
		vertexBase += vertexDataSize
		indexBase += indexDataSize
	}

	r.setupUBO(frame.FrameIndex, frame.Extent)

	fb, err := r.framebufferFor(frame)
	if err != nil {
		return err
	}

	cmd := frame.Cmd

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.renderPass,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: frame.Extent,
		},
	}

	vk.CmdBeginRenderPass(cmd.VK(), &beginInfo, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd.VK(), vk.PipelineBindPointGraphics, r.pipeline)

	viewport := vk.Viewport{
		Width:    float32(frame.Extent.Width),
		Height:   float32(frame.Extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(cmd.VK(), 0, 1, []vk.Viewport{viewport})

	vk.CmdBindDescriptorSets(cmd.VK(), vk.PipelineBindPointGraphics,
		r.pipelineLayout.VKPipelineLayout, 0, 1,
		[]vk.DescriptorSet{r.uboSets[frame.FrameIndex].VKDescriptorSet}, 0, nil)

	vk.CmdBindVertexBuffers(cmd.VK(), 0, 1,
		[]vk.Buffer{r.vertexBuffers[frame.FrameIndex].VKBuffer}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd.VK(), r.indexBuffers[frame.FrameIndex].VKBuffer, 0, indexType)

	for i, list := range lists {
		var elementOffset int
		for _, drawCmd := range list.Commands() {
			if drawCmd.HasUserCallback() {
				drawCmd.CallUserCallback(list)
			} else {
				texSet, ok := r.textures[drawCmd.TextureID()]
				if ok {
					vk.CmdBindDescriptorSets(cmd.VK(), vk.PipelineBindPointGraphics,
						r.pipelineLayout.VKPipelineLayout, 1, 1,
						[]vk.DescriptorSet{texSet.VKDescriptorSet}, 0, nil)
				}

				scissor, visible := clampedScissor(drawCmd.ClipRect(), frame.Extent)
				if visible {
					vk.CmdSetScissor(cmd.VK(), 0, 1, []vk.Rect2D{scissor})

					vk.CmdDrawIndexed(cmd.VK(), uint32(drawCmd.ElementCount()), 1,
						offsets[i].indexOffset+uint32(elementOffset), offsets[i].vertexOffset, 0)
				}
			}
			elementOffset += drawCmd.ElementCount()
		}
	}

	vk.CmdEndRenderPass(cmd.VK())

	return nil
}

// clampedScissor clips a UI clip rect to the framebuffer. Rects go
// negative or past the framebuffer when a window is dragged off screen;
// the bool reports whether anything visible remains.
func clampedScissor(clip imgui.Vec4, extent vk.Extent2D) (vk.Rect2D, bool) {
	x0, y0, x1, y1 := clip.X, clip.Y, clip.Z, clip.W
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > float32(extent.Width) {
		x1 = float32(extent.Width)
	}
	if y1 > float32(extent.Height) {
		y1 = float32(extent.Height)
	}
	if x1 <= x0 || y1 <= y0 {
		return vk.Rect2D{}, false
	}

	var scissor vk.Rect2D
	scissor.Offset.X = int32(x0)
	scissor.Offset.Y = int32(y0)
	scissor.Extent.Width = uint32(x1 - x0)
	scissor.Extent.Height = uint32(y1 - y0)
	return scissor, true
}

func (r *ImguiRenderer) destroyFramebuffers() {
	for _, fb := range r.framebuffers {
		vk.DestroyFramebuffer(r.device.VKDevice, fb, nil)
	}
	r.framebuffers = make(map[uint32]vk.Framebuffer)
}

// OnSwapchainStateChanged drops cached framebuffers and rebuilds the UI
// pass when the color format changed.
func (r *ImguiRenderer) OnSwapchainStateChanged(state SwapchainState) {
	r.device.WaitIdle()
	r.destroyFramebuffers()

	if state.ColorFormat != r.colorFormat {
		r.colorFormat = state.ColorFormat
		vk.DestroyPipeline(r.device.VKDevice, r.pipeline, nil)
		vk.DestroyRenderPass(r.device.VKDevice, r.renderPass, nil)
		r.pipeline = vk.NullPipeline
		r.renderPass = vk.NullRenderPass
		r.cache.Destroy(r.device)
		r.cache = nil

		err := r.createRenderPass()
		if err == nil {
			err = r.createGraphicsPipeline()
		}
		if err != nil {
			log.Printf("UI pass rebuild failed: %v", err)
		}
		r.rebuildErr = err
	}
}

func (r *ImguiRenderer) installCallbacks() {
	r.window.GLFW.SetMouseButtonCallback(func(_ *glfw.Window, rawButton glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		buttonIndex, known := glfwButtonIndexByID[rawButton]
		if known && action == glfw.Press {
			r.mouseJustPressed[buttonIndex] = true
		}
	})
	r.window.GLFW.SetScrollCallback(func(_ *glfw.Window, x, y float64) {
		r.io.AddMouseWheelDelta(float32(x), float32(y))
	})
	r.window.GLFW.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			r.io.KeyPress(int(key))
		}
		if action == glfw.Release {
			r.io.KeyRelease(int(key))
		}

		// Modifiers are not reliable across systems
		r.io.KeyCtrl(int(glfw.KeyLeftControl), int(glfw.KeyRightControl))
		r.io.KeyShift(int(glfw.KeyLeftShift), int(glfw.KeyRightShift))
		r.io.KeyAlt(int(glfw.KeyLeftAlt), int(glfw.KeyRightAlt))
		r.io.KeySuper(int(glfw.KeyLeftSuper), int(glfw.KeyRightSuper))
	})
	r.window.GLFW.SetCharCallback(func(_ *glfw.Window, char rune) {
		r.io.AddInputCharacters(string(char))
	})
}

func (r *ImguiRenderer) setKeyMapping() {
	// Keyboard mapping. ImGui will use those indices to peek into the io.KeysDown[] array.
	r.io.KeyMap(imgui.KeyTab, int(glfw.KeyTab))
	r.io.KeyMap(imgui.KeyLeftArrow, int(glfw.KeyLeft))
	r.io.KeyMap(imgui.KeyRightArrow, int(glfw.KeyRight))
	r.io.KeyMap(imgui.KeyUpArrow, int(glfw.KeyUp))
	r.io.KeyMap(imgui.KeyDownArrow, int(glfw.KeyDown))
	r.io.KeyMap(imgui.KeyPageUp, int(glfw.KeyPageUp))
	r.io.KeyMap(imgui.KeyPageDown, int(glfw.KeyPageDown))
	r.io.KeyMap(imgui.KeyHome, int(glfw.KeyHome))
	r.io.KeyMap(imgui.KeyEnd, int(glfw.KeyEnd))
	r.io.KeyMap(imgui.KeyInsert, int(glfw.KeyInsert))
	r.io.KeyMap(imgui.KeyDelete, int(glfw.KeyDelete))
	r.io.KeyMap(imgui.KeyBackspace, int(glfw.KeyBackspace))
	r.io.KeyMap(imgui.KeySpace, int(glfw.KeySpace))
	r.io.KeyMap(imgui.KeyEnter, int(glfw.KeyEnter))
	r.io.KeyMap(imgui.KeyEscape, int(glfw.KeyEscape))
	r.io.KeyMap(imgui.KeyA, int(glfw.KeyA))
	r.io.KeyMap(imgui.KeyC, int(glfw.KeyC))
	r.io.KeyMap(imgui.KeyV, int(glfw.KeyV))
	r.io.KeyMap(imgui.KeyX, int(glfw.KeyX))
	r.io.KeyMap(imgui.KeyY, int(glfw.KeyY))
	r.io.KeyMap(imgui.KeyZ, int(glfw.KeyZ))
}

var glfwButtonIndexByID = map[glfw.MouseButton]int{
	glfw.MouseButton1: 0,
	glfw.MouseButton2: 1,
	glfw.MouseButton3: 2,
}

var glfwButtonIDByIndex = map[int]glfw.MouseButton{
	0: glfw.MouseButton1,
	1: glfw.MouseButton2,
	2: glfw.MouseButton3,
}

func (r *ImguiRenderer) Destroy() {
	r.device.WaitIdle()

	r.destroyFramebuffers()

	if r.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(r.device.VKDevice, r.pipeline, nil)
		r.pipeline = vk.NullPipeline
	}
	if r.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(r.device.VKDevice, r.renderPass, nil)
		r.renderPass = vk.NullRenderPass
	}
	if r.cache != nil {
		r.cache.Destroy(r.device)
		r.cache = nil
	}
	if r.pipelineLayout != nil {
		r.pipelineLayout.Destroy()
		r.pipelineLayout = nil
	}
	if r.fontImage != nil {
		r.fontImage.Destroy()
		r.fontImage = nil
	}
	if r.sampler != vk.NullSampler {
		r.device.VKDestroySampler(r.sampler)
		r.sampler = vk.NullSampler
	}
	if r.pool != nil {
		r.pool.Destroy()
		r.pool = nil
	}
	if r.texLayout != nil && r.texLayout.VKDescriptorSetLayout != vk.NullDescriptorSetLayout {
		r.texLayout.Destroy()
		r.texLayout = nil
	}
	if r.uboLayout != nil && r.uboLayout.VKDescriptorSetLayout != vk.NullDescriptorSetLayout {
		r.uboLayout.Destroy()
		r.uboLayout = nil
	}
	for i := 0; i < FramesInFlight; i++ {
		if r.vertexBuffers[i] != nil {
			r.vertexBuffers[i].Destroy()
			r.vertexBuffers[i] = nil
		}
		if r.indexBuffers[i] != nil {
			r.indexBuffers[i].Destroy()
			r.indexBuffers[i] = nil
		}
		if r.uboBuffers[i] != nil {
			r.uboBuffers[i].Destroy()
			r.uboBuffers[i] = nil
		}
	}
	if r.context != nil {
		r.context.Destroy()
		r.context = nil
	}
}
