package rtr

import (
	imgui "github.com/inkyblackness/imgui-go"
	vk "github.com/vulkan-go/vulkan"
)

// Overlay draws immediate mode UI. DrawUI runs between imgui.NewFrame and
// imgui.Render each frame.
type Overlay interface {
	DrawUI()
}

// sceneTextureEntry tracks the imgui registration of the inner pipeline's
// scene color target for one frame slot.
type sceneTextureEntry struct {
	view   vk.ImageView
	layout vk.ImageLayout
	texID  imgui.TextureID
	size   imgui.Vec2
}

// EditorOverlayPipeline wraps another pipeline and composites an imgui
// layer on top of its output. When the inner pipeline exposes its scene
// color target, the overlay registers it as an imgui texture so UI panels
// can display the scene and drive its viewport size.
type EditorOverlayPipeline struct {
	runtime PipelineRuntime
	inner   RenderPipeline
	ui      *ImguiRenderer

	overlays []Overlay

	entries      [FramesInFlight]sceneTextureEntry
	currentFrame uint32
	sceneHovered bool
	sceneFocused bool
}

func CreateEditorOverlayPipeline(runtime PipelineRuntime, inner RenderPipeline, pool *CommandPool, queue *Queue) (*EditorOverlayPipeline, error) {
	ui, err := CreateImguiRenderer(runtime.Device, runtime.Window, runtime.ColorFormat,
		runtime.ShaderRootDir, pool, queue, 150*1000, 150*1000)
	if err != nil {
		return nil, err
	}

	return &EditorOverlayPipeline{
		runtime: runtime,
		inner:   inner,
		ui:      ui,
	}, nil
}

// AddOverlay registers a UI drawer. Overlays run in registration order.
func (p *EditorOverlayPipeline) AddOverlay(o Overlay) {
	p.overlays = append(p.overlays, o)
}

// SceneTextureID returns the imgui texture showing the inner pipeline's
// scene output for a frame slot, or zero when none is registered yet.
func (p *EditorOverlayPipeline) SceneTextureID(frameIndex uint32) imgui.TextureID {
	return p.entries[frameIndex].texID
}

// SceneTextureSize returns the pixel size of the registered scene texture.
func (p *EditorOverlayPipeline) SceneTextureSize(frameIndex uint32) imgui.Vec2 {
	return p.entries[frameIndex].size
}

// SceneTexture returns the scene texture for the frame currently being
// recorded. Only meaningful from inside an Overlay's DrawUI.
func (p *EditorOverlayPipeline) SceneTexture() (imgui.TextureID, imgui.Vec2) {
	entry := p.entries[p.currentFrame]
	return entry.texID, entry.size
}

// SetSceneHovered records whether the pointer is over the scene panel.
// While it is, UI capture yields so camera controls receive input.
func (p *EditorOverlayPipeline) SetSceneHovered(hovered bool) {
	p.sceneHovered = hovered
}

// SetSceneFocused records whether the scene panel has keyboard focus.
func (p *EditorOverlayPipeline) SetSceneFocused(focused bool) {
	p.sceneFocused = focused
}

// WantsCaptureMouse reports whether the UI should consume mouse input.
func (p *EditorOverlayPipeline) WantsCaptureMouse() bool {
	if p.sceneHovered || p.sceneFocused {
		return false
	}
	return p.ui.WantCaptureMouse()
}

// WantsCaptureKeyboard reports whether the UI should consume key input.
func (p *EditorOverlayPipeline) WantsCaptureKeyboard() bool {
	if p.sceneFocused {
		return false
	}
	return p.ui.WantCaptureKeyboard()
}

// SetSceneViewportExtent forwards a viewport panel size to the inner
// pipeline when it supports decoupled scene targets.
func (p *EditorOverlayPipeline) SetSceneViewportExtent(extent vk.Extent2D) {
	if sink, ok := p.inner.(SceneViewportSink); ok {
		sink.SetSceneViewportExtent(extent)
	}
}

// SetResourceManager forwards the manager to the inner pipeline.
func (p *EditorOverlayPipeline) SetResourceManager(rm *ResourceManager) {
	if aware, ok := p.inner.(ResourceAwarePipeline); ok {
		aware.SetResourceManager(rm)
	}
}

// PrepareFrame forwards frame preparation to the inner pipeline.
func (p *EditorOverlayPipeline) PrepareFrame(prep *FramePrepareContext) error {
	if preparer, ok := p.inner.(FramePreparePipeline); ok {
		return preparer.PrepareFrame(prep)
	}
	return nil
}

// refreshSceneTexture re-registers the inner scene color target when its
// view or layout changed since the last registration.
func (p *EditorOverlayPipeline) refreshSceneTexture(frameIndex uint32) {
	source, ok := p.inner.(FrameColorSource)
	if !ok {
		return
	}

	view := source.FrameColorSourceView(frameIndex)
	if !view.Valid() {
		return
	}

	entry := &p.entries[frameIndex]
	if entry.texID != 0 && entry.view == view.ImageView && entry.layout == view.Layout {
		entry.size = imgui.Vec2{X: float32(view.Extent.Width), Y: float32(view.Extent.Height)}
		return
	}

	if entry.texID != 0 {
		p.ui.UnregisterTexture(entry.texID)
		entry.texID = 0
	}

	id, err := p.ui.RegisterTexture(view.ImageView, view.Layout)
	if err != nil {
		return
	}
	entry.view = view.ImageView
	entry.layout = view.Layout
	entry.texID = id
	entry.size = imgui.Vec2{X: float32(view.Extent.Width), Y: float32(view.Extent.Height)}
}

func (p *EditorOverlayPipeline) releaseSceneTextures() {
	for i := range p.entries {
		if p.entries[i].texID != 0 {
			p.ui.UnregisterTexture(p.entries[i].texID)
		}
		p.entries[i] = sceneTextureEntry{}
	}
}

func (p *EditorOverlayPipeline) OnResize(width, height int) {
	p.inner.OnResize(width, height)
}

func (p *EditorOverlayPipeline) OnSwapchainStateChanged(state SwapchainState) {
	p.inner.OnSwapchainStateChanged(state)
	p.ui.OnSwapchainStateChanged(state)
	// Target views may have been recreated; force re-registration.
	p.releaseSceneTextures()
}

// Render draws the inner pipeline, then composites the UI over the
// swapchain image it produced.
func (p *EditorOverlayPipeline) Render(frame *FrameContext) error {
	err := p.inner.Render(frame)
	if err != nil {
		return err
	}

	p.currentFrame = frame.FrameIndex
	p.refreshSceneTexture(frame.FrameIndex)

	p.ui.BeginFrame(frame.Extent)
	for _, o := range p.overlays {
		o.DrawUI()
	}
	return p.ui.EndFrameAndRecord(frame)
}

func (p *EditorOverlayPipeline) Destroy() {
	p.releaseSceneTextures()
	p.ui.Destroy()
	p.inner.Destroy()
}
