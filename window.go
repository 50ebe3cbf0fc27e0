package rtr

import (
	"fmt"

	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// InitWindowing initializes glfw and binds the vulkan loader to it. It must
// run on the main thread; callers should lock the OS thread first.
func InitWindowing() error {
	err := glfw.Init()
	if err != nil {
		return fmt.Errorf("unable to initialize glfw: %w", err)
	}

	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw reports vulkan is not supported")
	}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	err = vk.Init()
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("unable to initialize vulkan: %w", err)
	}

	return nil
}

// TerminateWindowing shuts glfw down. Call after all windows are destroyed.
func TerminateWindowing() {
	glfw.Terminate()
}

// Window wraps a glfw window created without a client API, for rendering
// through vulkan surfaces.
type Window struct {
	GLFW *glfw.Window

	resizeHandlers []func(width, height int)
}

func CreateWindow(width, height int, title string) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	gw, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create window: %w", err)
	}

	w := &Window{GLFW: gw}

	gw.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.notifyResize(width, height)
	})

	return w, nil
}

// OnResize registers a handler invoked whenever the framebuffer changes
// size. Multiple handlers may be registered.
func (w *Window) OnResize(fn func(width, height int)) {
	w.resizeHandlers = append(w.resizeHandlers, fn)
}

func (w *Window) notifyResize(width, height int) {
	for _, h := range w.resizeHandlers {
		h(width, height)
	}
}

// RequiredInstanceExtensions reports the instance extensions the window
// system needs for surface creation.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.GLFW.GetRequiredInstanceExtensions()
}

// CreateSurface creates a vulkan surface for this window.
func (w *Window) CreateSurface(instance *Instance) (vk.Surface, error) {
	surfacePtr, err := w.GLFW.CreateWindowSurface(instance.VKInstance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("unable to create window surface: %w", err)
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

// FramebufferSize reports the window framebuffer size in pixels.
func (w *Window) FramebufferSize() vk.Extent2D {
	width, height := w.GLFW.GetFramebufferSize()
	return vk.Extent2D{Width: uint32(width), Height: uint32(height)}
}

func (w *Window) ShouldClose() bool {
	return w.GLFW.ShouldClose()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) Destroy() {
	w.GLFW.Destroy()
}
