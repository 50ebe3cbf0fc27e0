package rtr

import (
	vk "github.com/vulkan-go/vulkan"
)

// ResourceAccess describes how a pass touches a named frame resource.
type ResourceAccess int

const (
	ResourceRead ResourceAccess = iota
	ResourceWrite
	ResourceReadWrite
)

// ResourceDependency names a frame resource a pass reads or writes.
type ResourceDependency struct {
	Name   string
	Access ResourceAccess
}

// RenderPass is one recorded stage of a pipeline. Passes declare the named
// resources they touch; execution order within a pipeline is the order the
// pipeline invokes them in.
type RenderPass interface {
	Name() string
	Dependencies() []ResourceDependency
}

// TrackedImage pairs an image with the layout it is currently known to be
// in, so successive passes can derive correct barrier source state. The
// layout pointer is shared between the producer and all consumers.
type TrackedImage struct {
	Image  *Image
	Layout *vk.ImageLayout
}

func (t TrackedImage) Valid() bool {
	return t.Image != nil && t.Layout != nil
}
