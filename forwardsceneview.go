package rtr

import (
	lin "github.com/xlab/linmath"
)

// ForwardSceneCamera is the camera state sampled for one frame.
type ForwardSceneCamera struct {
	View lin.Mat4x4
	Proj lin.Mat4x4
}

// ForwardSceneRenderable is one object to draw this frame. InstanceID is a
// caller-chosen stable identity, useful for picking and debugging.
type ForwardSceneRenderable struct {
	InstanceID uint64
	Mesh       MeshHandle
	BaseColor  lin.Vec4
	Model      lin.Mat4x4
	Normal     lin.Mat4x4
}

// ForwardSceneView is an immutable snapshot of what the forward pipeline
// should draw for one frame.
type ForwardSceneView struct {
	Camera      ForwardSceneCamera
	Renderables []ForwardSceneRenderable
}

// SceneViewProvider produces the scene snapshot for a frame. The forward
// pipeline calls it once per frame during preparation.
type SceneViewProvider func(frameIndex uint32) *ForwardSceneView
