package rtr

// FramesInFlight is the number of frame slots the runtime records
// concurrently. Each slot owns its own command buffer, sync objects,
// uniform buffers and offscreen images.
const FramesInFlight = 2

// MaxRenderables is the per-frame capacity of pre-allocated per-object
// uniform buffers and descriptor sets in the forward pipeline. Render
// fails when a scene view carries more renderables than this.
const MaxRenderables = 256
