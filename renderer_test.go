package rtr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct{}

func (stubPipeline) OnResize(width, height int)                {}
func (stubPipeline) OnSwapchainStateChanged(state SwapchainState) {}
func (stubPipeline) Render(frame *FrameContext) error          { return nil }
func (stubPipeline) Destroy()                                  {}

func TestSetPipelineNil(t *testing.T) {
	r := &Renderer{}
	assert.ErrorIs(t, r.SetPipeline(nil), ErrNilPipeline)
}

func TestSetPipelineAlreadyBound(t *testing.T) {
	r := &Renderer{pipeline: stubPipeline{}}
	assert.ErrorIs(t, r.SetPipeline(stubPipeline{}), ErrPipelineBound)
}

func TestDrawFrameWithoutPipeline(t *testing.T) {
	r := &Renderer{}
	assert.ErrorIs(t, r.DrawFrame(), ErrNoPipeline)
}

type recordingPipeline struct {
	resizes [][2]int
	states  []SwapchainState
}

func (p *recordingPipeline) OnResize(width, height int) {
	p.resizes = append(p.resizes, [2]int{width, height})
}

func (p *recordingPipeline) OnSwapchainStateChanged(state SwapchainState) {
	p.states = append(p.states, state)
}

func (p *recordingPipeline) Render(frame *FrameContext) error { return nil }
func (p *recordingPipeline) Destroy()                         {}

func TestSetPipelineForwardsResize(t *testing.T) {
	r := &Renderer{
		window:    &Window{},
		scheduler: &FrameScheduler{swapchain: &Swapchain{}},
	}

	p := &recordingPipeline{}
	require.NoError(t, r.SetPipeline(p))
	require.Len(t, p.states, 1)

	r.window.notifyResize(640, 480)
	r.window.notifyResize(1024, 768)

	require.Len(t, p.resizes, 2)
	assert.Equal(t, [2]int{640, 480}, p.resizes[0])
	assert.Equal(t, [2]int{1024, 768}, p.resizes[1])
}

func TestWindowResizeHandlers(t *testing.T) {
	w := &Window{}

	var gotWidth, gotHeight int
	w.OnResize(func(width, height int) { gotWidth = width })
	w.OnResize(func(width, height int) { gotHeight = height })

	w.notifyResize(300, 200)

	assert.Equal(t, 300, gotWidth)
	assert.Equal(t, 200, gotHeight)
}
