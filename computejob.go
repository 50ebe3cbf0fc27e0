package rtr

import (
	"errors"
	"fmt"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// ErrComputeTimeout is returned when a compute job did not finish within
// the wait deadline.
var ErrComputeTimeout = errors.New("compute job timed out")

// ComputeJob tracks a one-shot command submission on the compute
// side-channel. The completion callback fires exactly once, from whichever
// call first observes the fence signaled.
type ComputeJob struct {
	device *Device
	pool   *CommandPool
	cmd    *CommandBuffer
	fence  vk.Fence

	done       bool
	onComplete func()
}

// IsDone polls the job's fence without blocking.
func (j *ComputeJob) IsDone() (bool, error) {
	if j.done {
		return true, nil
	}

	res := j.device.VKWaitForFence(j.fence, 0)
	switch res {
	case vk.Success:
		j.finish()
		return true, nil
	case vk.Timeout, vk.NotReady:
		return false, nil
	default:
		return false, fmt.Errorf("unable to poll compute fence: %w", vk.Error(res))
	}
}

// Wait blocks until the job finishes or the timeout elapses.
func (j *ComputeJob) Wait(timeout time.Duration) error {
	if j.done {
		return nil
	}

	res := j.device.VKWaitForFence(j.fence, timeout)
	switch res {
	case vk.Success:
		j.finish()
		return nil
	case vk.Timeout:
		return ErrComputeTimeout
	default:
		return fmt.Errorf("unable to wait on compute fence: %w", vk.Error(res))
	}
}

func (j *ComputeJob) finish() {
	if j.done {
		return
	}
	j.done = true
	if j.onComplete != nil {
		j.onComplete()
		j.onComplete = nil
	}
}

// Destroy waits for any outstanding GPU work, then releases the job's
// command buffer and fence.
func (j *ComputeJob) Destroy() {
	if !j.done {
		if j.device.VKWaitForFenceForever(j.fence) == vk.Success {
			j.finish()
		}
	}
	j.pool.FreeBuffer(j.cmd)
	j.device.VKDestroyFence(j.fence)
}
