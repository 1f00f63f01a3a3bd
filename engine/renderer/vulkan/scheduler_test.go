package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

func newTestScheduler(t *testing.T, device *mockDevice, slots uint32) (*FrameScheduler, *Swapchain) {
	t.Helper()
	swapchain := newTestSwapchain(t, device)
	pool, _ := device.CreateCommandPool(&vk.CommandPoolCreateInfo{})
	queue := device.GetQueue(0)
	scheduler, err := NewFrameScheduler(device, swapchain, pool, queue, queue, slots)
	if err != nil {
		t.Fatalf("NewFrameScheduler: %v", err)
	}
	t.Cleanup(func() {
		device.WaitIdle()
		scheduler.Destroy()
		swapchain.Destroy()
		device.DestroyCommandPool(pool)
	})
	return scheduler, swapchain
}

func TestNewFrameSchedulerSlotCount(t *testing.T) {
	device := newMockDevice(t)
	swapchain := newTestSwapchain(t, device)
	defer swapchain.Destroy()

	for _, slots := range []uint32{0, VULKAN_MAX_FRAMES_IN_FLIGHT + 1} {
		if _, err := NewFrameScheduler(device, swapchain, nil, nil, nil, slots); err == nil {
			t.Errorf("expected %d frames in flight to be rejected", slots)
		}
	}
}

func TestFrameLoop(t *testing.T) {
	for _, slots := range []uint32{1, 2, 3} {
		device := newMockDevice(t)
		scheduler, _ := newTestScheduler(t, device, slots)

		// Every slot is reused at least once.
		frames := int(slots) + 1
		for i := 0; i < frames; i++ {
			wantSlot := uint32(i) % slots
			if scheduler.FrameSlot() != wantSlot {
				t.Fatalf("frame %d runs in slot %d, want %d", i, scheduler.FrameSlot(), wantSlot)
			}
			frame, err := scheduler.BeginFrame()
			if err != nil {
				t.Fatalf("BeginFrame %d: %v", i, err)
			}
			if frame.FrameSlot != wantSlot {
				t.Errorf("frame %d context slot %d, want %d", i, frame.FrameSlot, wantSlot)
			}
			if scheduler.State(wantSlot) != FRAME_SLOT_RECORDING {
				t.Errorf("slot state %s, want recording", scheduler.State(wantSlot))
			}
			if err := scheduler.EndFrame(); err != nil {
				t.Fatalf("EndFrame %d: %v", i, err)
			}
		}

		if got := scheduler.FrameNumber(); got != uint64(frames) {
			t.Errorf("FrameNumber() = %d, want %d", got, frames)
		}
		if device.submits != frames || len(device.presents) != frames {
			t.Errorf("%d submits and %d presents, want %d", device.submits, len(device.presents), frames)
		}
		device.assertNoViolations(t)
	}
}

func TestFrameLoopPresentsAcquiredImage(t *testing.T) {
	device := newMockDevice(t)
	scheduler, _ := newTestScheduler(t, device, 2)

	for i := 0; i < 5; i++ {
		frame, err := scheduler.BeginFrame()
		if err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		if err := scheduler.EndFrame(); err != nil {
			t.Fatalf("EndFrame: %v", err)
		}
		if got := device.presents[len(device.presents)-1]; got != frame.ImageIndex {
			t.Errorf("presented image %d, acquired %d", got, frame.ImageIndex)
		}
	}
	device.assertNoViolations(t)
}

func TestFrameLoopOutOfDate(t *testing.T) {
	device := newMockDevice(t)
	scheduler, _ := newTestScheduler(t, device, 2)

	device.acquireResult = vk.ErrorOutOfDate
	if _, err := scheduler.BeginFrame(); !errors.Is(err, core.ErrSwapchainOutOfDate) {
		t.Fatalf("BeginFrame() error = %v, want ErrSwapchainOutOfDate", err)
	}
	if scheduler.State(0) != FRAME_SLOT_IDLE {
		t.Errorf("slot state %s after failed acquire, want idle", scheduler.State(0))
	}

	device.acquireResult = vk.Success
	if _, err := scheduler.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	device.presentResult = vk.ErrorOutOfDate
	if err := scheduler.EndFrame(); !errors.Is(err, core.ErrSwapchainOutOfDate) {
		t.Fatalf("EndFrame() error = %v, want ErrSwapchainOutOfDate", err)
	}
	if scheduler.FrameSlot() != 1 {
		t.Errorf("slot did not advance after a failed present")
	}
	if scheduler.State(0) != FRAME_SLOT_SUBMITTED {
		t.Errorf("slot state %s after a failed present, want submitted", scheduler.State(0))
	}

	device.presentResult = vk.Success
	for i := 0; i < 3; i++ {
		if _, err := scheduler.BeginFrame(); err != nil {
			t.Fatalf("BeginFrame after recovery: %v", err)
		}
		if err := scheduler.EndFrame(); err != nil {
			t.Fatalf("EndFrame after recovery: %v", err)
		}
	}
	device.assertNoViolations(t)
}

func TestSlotStateAcrossFrames(t *testing.T) {
	tests := []struct {
		name  string
		slots uint32
	}{
		{"single slot", 1},
		{"two slots", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := newMockDevice(t)
			scheduler, _ := newTestScheduler(t, device, tt.slots)

			if _, err := scheduler.BeginFrame(); err != nil {
				t.Fatalf("BeginFrame: %v", err)
			}
			if err := scheduler.EndFrame(); err != nil {
				t.Fatalf("EndFrame: %v", err)
			}
			// Presented until the next BeginFrame in this slot waits on its fence.
			if scheduler.State(0) != FRAME_SLOT_PRESENTED {
				t.Errorf("slot 0 state %s after its frame, want presented", scheduler.State(0))
			}
			if tt.slots > 1 && scheduler.State(1) != FRAME_SLOT_IDLE {
				t.Errorf("unused slot 1 state %s, want idle", scheduler.State(1))
			}

			if _, err := scheduler.BeginFrame(); err != nil {
				t.Fatalf("BeginFrame: %v", err)
			}
			current := scheduler.FrameSlot()
			if scheduler.State(current) != FRAME_SLOT_RECORDING {
				t.Errorf("slot %d state %s, want recording", current, scheduler.State(current))
			}
			if tt.slots > 1 && scheduler.State(0) != FRAME_SLOT_PRESENTED {
				t.Errorf("slot 0 state %s while slot 1 records, want presented", scheduler.State(0))
			}
			if err := scheduler.EndFrame(); err != nil {
				t.Fatalf("EndFrame: %v", err)
			}
			device.assertNoViolations(t)
		})
	}
}

func TestSchedulerReleasesEverything(t *testing.T) {
	device := newMockDevice(t)
	swapchain := newTestSwapchain(t, device)
	pool, _ := device.CreateCommandPool(&vk.CommandPoolCreateInfo{})
	queue := device.GetQueue(0)
	scheduler, err := NewFrameScheduler(device, swapchain, pool, queue, queue, 3)
	if err != nil {
		t.Fatalf("NewFrameScheduler: %v", err)
	}
	if _, err := scheduler.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := scheduler.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	device.WaitIdle()
	scheduler.Destroy()
	swapchain.Destroy()
	device.DestroyCommandPool(pool)
	device.assertBalanced(t)
	device.assertNoViolations(t)
}

func TestFrameLoopAfterSwapchainRecreate(t *testing.T) {
	device := newMockDevice(t)
	scheduler, swapchain := newTestScheduler(t, device, 2)

	runFrame := func() {
		t.Helper()
		if _, err := scheduler.BeginFrame(); err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		if err := scheduler.EndFrame(); err != nil {
			t.Fatalf("EndFrame: %v", err)
		}
	}

	runFrame()
	device.WaitIdle()
	if err := swapchain.Recreate(testSwapchainSupport(), 800, 600); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	if err := scheduler.SwapchainRecreated(); err != nil {
		t.Fatalf("SwapchainRecreated: %v", err)
	}
	if device.live[kindCommandBuffer] != int(swapchain.ImageCount()) {
		t.Errorf("%d command buffers alive, want one per image", device.live[kindCommandBuffer])
	}
	for i := 0; i < 3; i++ {
		runFrame()
	}
	device.assertNoViolations(t)
}
