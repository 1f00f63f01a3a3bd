package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
		want     uint32
	}{
		{"one above minimum", 2, 8, 3},
		{"capped at maximum", 3, 3, 3},
		{"unbounded", 2, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
			if got := ChooseImageCount(caps); got != tt.want {
				t.Errorf("ChooseImageCount(min=%d, max=%d) = %d, want %d", tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name    string
		formats []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{"desired available", []vk.SurfaceFormat{unorm, defaultSurfaceFormat}, defaultSurfaceFormat},
		{"falls back to first", []vk.SurfaceFormat{unorm}, unorm},
		{"nothing reported", nil, defaultSurfaceFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseSurfaceFormat(tt.formats, defaultSurfaceFormat); got != tt.want {
				t.Errorf("ChooseSurfaceFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		name    string
		modes   []vk.PresentMode
		desired vk.PresentMode
		want    vk.PresentMode
	}{
		{"mailbox available", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.PresentModeMailbox, vk.PresentModeMailbox},
		{"mailbox missing", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, vk.PresentModeMailbox, vk.PresentModeFifo},
		{"fifo requested", []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeFifo}, vk.PresentModeFifo, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChoosePresentMode(tt.modes, tt.desired); got != tt.want {
				t.Errorf("ChoosePresentMode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseExtent(t *testing.T) {
	bounded := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: undefinedExtent, Height: undefinedExtent},
		MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}
	fixed := vk.SurfaceCapabilities{
		CurrentExtent: vk.Extent2D{Width: 800, Height: 600},
	}

	tests := []struct {
		name          string
		caps          vk.SurfaceCapabilities
		width, height uint32
		want          vk.Extent2D
	}{
		{"surface dictates", fixed, 1280, 720, vk.Extent2D{Width: 800, Height: 600}},
		{"window inside range", bounded, 1280, 720, vk.Extent2D{Width: 1280, Height: 720}},
		{"window too large", bounded, 4000, 3000, vk.Extent2D{Width: 1920, Height: 1080}},
		{"window too small", bounded, 10, 20, vk.Extent2D{Width: 100, Height: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseExtent(tt.caps, tt.width, tt.height); got != tt.want {
				t.Errorf("ChooseExtent(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func testSwapchainSupport() VulkanSwapchainSupportInfo {
	return VulkanSwapchainSupportInfo{
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 4,
			CurrentExtent: vk.Extent2D{Width: 640, Height: 480},
		},
		Formats:      []vk.SurfaceFormat{defaultSurfaceFormat},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo},
	}
}

func newTestSwapchain(t *testing.T, device *mockDevice) *Swapchain {
	t.Helper()
	swapchain, err := CreateSwapchain(device, nil, testSwapchainSupport(), VulkanPhysicalDeviceQueueFamilyInfo{}, SwapchainConfig{
		DesiredFormat:      defaultSurfaceFormat,
		DesiredPresentMode: vk.PresentModeMailbox,
		Width:              640,
		Height:             480,
	})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	return swapchain
}

func TestSwapchainLifecycle(t *testing.T) {
	device := newMockDevice(t)
	swapchain := newTestSwapchain(t, device)

	if got := swapchain.ImageCount(); got != device.swapchainImages {
		t.Errorf("ImageCount() = %d, want %d", got, device.swapchainImages)
	}
	if len(swapchain.Views) != len(swapchain.Images) {
		t.Errorf("%d views for %d images", len(swapchain.Views), len(swapchain.Images))
	}
	if swapchain.PresentMode != vk.PresentModeFifo {
		t.Errorf("PresentMode = %d, want FIFO fallback", swapchain.PresentMode)
	}

	if err := swapchain.Recreate(testSwapchainSupport(), 800, 600); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	if device.created[kindSwapchain] != 2 {
		t.Errorf("created %d swapchains, want 2", device.created[kindSwapchain])
	}

	swapchain.Destroy()
	device.assertBalanced(t)
	device.assertNoViolations(t)
}

func TestCreateSwapchainWithoutFormats(t *testing.T) {
	device := newMockDevice(t)
	support := testSwapchainSupport()
	support.Formats = nil

	if _, err := CreateSwapchain(device, nil, support, VulkanPhysicalDeviceQueueFamilyInfo{}, SwapchainConfig{}); err == nil {
		t.Fatal("expected an error for a surface without formats")
	}
	device.assertBalanced(t)
}
