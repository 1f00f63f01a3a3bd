package vulkan

import (
	"runtime"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	DiscreteGPU          bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
}

// Distinct reports whether graphics and present need two queues.
func (q VulkanPhysicalDeviceQueueFamilyInfo) Distinct() bool {
	return q.GraphicsFamilyIndex != q.PresentFamilyIndex
}

type QueueFamily struct {
	Flags   vk.QueueFlags
	Present bool
}

// DeviceCandidate is what the driver reported about one physical device. It is
// captured up front so the selection rules can run without a driver.
type DeviceCandidate struct {
	Handle            vk.PhysicalDevice
	Name              string
	Type              vk.PhysicalDeviceType
	QueueFamilies     []QueueFamily
	Extensions        []string
	SwapchainSupport  VulkanSwapchainSupportInfo
	SamplerAnisotropy bool

	MinUniformBufferOffsetAlignment uint64
	MaxImageDimension2D             uint32
	MemoryTypes                     []vk.MemoryPropertyFlags
	DepthFormat                     vk.Format
}

// PhysicalDevice is the capability summary of the selected device.
type PhysicalDevice struct {
	Handle        vk.PhysicalDevice
	Name          string
	Type          vk.PhysicalDeviceType
	QueueFamilies VulkanPhysicalDeviceQueueFamilyInfo

	MinUniformBufferOffsetAlignment uint64
	MaxImageDimension2D             uint32
	MemoryTypes                     []vk.MemoryPropertyFlags
	DepthFormat                     vk.Format
	SamplerAnisotropy               bool
	PortabilitySubset               bool

	SwapchainSupport VulkanSwapchainSupportInfo
}

// DeviceContext owns the logical device, its queues and the graphics command pool.
type DeviceContext struct {
	Physical      *PhysicalDevice
	Device        Device
	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	CommandPool   vk.CommandPool
}

func defaultDeviceRequirements() *VulkanPhysicalDeviceRequirements {
	return &VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		SamplerAnisotropy:    false,
		DiscreteGPU:          false,
	}
}

// NewDeviceContext picks the first physical device able to render and present
// to surface, then creates the logical device, its queues and the graphics command pool.
func NewDeviceContext(instance vk.Instance, surface vk.Surface, requirements *VulkanPhysicalDeviceRequirements) (*DeviceContext, error) {
	if requirements == nil {
		requirements = defaultDeviceRequirements()
	}

	candidates, err := enumerateDeviceCandidates(instance, surface)
	if err != nil {
		return nil, err
	}

	physical, err := SelectPhysicalDevice(candidates, requirements)
	if err != nil {
		return nil, err
	}
	logPhysicalDevice(physical)

	core.LogInfo("Creating logical device...")
	handle, err := createLogicalDevice(physical)
	if err != nil {
		return nil, err
	}
	device := newVkDevice(handle)
	core.LogInfo("Logical device created.")

	dc := &DeviceContext{
		Physical:      physical,
		Device:        device,
		GraphicsQueue: device.GetQueue(physical.QueueFamilies.GraphicsFamilyIndex),
		PresentQueue:  device.GetQueue(physical.QueueFamilies.PresentFamilyIndex),
	}
	core.LogInfo("Queues obtained.")

	pool, err := createCommandPool(device, physical.QueueFamilies.GraphicsFamilyIndex)
	if err != nil {
		device.Destroy()
		return nil, err
	}
	dc.CommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return dc, nil
}

func createCommandPool(device Device, family uint32) (vk.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	pool, res := device.CreateCommandPool(&poolCreateInfo)
	if err := check(res, "create graphics command pool"); err != nil {
		return vk.NullCommandPool, err
	}
	return pool, nil
}

func (dc *DeviceContext) Destroy() {
	if dc.Device == nil {
		return
	}
	dc.GraphicsQueue = nil
	dc.PresentQueue = nil

	core.LogInfo("Destroying command pools...")
	if dc.CommandPool != vk.NullCommandPool {
		dc.Device.DestroyCommandPool(dc.CommandPool)
		dc.CommandPool = vk.NullCommandPool
	}

	// Physical devices are not destroyed.
	core.LogInfo("Destroying logical device...")
	dc.Device.Destroy()
	dc.Device = nil
}

// SelectPhysicalDevice returns the first candidate meeting the requirements.
func SelectPhysicalDevice(candidates []DeviceCandidate, requirements *VulkanPhysicalDeviceRequirements) (*PhysicalDevice, error) {
	if len(candidates) == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return nil, errors.WithStack(core.ErrNoSuitableDevice)
	}

	for i := range candidates {
		candidate := &candidates[i]
		queues, ok := PhysicalDeviceMeetsRequirements(candidate, requirements)
		if !ok {
			continue
		}
		return &PhysicalDevice{
			Handle:                          candidate.Handle,
			Name:                            candidate.Name,
			Type:                            candidate.Type,
			QueueFamilies:                   queues,
			MinUniformBufferOffsetAlignment: candidate.MinUniformBufferOffsetAlignment,
			MaxImageDimension2D:             candidate.MaxImageDimension2D,
			MemoryTypes:                     candidate.MemoryTypes,
			DepthFormat:                     candidate.DepthFormat,
			SamplerAnisotropy:               candidate.SamplerAnisotropy,
			PortabilitySubset:               hasExtension(candidate.Extensions, portabilitySubsetExtensionName),
			SwapchainSupport:                candidate.SwapchainSupport,
		}, nil
	}

	core.LogError("No physical devices were found which meet the requirements.")
	return nil, errors.WithStack(core.ErrNoSuitableDevice)
}

// PhysicalDeviceMeetsRequirements checks queue support, extensions, swapchain
// support and the depth format of one candidate and returns the queue families to use.
func PhysicalDeviceMeetsRequirements(candidate *DeviceCandidate, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{}

	if requirements.DiscreteGPU && candidate.Type != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", candidate.Name)
		return queueInfo, false
	}

	graphics, present := -1, -1
	for i, family := range candidate.QueueFamilies {
		if graphics < 0 && family.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphics = i
		}
		if present < 0 && family.Present {
			present = i
		}
	}
	// Prefer a single queue when the graphics family can also present.
	if graphics >= 0 && candidate.QueueFamilies[graphics].Present {
		present = graphics
	}
	if graphics < 0 || present < 0 {
		core.LogInfo("Device '%s' lacks a graphics or present queue, skipping.", candidate.Name)
		return queueInfo, false
	}
	queueInfo.GraphicsFamilyIndex = uint32(graphics)
	queueInfo.PresentFamilyIndex = uint32(present)

	for _, name := range requirements.DeviceExtensionNames {
		if !hasExtension(candidate.Extensions, name) {
			core.LogInfo("Required extension not found: '%s', skipping device.", name)
			return queueInfo, false
		}
	}

	if len(candidate.SwapchainSupport.Formats) < 1 || len(candidate.SwapchainSupport.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queueInfo, false
	}

	if requirements.SamplerAnisotropy && !candidate.SamplerAnisotropy {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return queueInfo, false
	}

	if candidate.DepthFormat == vk.FormatUndefined {
		core.LogInfo("Device '%s' has no usable depth format, skipping.", candidate.Name)
		return queueInfo, false
	}

	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)
	return queueInfo, true
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has every requested property.
func FindMemoryIndex(pd *PhysicalDevice, typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range pd.MemoryTypes {
		if typeFilter&(1<<uint32(i)) != 0 && flags&properties == properties {
			return uint32(i), nil
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, errors.Wrapf(core.ErrAllocationFailure, "type filter %#x, properties %#x", typeFilter, uint32(properties))
}

func hasExtension(extensions []string, name string) bool {
	for _, ext := range extensions {
		if ext == name {
			return true
		}
	}
	return false
}

func enumerateDeviceCandidates(instance vk.Instance, surface vk.Surface) ([]DeviceCandidate, error) {
	var physicalDeviceCount uint32
	if err := check(vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, nil), "enumerate physical devices"); err != nil {
		return nil, err
	}
	if physicalDeviceCount == 0 {
		return nil, nil
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := check(vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, physicalDevices), "enumerate physical devices"); err != nil {
		return nil, err
	}

	candidates := make([]DeviceCandidate, 0, physicalDeviceCount)
	for _, pd := range physicalDevices[:physicalDeviceCount] {
		candidate, err := describePhysicalDevice(pd, surface)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func describePhysicalDevice(pd vk.PhysicalDevice, surface vk.Surface) (DeviceCandidate, error) {
	candidate := DeviceCandidate{Handle: pd}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()
	properties.Limits.Deref()
	candidate.Name = cString(properties.DeviceName[:])
	candidate.Type = properties.DeviceType
	candidate.MinUniformBufferOffsetAlignment = uint64(properties.Limits.MinUniformBufferOffsetAlignment)
	candidate.MaxImageDimension2D = properties.Limits.MaxImageDimension2D

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()
	candidate.SamplerAnisotropy = features.SamplerAnisotropy == vk.True

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
	memory.Deref()
	candidate.MemoryTypes = make([]vk.MemoryPropertyFlags, memory.MemoryTypeCount)
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		candidate.MemoryTypes[i] = memory.MemoryTypes[i].PropertyFlags
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, queueFamilies)
	candidate.QueueFamilies = make([]QueueFamily, queueFamilyCount)
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		var supportsPresent vk.Bool32
		if err := check(vk.GetPhysicalDeviceSurfaceSupport(pd, i, surface, &supportsPresent), "query surface support"); err != nil {
			return candidate, err
		}
		candidate.QueueFamilies[i] = QueueFamily{
			Flags:   queueFamilies[i].QueueFlags,
			Present: supportsPresent == vk.True,
		}
	}

	var extensionCount uint32
	if err := check(vk.EnumerateDeviceExtensionProperties(pd, "", &extensionCount, nil), "enumerate device extensions"); err != nil {
		return candidate, err
	}
	extensions := make([]vk.ExtensionProperties, extensionCount)
	if extensionCount > 0 {
		if err := check(vk.EnumerateDeviceExtensionProperties(pd, "", &extensionCount, extensions), "enumerate device extensions"); err != nil {
			return candidate, err
		}
	}
	for i := range extensions {
		extensions[i].Deref()
		candidate.Extensions = append(candidate.Extensions, cString(extensions[i].ExtensionName[:]))
	}

	support, err := QuerySwapchainSupport(pd, surface)
	if err != nil {
		return candidate, err
	}
	candidate.SwapchainSupport = support
	candidate.DepthFormat = detectDepthFormat(pd)

	return candidate, nil
}

// QuerySwapchainSupport reads the surface capabilities, formats and present modes.
func QuerySwapchainSupport(pd vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	supportInfo := VulkanSwapchainSupportInfo{}

	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &supportInfo.Capabilities), "query surface capabilities"); err != nil {
		return supportInfo, err
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil), "query surface formats"); err != nil {
		return supportInfo, err
	}
	if formatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := check(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, supportInfo.Formats), "query surface formats"); err != nil {
			return supportInfo, err
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, nil), "query surface present modes"); err != nil {
		return supportInfo, err
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if err := check(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, supportInfo.PresentModes), "query surface present modes"); err != nil {
			return supportInfo, err
		}
	}
	return supportInfo, nil
}

func detectDepthFormat(pd vk.PhysicalDevice) vk.Format {
	// Format candidates
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(pd, format, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			return format
		}
	}
	return vk.FormatUndefined
}

func createLogicalDevice(pd *PhysicalDevice) (vk.Device, error) {
	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{pd.QueueFamilies.GraphicsFamilyIndex}
	if pd.QueueFamilies.Distinct() {
		indices = append(indices, pd.QueueFamilies.PresentFamilyIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if pd.SamplerAnisotropy {
		deviceFeatures.SamplerAnisotropy = vk.True
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if pd.PortabilitySubset {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if err := check(vk.CreateDevice(pd.Handle, &deviceCreateInfo, nil, &device), "create logical device"); err != nil {
		return nil, err
	}
	return device, nil
}

func logPhysicalDevice(pd *PhysicalDevice) {
	core.LogInfo("Selected device: '%s'.", pd.Name)
	switch pd.Type {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	if runtime.GOOS == "darwin" && pd.PortabilitySubset {
		core.LogDebug("Running on a portability implementation.")
	}
	core.LogDebug("Min uniform buffer offset alignment: %d", pd.MinUniformBufferOffsetAlignment)
}
