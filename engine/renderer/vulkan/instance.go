package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// Bit of VkInstanceCreateFlags enabling portability enumeration.
const instanceCreateEnumeratePortabilityBit vk.InstanceCreateFlags = 0x00000001

type InstanceConfig struct {
	ApplicationName string
	// Extensions the window system needs for presentation.
	Extensions []string
	Validation bool
}

type Instance struct {
	Handle        vk.Instance
	debugCallback vk.DebugReportCallback
}

// NewInstance loads the Vulkan entry points through procAddress and creates
// the instance. With validation, the Khronos layer and a debug report
// callback logging through the engine logger are enabled.
func NewInstance(procAddress unsafe.Pointer, config InstanceConfig) (*Instance, error) {
	if procAddress == nil {
		return nil, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddress)
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "initialize vulkan loader")
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("Nou Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := append([]string{}, config.Extensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= instanceCreateEnumeratePortabilityBit
	}
	if config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on non-release builds.
	var layers []string
	if config.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableLayers()
		if err != nil {
			return nil, err
		}
		if !hasExtension(available, validationLayerName) {
			return nil, errors.Newf("required validation layer is missing: %s", validationLayerName)
		}
		core.LogInfo("All required validation layers are present.")
		layers = []string{validationLayerName}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var handle vk.Instance
	if err := check(vk.CreateInstance(&createInfo, nil, &handle), "create instance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(handle); err != nil {
		vk.DestroyInstance(handle, nil)
		return nil, errors.Wrap(err, "load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")

	instance := &Instance{Handle: handle}
	if config.Validation {
		if err := instance.createDebugCallback(); err != nil {
			instance.Destroy()
			return nil, err
		}
	}
	return instance, nil
}

func availableLayers() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil), "count instance layers"); err != nil {
		return nil, err
	}
	properties := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, properties), "enumerate instance layers"); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, cString(properties[i].LayerName[:]))
	}
	return names, nil
}

func (i *Instance) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var callback vk.DebugReportCallback
	if err := check(vk.CreateDebugReportCallback(i.Handle, &debugCreateInfo, nil, &callback), "create debug report callback"); err != nil {
		return err
	}
	i.debugCallback = callback
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// Destroy releases the debug callback and the instance. Surfaces and devices
// created from it must already be gone.
func (i *Instance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(i.Handle, i.debugCallback, nil)
		i.debugCallback = vk.NullDebugReportCallback
	}
	if i.Handle != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(i.Handle, nil)
		i.Handle = nil
	}
}

// dbgCallbackFunc forwards validation messages to the logger. It never aborts the call.
func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
