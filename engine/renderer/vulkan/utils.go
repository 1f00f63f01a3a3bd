package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

// check converts a Vulkan result into an error wrapped with the failed
// operation. Device loss is marked so callers can match core.ErrDeviceLost.
func check(res vk.Result, op string, args ...interface{}) error {
	if res == vk.Success {
		return nil
	}
	err := errors.Wrapf(vk.Error(res), op, args...)
	switch res {
	case vk.ErrorDeviceLost:
		err = errors.Mark(err, core.ErrDeviceLost)
	case vk.ErrorOutOfDate:
		err = errors.Mark(err, core.ErrSwapchainOutOfDate)
	}
	core.LogError(err.Error())
	return err
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// FindFirstZeroInByteArray returns the index of the first NUL byte, or the
// slice length when there is none.
func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// cString turns a fixed size, NUL terminated name reported by the driver into a Go string.
func cString(arr []byte) string {
	return string(arr[:FindFirstZeroInByteArray(arr)])
}
