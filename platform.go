package sjik

import "runtime"

// Platform represents the current operating system/platform
type Platform string

const (
	PlatformMacOS   Platform = "darwin"
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// CurrentPlatform returns the platform the app is running on
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	case "linux", "freebsd":
		return PlatformLinux
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// DefaultBackend returns the GPU backend name preferred on the current
// platform.
func DefaultBackend() string {
	switch CurrentPlatform() {
	case PlatformMacOS:
		return "metal"
	case PlatformWindows:
		return "dx12"
	case PlatformLinux:
		return "vulkan"
	default:
		return "gles"
	}
}
