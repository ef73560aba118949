package releases

import (
	"strings"
)

// OS is the operating system a visitor is running
type OS string

const (
	OSWindows OS = "windows"
	OSMac     OS = "mac"
	OSLinux   OS = "linux"
	OSUnknown OS = "unknown"
)

// Platform is the platform an asset was built for
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformMac     Platform = "mac"
	PlatformLinux   Platform = "linux"
	PlatformOther   Platform = "other"
)

var (
	windowsMarkers = []string{"win"}
	macMarkers     = []string{"mac", "iphone", "ipad", "ipod"}
	linuxMarkers   = []string{"linux", "x11"}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// DetectOS guesses the visitor OS from a browser User-Agent
// (or navigator.platform) string
func DetectOS(userAgent string) OS {
	ua := strings.ToLower(userAgent)
	switch {
	case containsAny(ua, windowsMarkers):
		return OSWindows
	case containsAny(ua, macMarkers):
		return OSMac
	case containsAny(ua, linuxMarkers):
		return OSLinux
	}
	return OSUnknown
}

// OSFromGOOS maps a runtime.GOOS value to an OS
func OSFromGOOS(goos string) OS {
	switch goos {
	case "windows":
		return OSWindows
	case "darwin", "ios":
		return OSMac
	case "linux":
		return OSLinux
	}
	return OSUnknown
}

// PlatformFromFilename classifies an asset by its filename.
// Substring matches are loose: "macro_build.zip" is reported as
// mac and "app-darwin.tar.gz" as windows.
func PlatformFromFilename(name string) Platform {
	n := strings.ToLower(name)
	switch {
	case hasAnySuffix(n, ".exe", ".msi") || strings.Contains(n, "win"):
		return PlatformWindows
	case hasAnySuffix(n, ".dmg", ".pkg") || strings.Contains(n, "mac"):
		return PlatformMac
	case hasAnySuffix(n, ".appimage", ".deb", ".rpm") || strings.Contains(n, "linux"):
		return PlatformLinux
	case strings.HasSuffix(n, ".zip") && strings.Contains(n, "mac"):
		return PlatformMac
	}
	return PlatformOther
}

// PriorityFor returns the platforms to look for, in order, when
// picking a download for os
func PriorityFor(os OS) []Platform {
	switch os {
	case OSWindows:
		return []Platform{PlatformWindows, PlatformOther}
	case OSMac:
		return []Platform{PlatformMac, PlatformOther}
	case OSLinux:
		return []Platform{PlatformLinux, PlatformOther}
	}
	return []Platform{PlatformOther}
}

// ChooseBest returns the first asset matching the platforms
// preferred for os. If none matches, the first asset is returned.
// It returns nil only when assets is empty.
func ChooseBest(assets []*Asset, os OS) *Asset {
	if len(assets) == 0 {
		return nil
	}
	for _, p := range PriorityFor(os) {
		for _, a := range assets {
			if a != nil && a.Platform() == p {
				return a
			}
		}
	}
	return assets[0]
}
