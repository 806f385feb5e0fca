package audio

import (
	"os"
	"path/filepath"
)

// Helper script names, one fixed path per platform.
const (
	linuxSetupScript   = "setup_audio_loopback_linux.sh"
	macosSetupScript   = "setup_audio_loopback_macos.sh"
	windowsSetupScript = "setup_audio_loopback_windows.ps1"
)

// SetupScript returns the loopback helper script path and the argv used
// to execute it on the given platform. ok is false when the platform has
// no helper.
func SetupScript(goos string) (path string, argv []string, ok bool) {
	dir := scriptsDir()
	switch goos {
	case "linux":
		path = filepath.Join(dir, linuxSetupScript)
		return path, []string{"bash", path}, true
	case "darwin":
		path = filepath.Join(dir, macosSetupScript)
		return path, []string{"bash", path}, true
	case "windows":
		path = filepath.Join(dir, windowsSetupScript)
		return path, []string{"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File", path}, true
	default:
		return "", nil, false
	}
}

// ScriptExists reports whether the helper script is present on disk.
func ScriptExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// scriptsDir prefers a scripts directory next to the executable and
// falls back to the working directory for development checkouts.
func scriptsDir() string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), "scripts")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "scripts"
}
