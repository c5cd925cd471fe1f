// Package ffmpeg drives the ffmpeg and ffprobe executables to probe, decode
// and encode video.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

var (
	pathMu      sync.RWMutex
	customPaths = map[string]string{}
)

// SetFFmpegPath overrides the ffmpeg executable location. An empty path
// restores discovery.
func SetFFmpegPath(path string) {
	setCustomPath("ffmpeg", path)
}

// SetFFprobePath overrides the ffprobe executable location. An empty path
// restores discovery.
func SetFFprobePath(path string) {
	setCustomPath("ffprobe", path)
}

func setCustomPath(tool, path string) {
	pathMu.Lock()
	defer pathMu.Unlock()
	if path == "" {
		delete(customPaths, tool)
		return
	}
	customPaths[tool] = path
}

// FindFFmpeg locates ffmpeg.
// Priority: 1) SetFFmpegPath, 2) FFMPEG_PATH env, 3) PATH, 4) common locations.
func FindFFmpeg() (string, error) {
	return find("ffmpeg", "FFMPEG_PATH", ErrFFmpegNotFound)
}

// FindFFprobe locates ffprobe using the same order as FindFFmpeg with the
// FFPROBE_PATH environment variable.
func FindFFprobe() (string, error) {
	return find("ffprobe", "FFPROBE_PATH", ErrFFprobeNotFound)
}

// IsAvailable reports whether both ffmpeg and ffprobe can be found.
func IsAvailable() bool {
	if _, err := FindFFmpeg(); err != nil {
		return false
	}
	_, err := FindFFprobe()
	return err == nil
}

func find(tool, envVar string, notFound error) (string, error) {
	pathMu.RLock()
	custom := customPaths[tool]
	pathMu.RUnlock()

	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", notFound, custom)
	}

	if envPath := os.Getenv(envVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: %s %s not found", notFound, envVar, envPath)
	}

	execName := tool
	if runtime.GOOS == "windows" {
		execName += ".exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	for _, dir := range commonDirs() {
		p := dir + string(os.PathSeparator) + execName
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", notFound
}

func commonDirs() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{`C:\ffmpeg\bin`, `C:\Program Files\ffmpeg\bin`, `C:\Program Files (x86)\ffmpeg\bin`}
	case "darwin":
		return []string{"/opt/homebrew/bin", "/usr/local/bin", "/usr/bin"}
	}
	return []string{"/usr/bin", "/usr/local/bin", "/opt/homebrew/bin", "/snap/bin"}
}
