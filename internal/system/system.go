package system

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	// Каждый видео-экран держит открытый процесс ffmpeg с тремя пайпами
	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// MediaKind classifies an input file by extension.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindImage
	KindVideo
	KindPDF
)

var (
	imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	videoExts = []string{".mp4", ".mov", ".webm", ".m4v", ".mkv"}
)

func KindOf(path string) MediaKind {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return KindPDF
	}
	for _, e := range imageExts {
		if ext == e {
			return KindImage
		}
	}
	for _, e := range videoExts {
		if ext == e {
			return KindVideo
		}
	}
	return KindUnknown
}

// ListMedia returns the importable files of dir, oldest first, so the
// screen order follows the order they were captured in.
func ListMedia(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type entry struct {
		path string
		mod  int64
	}
	var found []entry
	for _, f := range files {
		if f.IsDir() || KindOf(f.Name()) == KindUnknown {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		found = append(found, entry{filepath.Join(dir, f.Name()), info.ModTime().UnixNano()})
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("в папке %s не найдено изображений или видео", dir)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].mod != found[j].mod {
			return found[i].mod < found[j].mod
		}
		return found[i].path < found[j].path
	})
	paths := make([]string, len(found))
	for i, e := range found {
		paths[i] = e.path
	}
	return paths, nil
}

// GetMediaDuration reads the container duration through ffprobe.
func GetMediaDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unexpected output %q", filepath.Base(path), strings.TrimSpace(string(out)))
	}

	return duration, nil
}

var (
	encoderOnce sync.Once
	encoderName string
)

// GetBestH264Encoder returns the first hardware H.264 encoder ffmpeg offers,
// falling back to libx264. The result is cached for the process.
func GetBestH264Encoder() string {
	encoderOnce.Do(func() {
		encoderName = detectH264Encoder()
	})
	return encoderName
}

func detectH264Encoder() string {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// H264QualityArgs maps a CRF-style quality to the encoder's own rate option.
func H264QualityArgs(encoder string, crf int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не поддерживает CRF, используем битрейт
		return []string{"-b:v", fmt.Sprintf("%dk", (51-crf)*300)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", crf)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", crf), "-preset", "fast"}
	}
}

// HasFFmpeg reports whether both ffmpeg and ffprobe are on PATH.
func HasFFmpeg() bool {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	return true
}
