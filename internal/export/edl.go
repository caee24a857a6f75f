package export

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// EDLExporter writes a CMX-style edit decision list next to the source
// assets instead of rendering. Useful for finishing the edit in an NLE.
type EDLExporter struct {
	outputDir string
	frameRate float64
	logger    *slog.Logger
}

// NewEDLExporter creates an exporter writing .edl files into outputDir.
func NewEDLExporter(outputDir string, frameRate float64, logger *slog.Logger) *EDLExporter {
	return &EDLExporter{outputDir: outputDir, frameRate: frameRate, logger: logger}
}

func (e *EDLExporter) Export(_ context.Context, manifest Manifest, progress Progress) (*Result, error) {
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if err := ValidateOutputDir(e.outputDir); err != nil {
		return nil, err
	}

	title := ExportName(manifest.Title)

	if progress != nil {
		progress(0)
	}

	content := GenerateEDL(manifest, title, e.frameRate)
	path := filepath.Join(e.outputDir, title+".edl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write edl: %w", err)
	}

	if progress != nil {
		progress(100)
	}
	e.logger.Info("wrote edit decision list",
		"path", path,
		"clip_count", len(manifest.Clips),
	)
	return &Result{ResultURL: "file://" + path, ResultType: "edl"}, nil
}

// GenerateEDL renders a manifest as a CMX 3600 style list. Source in
// and out come from each clip's trim window; record times run
// sequentially from zero.
func GenerateEDL(manifest Manifest, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffset := 0.0
	for i, clip := range manifest.Clips {
		srcIn := secondsToTimecode(clip.TrimStart, fps)
		srcOut := secondsToTimecode(clip.TrimEnd, fps)
		recIn := secondsToTimecode(recordOffset, fps)
		duration := clip.TrimEnd - clip.TrimStart
		recOut := secondsToTimecode(recordOffset+duration, fps)

		name := clip.Label
		if name == "" {
			name = clip.ID
		}
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", name),
			fmt.Sprintf("* SOURCE:  %s", clip.SourceURL),
		)

		recordOffset += duration
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToTimecode(seconds float64, fps int) string {
	totalFrames := int(math.Round(seconds * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, secs, frames)
}
