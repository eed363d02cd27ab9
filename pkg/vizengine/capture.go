package vizengine

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// captureFrame saves the current frame as a PNG under the configured
// capture directory. Pixels are copied out synchronously (reading from an
// ebiten.Image is only valid on the game loop); encoding happens off-loop.
func (e *Engine) captureFrame(img *ebiten.Image, suffix string, timestamp time.Time) {
	if e.cfg.CaptureDir == "" {
		return
	}
	if err := os.MkdirAll(e.cfg.CaptureDir, 0o755); err != nil {
		e.logger.Error("creating capture directory", "err", err)
		return
	}

	filename := fmt.Sprintf("taxoscope-%s-%s.png", timestamp.Format("20060102-150405"), strings.ReplaceAll(suffix, " ", "-"))
	path := filepath.Join(e.cfg.CaptureDir, filename)

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	img.ReadPixels(rgba.Pix)

	go func() {
		f, err := os.Create(path)
		if err != nil {
			e.logger.Error("creating capture file", "err", err)
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				e.logger.Error("closing capture file", "err", err)
			}
		}()
		if err := png.Encode(f, rgba); err != nil {
			e.logger.Error("encoding capture", "err", err)
			return
		}
		e.logger.Info("captured frame", "path", path)
	}()
}
