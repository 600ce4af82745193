package overlay

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/HugoSmits86/nativewebp"
)

// EncodeWebP writes img as lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("overlay: encode webp: %w", err)
	}
	return nil
}

// WriteWebP renders segs and saves the preview to path.
func WriteWebP(path string, segs []Segment, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("overlay: create %s: %w", path, err)
	}
	if err := EncodeWebP(f, Render(segs, opts)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
