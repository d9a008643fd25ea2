package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // decoder for staged GIFs
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"roastery/internal/config"
)

// Thumbnailer renders small preview images for staged photos.
type Thumbnailer struct {
	opts config.ThumbnailOptions
}

func NewThumbnailer(opts config.ThumbnailOptions) *Thumbnailer {
	return &Thumbnailer{opts: opts}
}

func (t *Thumbnailer) Generate(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Resize(img, t.opts.Width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	convertTo := t.opts.ConvertTo
	if strings.Contains(convertTo, "png") {
		err = png.Encode(&buf, resized)
	} else if strings.Contains(convertTo, "webp") {
		err = webp.Encode(&buf, resized, &webp.Options{Quality: float32(t.opts.Quality)})
	} else {
		// jpeg is the default, matching unknown formats too
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: t.opts.Quality})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}
