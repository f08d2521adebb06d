package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/nfnt/resize"
	"golang.org/x/image/webp"
)

var (
	ErrUnsupportedFormat = fmt.Errorf("unsupported image format")
	ErrDecodeFailure     = fmt.Errorf("image could not be decoded")
)

/*
decoders maps a detected MIME type to its decode function. Only these
four raster formats are accepted at ingestion time.
*/
var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
	"image/gif":  gif.Decode,
}

func IsSupportedImageType(mimeType string) bool {
	_, ok := decoders[mimeType]
	return ok
}

type Thumbnail struct {
	Data         []byte
	SourceWidth  int
	SourceHeight int
}

type ThumbnailGenerator interface {
	Generate(sourceBytes []byte, mimeType string) (Thumbnail, error)
}

type ThumbnailServiceConfig struct {
	TargetSize int
	Quality    int
}

type ThumbnailService struct {
	targetSize int
	quality    int
}

func NewThumbnailService(config ThumbnailServiceConfig) ThumbnailService {
	if config.TargetSize <= 0 {
		config.TargetSize = 400
	}

	if config.Quality <= 0 {
		config.Quality = 80
	}

	return ThumbnailService{
		targetSize: config.TargetSize,
		quality:    config.Quality,
	}
}

/*
Generate decodes the source image, scales it to fit entirely inside a
targetSize square without distortion, letterboxes it onto an opaque
black canvas, and encodes the result as JPEG. Lanczos resampling
averages source pixels so downscaled thumbnails do not alias.
*/
func (s ThumbnailService) Generate(sourceBytes []byte, mimeType string) (Thumbnail, error) {
	var (
		err error
		img image.Image
		buf bytes.Buffer
	)

	decode, ok := decoders[mimeType]

	if !ok {
		return Thumbnail{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	if img, err = decode(bytes.NewReader(sourceBytes)); err != nil {
		return Thumbnail{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	bounds := img.Bounds()
	sourceWidth := bounds.Dx()
	sourceHeight := bounds.Dy()

	letterboxed := s.letterbox(img, sourceWidth, sourceHeight)

	if err = jpeg.Encode(&buf, letterboxed, &jpeg.Options{Quality: s.quality}); err != nil {
		return Thumbnail{}, fmt.Errorf("error encoding thumbnail: %w", err)
	}

	return Thumbnail{
		Data:         buf.Bytes(),
		SourceWidth:  sourceWidth,
		SourceHeight: sourceHeight,
	}, nil
}

func (s ThumbnailService) letterbox(img image.Image, sourceWidth, sourceHeight int) image.Image {
	var (
		scaledWidth  int
		scaledHeight int
	)

	/*
	 * Scale by the longest edge so the whole image fits in the square.
	 */
	if sourceWidth >= sourceHeight {
		scaledWidth = s.targetSize
		scaledHeight = int(float64(sourceHeight) * (float64(s.targetSize) / float64(sourceWidth)))
	} else {
		scaledHeight = s.targetSize
		scaledWidth = int(float64(sourceWidth) * (float64(s.targetSize) / float64(sourceHeight)))
	}

	if scaledWidth < 1 {
		scaledWidth = 1
	}

	if scaledHeight < 1 {
		scaledHeight = 1
	}

	scaled := resize.Resize(uint(scaledWidth), uint(scaledHeight), img, resize.Lanczos3)

	canvas := image.NewRGBA(image.Rect(0, 0, s.targetSize, s.targetSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	offset := image.Pt((s.targetSize-scaled.Bounds().Dx())/2, (s.targetSize-scaled.Bounds().Dy())/2)
	draw.Draw(canvas, scaled.Bounds().Add(offset), scaled, image.Point{}, draw.Src)

	return canvas
}
