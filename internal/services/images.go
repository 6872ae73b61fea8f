package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"time"

	"github.com/nfnt/resize"

	"github.com/AnshRaj112/visited-regions-backend/pkg/utils"
)

// ImageStore is the object storage used for region images.
type ImageStore interface {
	Put(ctx context.Context, data []byte, key, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

const regionImagePrefix = "regions/"

// RegionImageKey builds regions/{code}/{unixMillis}-{sanitizedFilename}.
func RegionImageKey(code, filename string, now time.Time) string {
	return fmt.Sprintf("%s%s/%d-%s", regionImagePrefix, code, now.UnixMilli(), utils.SanitizeFilename(filename))
}

// RegionCodeFromKey extracts the region code from an image key.
func RegionCodeFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, regionImagePrefix)
	if !ok {
		return "", false
	}
	code, file, ok := strings.Cut(rest, "/")
	if !ok || code == "" || file == "" || strings.Contains(file, "/") {
		return "", false
	}
	return code, true
}

// PrepareImage downscales JPEG and PNG images wider than maxWidth, keeping
// the aspect ratio. Other formats, and images that fail to decode, are
// returned untouched.
func PrepareImage(data []byte, maxWidth uint) ([]byte, error) {
	if maxWidth == 0 {
		return data, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || uint(cfg.Width) <= maxWidth || (format != "jpeg" && format != "png") {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	scaled := resize.Resize(maxWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, scaled)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
