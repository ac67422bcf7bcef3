package service

import (
	"context"
	"strings"

	"github.com/spec-kit/space-booking/internal/repository"
)

// ImageUpload is an image received in a multipart "file" part.
type ImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// storeImage saves upload and returns its public URL; a nil upload keeps current.
func storeImage(ctx context.Context, images repository.ImageRepository, baseURL string, upload *ImageUpload, current string) (string, error) {
	if upload == nil || len(upload.Data) == 0 {
		return current, nil
	}
	img := &repository.Image{FileName: upload.FileName, ContentType: upload.ContentType, Data: upload.Data}
	if err := images.Put(ctx, img); err != nil {
		return "", err
	}
	if key := imageKey(baseURL, current); key != "" {
		_ = images.Delete(ctx, key)
	}
	return strings.TrimRight(baseURL, "/") + "/images/" + img.Key, nil
}

func imageKey(baseURL, url string) string {
	prefix := strings.TrimRight(baseURL, "/") + "/images/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
