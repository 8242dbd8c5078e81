package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	DoctorImageFolder  = "prescripto/doctors"
	PatientImageFolder = "prescripto/patients"
)

// ImageUploader stores profile images on Cloudinary and hands back their
// public URL.
type ImageUploader struct {
	cld *cloudinary.Cloudinary
}

func NewImageUploader(cloudName, apiKey, apiSecret string) (*ImageUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &ImageUploader{cld: cld}, nil
}

// UploadImage uploads one image part of a multipart form.
func (u *ImageUploader) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	res, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return res.SecureURL, nil
}
