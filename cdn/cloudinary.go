// Package cdn stores generated images on Cloudinary.
package cdn

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Dimensions asks the CDN to crop-fill the stored asset to an exact size.
type Dimensions struct {
	Width  int
	Height int
}

// Asset is what the CDN reports for a stored upload.
type Asset struct {
	URL      string
	PublicID string
	Width    int
	Height   int
}

// Cloudinary stores images in one cloud with signed uploads.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

// Upload stores data under folder/id. When dims is set the stored asset is
// transformed to exactly that size.
func (c *Cloudinary) Upload(ctx context.Context, data []byte, folder, id string, dims *Dimensions) (*Asset, error) {
	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     id,
		Overwrite:    api.Bool(true),
		ResourceType: "image",
	}
	if dims != nil {
		params.Transformation = fmt.Sprintf("c_fill,w_%d,h_%d", dims.Width, dims.Height)
	}

	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return &Asset{URL: res.SecureURL, PublicID: res.PublicID, Width: res.Width, Height: res.Height}, nil
}

// Delete removes an asset. It reports false when the CDN did not know it.
func (c *Cloudinary) Delete(ctx context.Context, publicID string) (bool, error) {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return false, fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return res.Result == "ok", nil
}
