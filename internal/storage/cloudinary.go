// Package storage holds the blob store used for avatar images.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// BlobStore stores and removes avatar blobs. URLFor-style lookups are not
// needed: Upload returns the public URL that gets persisted on the user.
type BlobStore interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// CloudinaryStore keeps avatars in a single Cloudinary folder.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	fileBytes, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	result, err := s.cld.Upload.Upload(ctx, fileBytes, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     strings.TrimSuffix(name, path.Ext(name)),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}

	return result.SecureURL, nil
}

// Delete removes the blob behind a previously returned URL. The public id is
// recovered from the URL's final path segment, mirroring how the avatar was
// named at upload time.
func (s *CloudinaryStore) Delete(ctx context.Context, url string) error {
	name := path.Base(strings.SplitN(url, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		return fmt.Errorf("cannot derive blob name from url %q", url)
	}
	publicID := s.folder + "/" + strings.TrimSuffix(name, path.Ext(name))

	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete from Cloudinary: %w", err)
	}
	return nil
}
