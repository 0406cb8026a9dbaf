package store

import (
	"context"
	"os"

	"github.com/dmorgan81/drawthings/internal/log"
)

type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

// FileUploader writes an artifact to the local filesystem. Name is the full
// destination path; Metadata lives in the sibling config file, not here.
type FileUploader struct{}

func (*FileUploader) Upload(ctx context.Context, params UploadParams) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("file")
	log.Info("writing", "file", params.Name)
	return os.WriteFile(params.Name, params.Data, 0600)
}
