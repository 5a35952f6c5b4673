package facility

import (
	"context"

	"triage-workers/internal/common/errors"
	"triage-workers/internal/models"
	"triage-workers/pkg/registry"
)

// FileSource reads a JSON or YAML registry document from disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Load(ctx context.Context) ([]models.Facility, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewRegistryLoadFailedError(s.Name(), err)
	}
	doc, err := registry.LoadRegistry(s.path)
	if err != nil {
		return nil, errors.NewRegistryLoadFailedError(s.Name(), err)
	}
	return doc.Facilities, nil
}
