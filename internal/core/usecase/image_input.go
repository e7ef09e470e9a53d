package usecase

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

const imageMediaTypePrefix = "image/"

// ImageInput holds the currently selected image. The preview and the bytes
// handed to the conversion client always come from the same slice.
type ImageInput struct {
	artifact *domain.ImageArtifact
}

func NewImageInput() *ImageInput {
	return &ImageInput{}
}

func (in *ImageInput) Select(candidate domain.ImageCandidate) (*domain.ImageArtifact, error) {
	mediaType := strings.ToLower(strings.TrimSpace(candidate.MediaType))
	if !strings.HasPrefix(mediaType, imageMediaTypePrefix) {
		return nil, domain.WrapError(
			domain.ErrInvalidFileType,
			"select image",
			fmt.Errorf("media type %q is not an image", candidate.MediaType),
		)
	}
	if candidate.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "select image", errors.New("empty file body"))
	}

	data, err := io.ReadAll(candidate.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "select image", fmt.Errorf("read file: %w", err))
	}

	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	in.artifact = &domain.ImageArtifact{
		Data:        data,
		MediaType:   mediaType,
		DisplayName: filepath.Base(strings.TrimSpace(candidate.Name)),
	}
	if in.artifact.DisplayName == "." {
		in.artifact.DisplayName = ""
	}
	return in.artifact, nil
}

func (in *ImageInput) Current() *domain.ImageArtifact {
	return in.artifact
}

// Preview returns a data URI built from the held artifact, or "" when nothing is selected.
func (in *ImageInput) Preview() string {
	return in.artifact.DataURI()
}

func (in *ImageInput) Clear() {
	in.artifact = nil
}
