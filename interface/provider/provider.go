package provider

import (
	"context"

	"github.com/sarlab/insar-analyzer/common"
)

// ImageProvider is the interface of an image download service
type ImageProvider interface {
	// Download a scene archive and extract it into localDir
	Download(ctx context.Context, scene common.Scene, localDir string) error

	// Name of the provider
	Name() string
}
