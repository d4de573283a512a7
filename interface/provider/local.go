package provider

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/sarlab/insar-analyzer/common"
)

// LocalImageProvider implements ImageProvider for local storage
type LocalImageProvider struct {
	path string
}

// Name implements ImageProvider
func (ip *LocalImageProvider) Name() string {
	return "FileSystem (" + ip.path + ")"
}

// NewLocalImageProvider creates a new ImageProvider from local storage
func NewLocalImageProvider(path string) *LocalImageProvider {
	return &LocalImageProvider{path: path}
}

// Download implements ImageProvider. The archive is looked up flat in the
// folder first, then under YYYY/MM/DD subfolders.
func (ip *LocalImageProvider) Download(ctx context.Context, scene common.Scene, localDir string) error {
	sceneName := scene.SourceID

	candidates := []string{path.Join(ip.path, sceneName+".zip")}
	if date, err := common.GetDateFromProductId(sceneName); err == nil {
		folders := strings.Split(date.Format("2006-01-02"), "-")
		candidates = append(candidates, path.Join(ip.path, folders[0], folders[1], folders[2], sceneName+".zip"))
	}

	for _, srcZip := range candidates {
		if _, err := os.Stat(srcZip); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("LocalImageProvider: %w", err)
		}
		if err := unarchive(srcZip, localDir); err != nil {
			return fmt.Errorf("LocalImageProvider.Unarchive: %w", err)
		}
		return nil
	}
	return ErrProductNotFound{candidates[0]}
}
