package provider

import (
	"context"
	"fmt"

	"github.com/sarlab/insar-analyzer/common"
)

const asfDownloadProductSLC = "https://datapool.asf.alaska.edu/SLC/S{MISSION_VERSION}/{SCENE}.zip"

// ASFImageProvider implements ImageProvider for Alaska Satellite Facility.
// Authentication is an Earthdata bearer token, or user/password when no
// token is configured.
type ASFImageProvider struct {
	token string
	user  string
	pword string
}

// Name implements ImageProvider
func (ip *ASFImageProvider) Name() string {
	return "ASF"
}

// NewASFImageProvider creates a new ImageProvider from ASF
func NewASFImageProvider(token, user, pword string) *ASFImageProvider {
	return &ASFImageProvider{token: token, user: user, pword: pword}
}

// Download implements ImageProvider. The catalog download URL is used when
// the scene carries one, otherwise the datapool SLC url is derived from the
// product identifier.
func (ip *ASFImageProvider) Download(ctx context.Context, scene common.Scene, localDir string) error {
	sceneName := scene.SourceID
	url := scene.DownloadURL
	if url == "" {
		if !common.IsSentinel1ProductID(sceneName) {
			return fmt.Errorf("ASFImageProvider: constellation not supported")
		}
		info, err := common.Info(sceneName)
		if err != nil {
			return fmt.Errorf("ASFImageProvider.%w", err)
		}
		if info["PRODUCT_TYPE"] != "SLC" {
			return fmt.Errorf("ASFImageProvider: not supported product type: %s", info["PRODUCT_TYPE"])
		}
		url = common.FormatBrackets(asfDownloadProductSLC, info)
	}

	var err error
	if ip.token != "" {
		token := "Bearer " + ip.token
		err = downloadZipWithAuth(ctx, url, localDir, sceneName, ip.Name(), nil, nil, "Authorization", &token, true)
	} else {
		err = downloadZipWithAuth(ctx, url, localDir, sceneName, ip.Name(), &ip.user, &ip.pword, "", nil, true)
	}
	if err != nil {
		return fmt.Errorf("ASFImageProvider.%w", err)
	}
	return nil
}
