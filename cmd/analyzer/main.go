package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/sarlab/insar-analyzer/catalog"
	"github.com/sarlab/insar-analyzer/interface/provider"
	"github.com/sarlab/insar-analyzer/raster"
	"github.com/sarlab/insar-analyzer/service/log"
	"github.com/sarlab/insar-analyzer/workflow"
)

type config struct {
	AppPort     string
	WorkDir     string
	DownloadDir string
	CondaEnv    string

	ASFEndpoint       string
	ASFToken          string
	EarthdataUsername string
	EarthdataPassword string
	LocalProviderPath string
	DownloadWorkers   int
	DownloadRetries   int
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.AppPort, "port", "8080", "analyzer port to use")
	flag.StringVar(&config.WorkDir, "workdir", "", "working directory for processing jobs")
	flag.StringVar(&config.DownloadDir, "download-dir", "", "directory to store downloaded scenes")
	flag.StringVar(&config.CondaEnv, "conda-env", "isce2", "conda environment with isce2 installed")

	flag.StringVar(&config.ASFEndpoint, "asf-endpoint", "", "ASF SearchAPI endpoint (default: public endpoint)")
	flag.StringVar(&config.ASFToken, "asf-token", "", "Earthdata bearer token (optional). To configure Alaska Satellite Facility as the image provider.")
	flag.StringVar(&config.EarthdataUsername, "earthdata-username", "", "Earthdata account username (optional)")
	flag.StringVar(&config.EarthdataPassword, "earthdata-password", "", "Earthdata account password (optional)")
	flag.StringVar(&config.LocalProviderPath, "local-path", "", "local path where scene zips are stored (optional). Takes precedence over ASF.")
	flag.IntVar(&config.DownloadWorkers, "download-workers", 2, "max concurrent scene downloads")
	flag.IntVar(&config.DownloadRetries, "download-retries", 3, "max attempts per scene download")
	flag.Parse()

	if config.AppPort == "" {
		return nil, fmt.Errorf("failed to initialize port application flag")
	}
	if config.WorkDir == "" {
		return nil, fmt.Errorf("missing workdir config flag")
	}
	if config.DownloadDir == "" {
		config.DownloadDir = config.WorkDir
	}
	return &config, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	raster.RegisterDefaults()

	var imageProvider provider.ImageProvider
	switch {
	case config.LocalProviderPath != "":
		imageProvider = provider.NewLocalImageProvider(config.LocalProviderPath)
	case config.ASFToken != "" || config.EarthdataUsername != "":
		imageProvider = provider.NewASFImageProvider(config.ASFToken, config.EarthdataUsername, config.EarthdataPassword)
	default:
		log.Logger(ctx).Warn("no image provider configured, scene downloads are disabled")
	}

	app := workflow.NewApp(workflow.Config{
		WorkDir:         config.WorkDir,
		DownloadDir:     config.DownloadDir,
		CondaEnv:        config.CondaEnv,
		Catalog:         &catalog.ASF{Endpoint: config.ASFEndpoint, Token: config.ASFToken},
		Provider:        imageProvider,
		DownloadWorkers: config.DownloadWorkers,
		DownloadRetries: config.DownloadRetries,
	})

	router := app.NewHandler()
	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	s := http.Server{
		Addr:    ":" + config.AppPort,
		Handler: handlers.CORS(originsOk, headersOk, methodsOk)(router),
	}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger(ctx).Fatal("analyzer.ListenAndServe", zap.Error(err))
		}
	}()

	log.Logger(ctx).Sugar().Debugf("analyzer starts on :%s", config.AppPort)
	<-ctx.Done()
	sctx, cncl := context.WithTimeout(context.Background(), 30*time.Second)
	defer cncl()
	return s.Shutdown(sctx)
}
