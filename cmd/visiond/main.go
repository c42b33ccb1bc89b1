package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"visiond/internal/config"
	"visiond/internal/httpapi"
	"visiond/internal/registry"
	"visiond/pkg/types"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("VISIOND_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultModels := "ml-models/models"
	if v := os.Getenv("VISIOND_MODELS_DIR"); v != "" {
		defaultModels = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	modelsDir := flag.String("models-dir", defaultModels, "Directory holding one subdirectory per model")
	device := flag.String("device", "cpu", "Default execution device: cpu|cuda")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	configPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml); flags override")
	preload := flag.String("preload", "", "Comma-separated model names to load at startup")
	flag.Parse()

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fatalLogger := zerolog.New(os.Stderr)
			fatalLogger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		applyConfigDefaults(cfg, addr, modelsDir, device, logLevel)
		if cfg.MaxBodyBytes > 0 {
			httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
		}
	}

	logger := newLogger(*logLevel)
	httpapi.SetLogger(logger)

	reg := registry.New(registry.Config{
		ModelsDir:     *modelsDir,
		DefaultDevice: types.Device(*device),
		Logger:        &logger,
	})
	defer reg.Close()

	for _, name := range splitCSV(*preload) {
		if _, err := reg.Load(context.Background(), name, ""); err != nil {
			logger.Error().Err(err).Str("model", name).Msg("preload failed")
		}
	}

	mux := httpapi.NewMux(reg)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", *addr).Str("models_dir", *modelsDir).Msg("visiond listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

// applyConfigDefaults fills flag values left at their defaults from cfg.
func applyConfigDefaults(cfg config.Config, addr, modelsDir, device, logLevel *string) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if cfg.Addr != "" && !set["addr"] {
		*addr = cfg.Addr
	}
	if cfg.ModelsDir != "" && !set["models-dir"] {
		*modelsDir = cfg.ModelsDir
	}
	if cfg.DefaultDevice != "" && !set["device"] {
		*device = cfg.DefaultDevice
	}
	if cfg.LogLevel != "" && !set["log-level"] {
		*logLevel = cfg.LogLevel
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
