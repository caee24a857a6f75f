package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/seamline/seamline-agent/internal/api"
	"github.com/seamline/seamline-agent/internal/config"
	"github.com/seamline/seamline-agent/internal/db"
	"github.com/seamline/seamline-agent/internal/editor"
	"github.com/seamline/seamline-agent/internal/export"
	"github.com/seamline/seamline-agent/internal/logging"
	"github.com/seamline/seamline-agent/internal/player"
	"github.com/seamline/seamline-agent/internal/probe"
	"github.com/seamline/seamline-agent/internal/store"
	"github.com/seamline/seamline-agent/internal/stream"
	"github.com/seamline/seamline-agent/internal/surface"
	"github.com/seamline/seamline-agent/internal/ui"
)

var Version = "0.1.0"

// trackWidthPx is the logical pixel width the agent assumes for
// gesture coordinates; the browser UI normalizes to it.
const trackWidthPx = 1000

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.AssetsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create assets dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting seamline agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   SEAMLINE AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var prober probe.Prober
	ffprobe := probe.NewFFProbe(cfg.ProbeTimeout(), logger)
	if ffprobe.Available() {
		prober = probe.NewCached(ffprobe, repo, logger)
	} else {
		logger.Warn("ffprobe not found on PATH, source durations will use placeholders")
	}

	tunables := cfg.Editor()
	tickInterval := time.Duration(tunables.TickIntervalMs) * time.Millisecond

	ply := player.New(player.Config{
		Active:       player.NewSyntheticMedia(),
		Preload:      player.NewSyntheticMedia(),
		Logger:       logger,
		TickInterval: tickInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ply.Run(ctx)

	track := surface.NewTrack(trackWidthPx)
	if tunables.MinTrackSpanSec > 0 {
		track.MinSpan = tunables.MinTrackSpanSec
	}

	exporters := map[string]export.Exporter{
		store.ExportKindEDL: export.NewEDLExporter(filepath.Join(cfg.DataDir(), "exports"), 30, logger),
	}
	if cfg.ExportURL() != "" && cfg.ExportToken() != "" {
		renderer := export.NewHTTPExporter(cfg.ExportURL(), cfg.ExportToken(), logger)
		renderer.SetDeviceID(deviceID)
		exporters[store.ExportKindRender] = renderer
		logger.Info("render export enabled", "base_url", logging.SanitizeURL(cfg.ExportURL()))
	} else {
		logger.Info("render export disabled, only EDL export available")
	}

	session := editor.NewSession(editor.Config{
		Player:              ply,
		Prober:              prober,
		Exporters:           exporters,
		Repo:                repo,
		Logger:              logger,
		Track:               track,
		GestureRateHz:       tunables.GestureRateHz,
		PlaceholderDuration: tunables.DefaultClipDuration,
		OnSelect: func(clipID string, selected bool) {
			logger.Debug("selection changed", "clip_id", clipID, "selected", selected)
		},
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Session:    session,
		Repository: repo,
		Assets:     stream.NewAssetServer(cfg.AssetsDir(), logger),
		Logger:     logger,
		StartTime:  startTime,
		DeviceID:   deviceID,
		Version:    Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: session,
			Logger:  logger,
			OnOpenEditor: func() error {
				return openBrowser(fmt.Sprintf("http://127.0.0.1:%d", cfg.Port()))
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, store.ConfigKeyDeviceID)
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, store.ConfigKeyDeviceID, deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, store.ConfigKeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, store.ConfigKeyAuthToken, token); err != nil {
		return "", err
	}

	return token, nil
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
