// Package main provides the entry point for the Moldura desktop application.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"moldura/internal/app"
	"moldura/internal/config"
	"moldura/internal/logging"
	"moldura/internal/version"
	"moldura/ui/mainwindow"
	"moldura/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const reloadDebounce = 300 * time.Millisecond

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path to the TOML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration rejected, using defaults", slog.Any("err", err))
		cfg = config.Default()
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.LogLevel),
	}))
	logging.SetLogger(logger)
	logger.Info("starting", slog.String("version", version.String()))

	fyneApp := fyneapp.NewWithID("br.com.moldura")
	fyneApp.Settings().SetTheme(&app.MolduraTheme{})

	appState := app.NewState(cfg)
	defer appState.Close()
	appPrefs := prefs.Load()

	win := mainwindow.New(fyneApp, appState, appPrefs)

	reloader := &templateReloader{state: appState}
	defer reloader.stop()
	win.OnTemplateOpened(reloader.watch)

	// Template from the command line, else the last one opened.
	templatePath := flag.Arg(0)
	if templatePath == "" {
		templatePath = appPrefs.String(prefs.KeyLastTemplate)
	}
	if templatePath != "" {
		if err := appState.LoadClient(templatePath); err != nil {
			logger.Warn("failed to load template", slog.String("path", templatePath), slog.Any("err", err))
		} else {
			reloader.watch(templatePath)
		}
	}

	win.ShowAndRun()
}

// templateReloader keeps one watcher on the current template file.
type templateReloader struct {
	state *app.State

	mu      sync.Mutex
	watcher *app.TemplateWatcher
}

func (r *templateReloader) watch(path string) {
	r.stop()

	w, err := app.NewTemplateWatcher(path, reloadDebounce)
	if err != nil {
		logging.Logger().Warn("template reload disabled", slog.Any("err", err))
		return
	}
	w.OnChange(func(string) {
		if err := r.state.ReloadClient(); err != nil {
			logging.Logger().Warn("template reload failed", slog.Any("err", err))
		}
	})
	w.Start()

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
}

func (r *templateReloader) stop() {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "moldura", "config.toml")
}
