// Command compose renders a client template with a photo and text values to
// a PNG without opening a window.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"moldura/internal/app"
	"moldura/internal/compositor"
	"moldura/internal/config"
	layer "moldura/internal/image"
	"moldura/internal/logging"
	"moldura/internal/version"
)

// setFlags collects repeated -set id=value pairs.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected id=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "compose: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	fs.SetOutput(stderr)

	templatePath := fs.String("template", "", "Client template file (JSON, YAML or TOML)")
	photo := fs.String("photo", "", "Background photo: file path, file:// or http(s) URL, or data URL")
	out := fs.String("out", compositor.DefaultFilename, "Output PNG path")
	configPath := fs.String("config", "", "TOML configuration")
	password := fs.String("password", "", "Client password, if the template is protected")
	fit := fs.Bool("fit", true, "Fit and centre the photo")
	scale := fs.Float64("scale", 0, "Override the photo scale")
	dx := fs.Float64("dx", 0, "Override the photo X offset in surface pixels")
	dy := fs.Float64("dy", 0, "Override the photo Y offset in surface pixels")
	timeout := fs.Duration("timeout", 30*time.Second, "Give up after this long")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (default from config)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	var sets setFlags
	fs.Var(&sets, "set", "Text value as id=value or name=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if *templatePath == "" {
		fs.Usage()
		return errors.New("-template is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(level),
	})))
	defer logging.SetLogger(nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st := app.NewState(cfg)
	defer st.Close()

	if err := st.LoadClient(*templatePath); err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	if !st.Unlocked() && !st.Authenticate(*password) {
		return errors.New("template is password protected: wrong or missing -password")
	}

	for _, kv := range sets {
		key, value, _ := strings.Cut(kv, "=")
		if err := setValue(st, key, value); err != nil {
			return err
		}
	}

	if *photo != "" {
		if err := loadPhoto(ctx, st, *photo); err != nil {
			return err
		}
	}

	view := st.View.State()
	if !*fit {
		view.Scale, view.OffsetX, view.OffsetY = 1, 0, 0
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scale":
			view.Scale = *scale
		case "dx":
			view.OffsetX = *dx
		case "dy":
			view.OffsetY = *dy
		}
	})
	if view.Scale <= 0 {
		return fmt.Errorf("invalid scale %v", view.Scale)
	}
	st.View.SetState(view)

	if _, err := st.Compositor.Render(ctx); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := st.ExportFile(*out); err != nil {
		return err
	}
	fmt.Fprintln(stdout, *out)
	return nil
}

// setValue addresses a point by id first, then by name.
func setValue(st *app.State, key, value string) error {
	if c := st.Client(); c != nil {
		if _, ok := c.TextPoint(key); ok {
			st.SetValue(key, value)
			return nil
		}
	}
	if st.SetValueByName(key, value) {
		return nil
	}
	return fmt.Errorf("unknown text field %q", key)
}

// loadPhoto sets the background and waits until it is decoded and fitted.
func loadPhoto(ctx context.Context, st *app.State, source string) error {
	// Registered after the state's own listener, so this runs once the view
	// has been fitted to the photo.
	fitted := make(chan struct{}, 1)
	st.Cache.OnBackgroundReady(func(*layer.Bitmap) {
		select {
		case fitted <- struct{}{}:
		default:
		}
	})

	if isURL(source) {
		st.SetBackground(source)
	} else if err := st.LoadBackgroundFile(source); err != nil {
		return fmt.Errorf("load photo: %w", err)
	}

	bm, err := st.Cache.Acquire(ctx, layer.SlotBackground)
	if err != nil {
		return fmt.Errorf("load photo: %w", err)
	}
	if bm == nil {
		return fmt.Errorf("load photo: %s could not be decoded", source)
	}
	select {
	case <-fitted:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isURL(s string) bool {
	for _, p := range []string{"data:", "file://", "http://", "https://"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
