package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var base64Std = base64.StdEncoding

// Decoder turns a layer source into pixels.
type Decoder interface {
	Decode(ctx context.Context, source string) (image.Image, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, source string) (image.Image, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(ctx context.Context, source string) (image.Image, error) {
	return f(ctx, source)
}

// SourceDecoder reads data URLs, file paths, file:// URLs and http(s) URLs.
type SourceDecoder struct {
	BaseDir  string       // Directory relative paths resolve against
	Client   *http.Client // Client for remote sources; nil uses a 15s timeout client
	MaxBytes int64        // Upper bound on encoded size; 0 means 64 MiB
}

// NewSourceDecoder returns a decoder resolving relative paths against baseDir.
func NewSourceDecoder(baseDir string, timeout time.Duration) *SourceDecoder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SourceDecoder{
		BaseDir: baseDir,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Decode implements Decoder.
func (d *SourceDecoder) Decode(ctx context.Context, source string) (image.Image, error) {
	data, err := d.Read(ctx, source)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// Read returns the encoded bytes behind source.
func (d *SourceDecoder) Read(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "data:"):
		return parseDataURL(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return d.fetch(ctx, source)
	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
		}
		return d.readFile(u.Path)
	case strings.Contains(source, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, describe(source))
	default:
		return d.readFile(source)
	}
}

func (d *SourceDecoder) limit() int64 {
	if d.MaxBytes > 0 {
		return d.MaxBytes
	}
	return 64 << 20
}

func (d *SourceDecoder) readFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) && d.BaseDir != "" {
		path = filepath.Join(d.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, d.limit()))
}

func (d *SourceDecoder) fetch(ctx context.Context, source string) ([]byte, error) {
	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", describe(source), resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, d.limit()))
}

// parseDataURL decodes data:[<mediatype>][;base64],<data>.
func parseDataURL(source string) ([]byte, error) {
	rest := strings.TrimPrefix(source, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: malformed data URL", ErrUnsupportedSource)
	}
	meta, payload := rest[:comma], rest[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64Std.DecodeString(payload)
		if err != nil {
			// Some encoders strip padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("data URL: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL: %w", err)
	}
	return []byte(s), nil
}
