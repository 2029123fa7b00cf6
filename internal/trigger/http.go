package trigger

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	acqhttp "github.com/ligustah/acquire/internal/http"
	"github.com/ligustah/acquire/pkg/acquire"
)

// PartialSuffix is appended to files while they are being written, the same
// way Chromium marks in-progress downloads.
const PartialSuffix = ".crdownload"

// HTTPOptions configures an HTTP trigger.
type HTTPOptions struct {
	// URL is a template rendered with the unit.
	URL string

	// FileName is an optional template for the saved file name. When empty
	// the name comes from Content-Disposition, then the URL path, then the
	// unit ID with DefaultExt.
	FileName string

	// WatchDir is where the file is written.
	WatchDir string

	// DefaultExt is used when no better file name is known.
	// Default: ".xlsx"
	DefaultExt string

	Client *acqhttp.Client
	Logger zerolog.Logger
}

// HTTP downloads a report into the watched directory the way a browser
// would: into a partial file that is renamed once complete.
type HTTP struct {
	url      *template.Template
	fileName *template.Template
	opts     HTTPOptions
}

// NewHTTP parses the templates in opts.
func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	if opts.URL == "" {
		return nil, errors.New("trigger: http url is required")
	}
	if opts.WatchDir == "" {
		return nil, errors.New("trigger: watch dir is required")
	}
	if opts.DefaultExt == "" {
		opts.DefaultExt = acquire.DefaultExt
	}
	if opts.Client == nil {
		opts.Client = acqhttp.NewClient(acqhttp.DefaultOptions())
	}

	h := &HTTP{opts: opts}
	var err error
	if h.url, err = parseTemplate("url", opts.URL); err != nil {
		return nil, err
	}
	if opts.FileName != "" {
		if h.fileName, err = parseTemplate("file_name", opts.FileName); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Fire downloads the unit's report. The final file appears in the watch
// directory only after the body has been fully written.
func (h *HTTP) Fire(ctx context.Context, unit acquire.UnitRequest) error {
	u, err := render(h.url, unit)
	if err != nil {
		return err
	}

	partial, err := os.CreateTemp(h.opts.WatchDir, "acquire-*"+PartialSuffix)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}
	partialPath := partial.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(partialPath)
		}
	}()

	resp, n, err := h.opts.Client.Download(ctx, u, partial)
	if cerr := partial.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", u, err)
	}

	name, err := h.targetName(unit, u, resp.FileName)
	if err != nil {
		return err
	}

	final, err := reserveName(h.opts.WatchDir, name)
	if err != nil {
		return err
	}
	if err := os.Rename(partialPath, final); err != nil {
		os.Remove(final)
		return fmt.Errorf("finish download: %w", err)
	}
	keep = true

	h.opts.Logger.Debug().
		Str("unit", unit.ID).
		Str("file", filepath.Base(final)).
		Int64("size", n).
		Msg("http export saved")
	return nil
}

func (h *HTTP) targetName(unit acquire.UnitRequest, rawURL, suggested string) (string, error) {
	if h.fileName != nil {
		name, err := render(h.fileName, unit)
		if err != nil {
			return "", err
		}
		return acquire.SanitizeName(name), nil
	}
	if suggested != "" {
		return acquire.SanitizeName(suggested), nil
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		base := path.Base(parsed.Path)
		if base != "." && base != "/" && path.Ext(base) != "" {
			return acquire.SanitizeName(base), nil
		}
	}
	return acquire.SanitizeName(unit.ID) + h.opts.DefaultExt, nil
}

// reserveName creates an empty file named name in dir, or "name (n).ext"
// when that is taken, and returns its path.
func reserveName(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < acquire.DefaultMaxCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		p := filepath.Join(dir, candidate)
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return p, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("reserve %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("reserve %s: %w", name, acquire.ErrTooManyCollisions)
}
