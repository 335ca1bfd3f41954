package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"attendance-agent/internal/config"
	"attendance-agent/internal/ports"
	"attendance-agent/pkg/apperr"
	"attendance-agent/pkg/logg"

	"github.com/PuerkitoBio/goquery"
	"github.com/yosssi/gohtml"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Sink writes a screenshot and a formatted page source for post-mortem
// inspection. Capture never fails the run.
type Sink struct {
	dir     string
	logger  *zap.Logger
	browser ports.BrowserManager
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.BrowserManager
}

func NewSink(params Params) *Sink {
	return &Sink{
		dir:     params.Config.OutputConfig.DiagnosticsDir,
		logger:  params.Logger.With(zap.String(logg.Layer, "Diagnostics")),
		browser: params.Browser,
	}
}

func (s *Sink) Capture(ctx context.Context, tag string) {
	const op = "Capture"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Tag, tag))

	if !s.browser.IsReady() {
		logger.Warn("Browser not ready, skipping diagnostics")

		return
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		logger.Warn("Failed to create diagnostics directory", zap.Error(err))

		return
	}

	screenshot := s.path(tag, "screenshot.png")
	if err := s.browser.Screenshot(ctx, screenshot); err != nil {
		logger.Warn("Failed to save screenshot", zap.Error(err))
	} else {
		logger.Info("Screenshot saved", zap.String("path", screenshot))
	}

	content, err := s.browser.Content(ctx)
	if err != nil {
		logger.Warn("Failed to read page source", zap.Error(err))

		return
	}

	source := s.path(tag, "page_source.html")
	if err := writeSource(source, content); err != nil {
		logger.Warn("Failed to save page source", zap.Error(err))
	} else {
		logger.Info("Page source saved", zap.String("path", source))
	}

	if labels := buttonLabels(content); len(labels) > 0 {
		logger.Info("Buttons on page", zap.Strings("labels", labels))
	}
}

func (s *Sink) path(tag, suffix string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s", tag, suffix))
}

func writeSource(path, content string) error {
	if err := os.WriteFile(path, []byte(gohtml.Format(content)), 0o644); err != nil {
		return apperr.Wrap("writeSource", apperr.CodeInternal, err, map[string]any{
			apperr.MetaStage: apperr.StageStorage,
		})
	}

	return nil
}

// buttonLabels lists the trimmed labels of button-like elements in the
// snapshot, skipping empty ones.
func buttonLabels(content string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var labels []string

	doc.Find(`button, gt-button, [role="button"], input[type="submit"], input[type="button"]`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			text = strings.TrimSpace(sel.AttrOr("value", ""))
		}

		if text != "" {
			labels = append(labels, text)
		}
	})

	return labels
}
