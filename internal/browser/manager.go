package browser

import (
	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"
	"attendance-agent/pkg/apperr"
	"attendance-agent/pkg/logg"
	"attendance-agent/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	retryDelay         = 800 * time.Millisecond
	clickTimeout       = 15 * time.Second
	fillTimeout        = 10 * time.Second
	loadTimeout        = 15 * time.Second
)

var sandboxArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--no-first-run",
	"--no-zygote",
}

type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// launchArgs builds the chromium flags; the sandbox flags are needed when
// running as root inside a container.
func launchArgs(cfg *config.BrowserConfig) []string {
	args := []string{
		"--disable-blink-features=AutomationControlled",
		fmt.Sprintf("--window-size=%d,%d", cfg.ViewportWidth, cfg.ViewportHeight),
	}

	if cfg.NoSandbox {
		args = append(args, sandboxArgs...)
	}

	return args
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if m.ready {
		return nil
	}

	browserConfig := m.config.BrowserConfig
	logger.Info("Launching browser...", zap.Bool("headless", browserConfig.Headless))

	if !browserConfig.SkipInstall {
		step.AddEvent("installing playwright")

		err = playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		})
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_install_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(browserConfig.Headless),
		SlowMo:   playwright.Float(float64(browserConfig.SlowMo)),
		Args:     launchArgs(browserConfig),
	})
	if err != nil {
		m.release(logger)

		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  browserConfig.ViewportWidth,
			Height: browserConfig.ViewportHeight,
		},
		UserAgent:         playwright.String(browserConfig.UserAgent),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		m.release(logger)

		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		m.release(logger)

		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	timeout := float64(browserConfig.Timeout.Milliseconds())
	page.SetDefaultTimeout(timeout)
	page.SetDefaultNavigationTimeout(timeout)
	m.page = page

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

// Close releases everything Launch acquired. Safe to call more than once and
// after a partial launch.
func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if m.playwright == nil && m.browser == nil && m.browserContext == nil {
		return nil
	}

	logger.Info("Closing browser...")

	if err := m.release(logger); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	logger.Info("Browser closed")

	return nil
}

func (m *Manager) release(logger *zap.Logger) error {
	m.ready = false

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
		m.browserContext = nil
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
		m.browser = nil
	}

	m.page = nil

	if m.playwright != nil {
		pw := m.playwright
		m.playwright = nil

		return pw.Stop()
	}

	return nil
}

func (m *Manager) ensurePage(op string) error {
	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if m.page == nil || m.page.IsClosed() {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "page_not_active")
	}

	return nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return err
	}

	step.AddEvent("navigating to URL")

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   ms(m.config.BrowserConfig.Timeout),
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		code := apperr.CodeActionFailed
		if errors.Is(err, playwright.ErrTimeout) {
			code = apperr.CodeTimeout
		}

		return apperr.Wrap(op, code, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (err error) {
	const op = "WaitForSelector"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return err
	}

	_, err = m.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: ms(timeout),
		State:   playwright.WaitForSelectorStateVisible,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason:   "wait_selector_timeout",
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (m *Manager) WaitForLoad(ctx context.Context) (err error) {
	const op = "WaitForLoad"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return err
	}

	err = m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: ms(loadTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason: "load_state_timeout",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return nil
}

func (m *Manager) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return err
	}

	strategies := []struct {
		name string
		fn   func() error
	}{
		{
			name: "wait_and_click",
			fn: func() error {
				if err := m.evaluateCheck(scrollIntoViewScript, selector); err != nil {
					return err
				}

				return m.page.Click(selector, playwright.PageClickOptions{
					Timeout: ms(clickTimeout),
				})
			},
		},
		{
			name: "force_click",
			fn: func() error {
				return m.page.Click(selector, playwright.PageClickOptions{
					Timeout: ms(clickTimeout),
					Force:   playwright.Bool(true),
				})
			},
		},
		{
			name: "js_direct_click",
			fn: func() error {
				return m.evaluateCheck(directClickScript, selector)
			},
		},
	}

	var lastErr error

	for attempt, strategy := range strategies {
		if attempt > 0 {
			logger.Info("Retrying click with different strategy", zap.String(logg.Strategy, strategy.name))

			if err := sleep(ctx, retryDelay); err != nil {
				return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
					apperr.MetaReason:   "context_done",
					apperr.MetaSelector: selector,
				})
			}
		}

		step.AddEvent(fmt.Sprintf("trying strategy: %s", strategy.name))

		lastErr = strategy.fn()
		if lastErr == nil {
			step.AddEvent("click completed")

			return nil
		}

		logger.Warn("Strategy failed", zap.String(logg.Strategy, strategy.name), zap.Error(lastErr))
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, lastErr, map[string]any{
		apperr.MetaReason:   "click_failed_all_strategies",
		apperr.MetaStage:    apperr.StageInteraction,
		apperr.MetaSelector: selector,
	})
}

func (m *Manager) evaluateCheck(script, selector string) error {
	result, err := m.page.Evaluate(script, selector)
	if err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}

	if resultMap, ok := result.(map[string]interface{}); ok {
		if success, ok := resultMap["success"].(bool); ok && !success {
			return fmt.Errorf("element check failed: %s", getString(resultMap, "error"))
		}
	}

	return nil
}

func (m *Manager) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return err
	}

	err = m.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: ms(fillTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	step.AddEvent("fill completed")

	return nil
}

func (m *Manager) Press(ctx context.Context, selector, key string) (err error) {
	const op = "Press"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("key", key))
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return err
	}

	if selector == "" {
		err = m.page.Keyboard().Press(key)
	} else {
		err = m.page.Press(selector, key, playwright.PagePressOptions{
			Timeout: ms(fillTimeout),
		})
	}

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "press_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

func (m *Manager) FindElements(ctx context.Context, query string) (elements []entity.Element, err error) {
	const op = "FindElements"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, query))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("query", query))
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return nil, err
	}

	result, err := m.page.Evaluate(findElementsScript(), query)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "evaluate_failed",
			apperr.MetaSelector: query,
		})
	}

	elements, err = parseElements(result)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaReason:   "query_failed",
			apperr.MetaSelector: query,
		})
	}

	step.SetAttributes(attribute.Int("matches", len(elements)))

	return elements, nil
}

func parseElements(result interface{}) ([]entity.Element, error) {
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", result)
	}

	if msg := getString(resultMap, "error"); msg != "" {
		return nil, errors.New(msg)
	}

	list, _ := resultMap["elements"].([]interface{})
	elements := make([]entity.Element, 0, len(list))

	for _, item := range list {
		elemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		tag := getString(elemMap, "tag")

		elements = append(elements, entity.Element{
			Selector: refSelector(getString(elemMap, "ref")),
			Index:    getInt(elemMap, "index"),
			Tag:      tag,
			Text:     strings.TrimSpace(getString(elemMap, "text")),
			OwnText:  strings.TrimSpace(getString(elemMap, "ownText")),
			Value:    labelValue(tag, getString(elemMap, "value")),
			Visible:  getBool(elemMap, "visible"),
			Depth:    getInt(elemMap, "depth"),
		})
	}

	return elements, nil
}

func labelValue(tag, value string) string {
	if !slices.Contains(valueTags, tag) {
		return ""
	}

	return value
}

func (m *Manager) PageText(ctx context.Context) (text string, err error) {
	const op = "PageText"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return "", err
	}

	text, err = m.page.InnerText("body")
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "inner_text_failed",
			apperr.MetaStage:  apperr.StagePageText,
		})
	}

	return text, nil
}

func (m *Manager) Content(ctx context.Context) (html string, err error) {
	const op = "Content"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return "", err
	}

	html, err = m.page.Content()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "content_failed",
		})
	}

	return html, nil
}

func (m *Manager) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("path", path))
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return err
	}

	_, err = m.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return nil
}

func (m *Manager) GetPageState(ctx context.Context) (state *entity.PageState, err error) {
	const op = "GetPageState"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := m.ensurePage(op); err != nil {
		return nil, err
	}

	title, err := m.page.Title()
	if err != nil {
		logger.Warn("Failed to read title", zap.Error(err))
	}

	return &entity.PageState{
		URL:       m.page.URL(),
		Title:     title,
		Timestamp: time.Now(),
	}, nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}

	return 0
}
