package usecase

import (
	"context"
	"strings"

	"attendance-agent/internal/entity"
	"attendance-agent/pkg/logg"

	"go.uber.org/zap"
)

// pickOption chooses the option whose trimmed text equals target exactly,
// falling back to the first visible option. target is expected trimmed.
// exact reports which rule applied.
func pickOption(options []entity.Element, target string) (option *entity.Element, exact bool) {
	shown := visible(options)

	for i := range shown {
		if strings.TrimSpace(label(shown[i])) == target {
			return &shown[i], true
		}
	}

	return first(shown), false
}

// probeLocationPrompt waits up to the modal probe timeout for the work
// location prompt text or a dropdown inside a modal.
func (w *AttendanceWorkflow) probeLocationPrompt(ctx context.Context, logger *zap.Logger) (bool, error) {
	cfg := w.config.WorkflowConfig

	return pollUntil(ctx, cfg.PollInterval, cfg.ModalProbeTimeout, func(ctx context.Context) (bool, error) {
		text, err := w.browser.PageText(ctx)
		if err == nil && containsFold(text, locationPromptPhrase) {
			logger.Info("Location prompt detected")

			return true, nil
		}

		triggers, err := w.browser.FindElements(ctx, dropdownTriggerQuery)
		if err != nil {
			logger.Debug("Dropdown probe failed", zap.Error(err))

			return false, nil
		}

		if len(visible(triggers)) > 0 {
			logger.Info("Location dropdown detected")

			return true, nil
		}

		return false, nil
	})
}

// resolveLocation selects the configured work location and returns the label
// it clicked, or "" when nothing could be selected. Failing to select is an
// accepted outcome; only a finished ctx is an error.
func (w *AttendanceWorkflow) resolveLocation(ctx context.Context, logger *zap.Logger) (string, error) {
	target := strings.TrimSpace(w.config.PortalConfig.SignInLocation)
	logger = logger.With(zap.String(logg.Location, target))

	chosen, err := w.selectFromDropdown(ctx, logger, target)
	if err != nil || chosen != "" {
		return chosen, err
	}

	chosen, err = w.clickLocationText(ctx, logger, target)
	if err != nil || chosen != "" {
		return chosen, err
	}

	logger.Warn("Could not select a work location, continuing without one")

	return "", nil
}

func (w *AttendanceWorkflow) selectFromDropdown(ctx context.Context, logger *zap.Logger, target string) (string, error) {
	cfg := w.config.WorkflowConfig

	triggers, err := w.browser.FindElements(ctx, dropdownTriggerQuery)
	if err != nil {
		logger.Debug("Dropdown lookup failed", zap.Error(err))

		return "", ctx.Err()
	}

	trigger := first(visible(triggers))
	if trigger == nil {
		logger.Info("No location dropdown found")

		return "", nil
	}

	if err := w.browser.Click(ctx, trigger.Selector); err != nil {
		logger.Warn("Failed to open location dropdown", zap.Error(err))

		return "", ctx.Err()
	}

	var options []entity.Element

	opened, err := pollUntil(ctx, cfg.PollInterval, cfg.OptionTimeout, func(ctx context.Context) (bool, error) {
		found, err := w.browser.FindElements(ctx, dropdownOptionQuery)
		if err != nil {
			return false, nil
		}

		options = filter(visible(found), func(el entity.Element) bool {
			return label(el) != ""
		})

		return len(options) > 0, nil
	})
	if err != nil {
		return "", err
	}

	if !opened {
		logger.Warn("Location dropdown opened no options")

		return "", nil
	}

	option, exact := pickOption(options, target)
	if !exact {
		logger.Warn("Configured location not offered, using first option", zap.String("option", label(*option)))
	}

	if err := w.browser.Click(ctx, option.Selector); err != nil {
		logger.Warn("Failed to click location option", zap.Error(err))

		return "", ctx.Err()
	}

	logger.Info("Location selected from dropdown", zap.String("option", label(*option)), zap.Bool("exact", exact))

	return label(*option), sleep(ctx, cfg.SettleLocation)
}

func (w *AttendanceWorkflow) clickLocationText(ctx context.Context, logger *zap.Logger, target string) (string, error) {
	if target == "" {
		return "", nil
	}

	elements, err := w.browser.FindElements(ctx, locationTextQuery)
	if err != nil {
		logger.Debug("Location text scan failed", zap.Error(err))

		return "", ctx.Err()
	}

	el := deepest(filter(visible(elements), func(el entity.Element) bool {
		return strings.TrimSpace(el.Text) == target
	}))
	if el == nil {
		return "", nil
	}

	if err := w.browser.Click(ctx, el.Selector); err != nil {
		logger.Warn("Failed to click location text", zap.Error(err))

		return "", ctx.Err()
	}

	logger.Info("Location selected by text")

	return target, sleep(ctx, w.config.WorkflowConfig.SettleLocation)
}
