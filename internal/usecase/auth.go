package usecase

import (
	"context"
	"errors"
	"strings"

	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"
	"attendance-agent/internal/ports"
	"attendance-agent/pkg/apperr"
	"attendance-agent/pkg/logg"
	"attendance-agent/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	authenticatorName = "Authenticator"
	authTracer        = "usecase.auth"
)

type Authenticator struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	browser ports.BrowserManager
}

type AuthenticatorParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.BrowserManager
}

func NewAuthenticator(params AuthenticatorParams) *Authenticator {
	return &Authenticator{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, authenticatorName)),
		tracer:  otel.Tracer(authTracer),
		browser: params.Browser,
	}
}

// Login fills and submits the portal login form. Success is only inferred
// from the form going away after the page settles.
func (a *Authenticator) Login(ctx context.Context, url, username, password string) (err error) {
	const op = "Login"
	logger := a.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	logger.Info("Navigating to login page")

	if err := a.browser.Navigate(ctx, url); err != nil {
		return err
	}

	fieldTimeout := a.config.PortalConfig.LoginFieldTimeout
	usernameField := strings.Join(usernameSelectors, ", ")

	step.AddEvent("waiting for username field")

	if err := a.browser.WaitForSelector(ctx, usernameField, fieldTimeout); err != nil {
		return apperr.Wrap(op, apperr.CodeAuth, err, map[string]any{
			apperr.MetaReason:   "username_field_not_found",
			apperr.MetaStage:    apperr.StageLogin,
			apperr.MetaSelector: usernameField,
		})
	}

	if err := a.browser.Fill(ctx, usernameField, username); err != nil {
		return apperr.Wrap(op, apperr.CodeAuth, err, map[string]any{
			apperr.MetaReason: "username_fill_failed",
			apperr.MetaStage:  apperr.StageLogin,
		})
	}

	if err := a.browser.WaitForSelector(ctx, passwordSelector, fieldTimeout); err != nil {
		return apperr.Wrap(op, apperr.CodeAuth, err, map[string]any{
			apperr.MetaReason:   "password_field_not_found",
			apperr.MetaStage:    apperr.StageLogin,
			apperr.MetaSelector: passwordSelector,
		})
	}

	if err := a.browser.Fill(ctx, passwordSelector, password); err != nil {
		return apperr.Wrap(op, apperr.CodeAuth, err, map[string]any{
			apperr.MetaReason: "password_fill_failed",
			apperr.MetaStage:  apperr.StageLogin,
		})
	}

	logger.Info("Credentials entered, submitting login form")
	step.AddEvent("submitting form")

	strategy, err := a.submit(ctx, logger)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeAuth, err, map[string]any{
			apperr.MetaReason: "submit_control_not_found",
			apperr.MetaStage:  apperr.StageLogin,
		})
	}

	step.SetAttributes(attribute.String("submit_strategy", strategy))

	if err := a.browser.WaitForLoad(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}

		logger.Warn("Page did not reach network idle after login", zap.Error(err))
	}

	stillOnForm, err := a.passwordFieldVisible(ctx)
	if err != nil {
		logger.Warn("Could not inspect page after login", zap.Error(err))
	}

	if stillOnForm {
		return apperr.WrapErrorWithReason(op, apperr.CodeAuth, "still_on_login_form")
	}

	if state, err := a.browser.GetPageState(ctx); err == nil {
		logger.Info("Login completed", zap.String("current_url", state.URL))
	}

	return nil
}

// submit tries each submit strategy in turn and returns the one that worked.
func (a *Authenticator) submit(ctx context.Context, logger *zap.Logger) (string, error) {
	strategies := []struct {
		name string
		fn   func() error
	}{
		{
			name: "submit_button",
			fn: func() error {
				for _, selector := range submitSelectors {
					el, err := a.firstVisible(ctx, selector)
					if err != nil || el == nil {
						continue
					}

					return a.browser.Click(ctx, el.Selector)
				}

				return errNoMatch
			},
		},
		{
			name: "login_text",
			fn: func() error {
				elements, err := a.browser.FindElements(ctx, controlQuery)
				if err != nil {
					return err
				}

				el := first(filter(visible(elements), func(el entity.Element) bool {
					_, ok := containsAnyFold(label(el), loginLabels)

					return ok
				}))
				if el == nil {
					return errNoMatch
				}

				return a.browser.Click(ctx, el.Selector)
			},
		},
		{
			name: "enter_key",
			fn: func() error {
				return a.browser.Press(ctx, passwordSelector, "Enter")
			},
		},
	}

	var errs []error

	for _, strategy := range strategies {
		err := strategy.fn()
		if err == nil {
			logger.Info("Login form submitted", zap.String(logg.Strategy, strategy.name))

			return strategy.name, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		logger.Debug("Submit strategy failed", zap.String(logg.Strategy, strategy.name), zap.Error(err))
		errs = append(errs, err)
	}

	return "", errors.Join(errs...)
}

func (a *Authenticator) firstVisible(ctx context.Context, selector string) (*entity.Element, error) {
	elements, err := a.browser.FindElements(ctx, selector)
	if err != nil {
		return nil, err
	}

	return first(visible(elements)), nil
}

func (a *Authenticator) passwordFieldVisible(ctx context.Context) (bool, error) {
	el, err := a.firstVisible(ctx, passwordSelector)
	if err != nil {
		return false, err
	}

	return el != nil, nil
}
