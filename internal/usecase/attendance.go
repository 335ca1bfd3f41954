package usecase

import (
	"context"
	"strings"
	"time"

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
	attendanceWorkflowName = "AttendanceWorkflow"
	attendanceTracer       = "usecase.attendance"
)

// AttendanceWorkflow drives the dashboard from "unknown" to a verified
// sign-in:
//
//	Unknown -> AlreadySignedIn
//	Unknown -> NeedsSignIn -> LocationPending -> Verified
//
// LocationPending is skipped when the portal shows no location prompt.
type AttendanceWorkflow struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	browser ports.BrowserManager
}

type AttendanceWorkflowParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.BrowserManager
}

func NewAttendanceWorkflow(params AttendanceWorkflowParams) *AttendanceWorkflow {
	return &AttendanceWorkflow{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, attendanceWorkflowName)),
		tracer:  otel.Tracer(attendanceTracer),
		browser: params.Browser,
	}
}

func (w *AttendanceWorkflow) Run(ctx context.Context) (result *entity.WorkflowResult, err error) {
	const op = "Run"
	logger := w.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, w.tracer, logger, op)
	defer func() {
		if result != nil {
			step.SetAttributes(
				attribute.String("outcome", string(result.Outcome)),
				attribute.String("state", string(result.State)),
			)
		}
		step.End(err)
	}()

	cfg := w.config.WorkflowConfig
	result = &entity.WorkflowResult{State: entity.StateUnknown}

	logger.Info("Starting attendance sign-in")

	if err := sleep(ctx, cfg.SettleInitial); err != nil {
		return result, w.interrupted(op, err)
	}

	text, controls, err := w.readPage(ctx)
	if err != nil {
		return result, err
	}

	if indicator, ok := alreadySignedIn(text, controls); ok {
		w.transition(logger, result, entity.StateAlreadySignedIn, indicator)
		result.Outcome = entity.OutcomeAlreadySignedIn
		result.Indicator = indicator
		logger.Info("Already signed in for today", zap.String("indicator", indicator))

		return result, nil
	}

	w.transition(logger, result, entity.StateNeedsSignIn, "")
	step.AddEvent("locating sign in control")

	signIn, strategy, err := locate(ctx, logger, w.signInLocators(controls))
	if err != nil {
		if ctx.Err() != nil {
			return result, w.interrupted(op, err)
		}

		return result, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason: "sign_in_control_not_found",
			apperr.MetaStage:  apperr.StageAttendance,
		})
	}

	step.SetAttributes(attribute.String("sign_in_strategy", strategy))

	if err := w.browser.Click(ctx, signIn.Selector); err != nil {
		return result, err
	}

	if err := sleep(ctx, cfg.SettleModal); err != nil {
		return result, w.interrupted(op, err)
	}

	prompted, err := w.probeLocationPrompt(ctx, logger)
	if err != nil {
		return result, w.interrupted(op, err)
	}

	if prompted {
		w.transition(logger, result, entity.StateLocationPending, "location prompt shown")

		result.Location, err = w.resolveLocation(ctx, logger)
		if err != nil {
			return result, w.interrupted(op, err)
		}
	} else {
		logger.Info("No location modal, continuing to confirmation")
	}

	if err := w.confirm(ctx, logger); err != nil {
		return result, err
	}

	v, err := w.verify(ctx)
	if err != nil {
		return result, err
	}

	if v.outcome == entity.OutcomeSignInFailed && cfg.FinalAttempt {
		logger.Warn("Sign In control still visible, making a final attempt")

		clicked, err := w.finalAttempt(ctx, logger)
		if err != nil {
			return result, err
		}

		if clicked {
			if v, err = w.verify(ctx); err != nil {
				return result, err
			}
		}
	}

	result.Outcome = v.outcome
	result.Indicator = v.indicator

	switch v.outcome {
	case entity.OutcomeSignedIn:
		w.transition(logger, result, entity.StateVerified, v.indicator)
		logger.Info("Attendance sign-in verified", zap.String("indicator", v.indicator))
	case entity.OutcomeUnverified:
		logger.Warn("Sign-in could not be verified", zap.String("indicator", v.indicator))
	default:
		logger.Error("Attendance sign-in failed", zap.String("indicator", v.indicator))
	}

	return result, nil
}

func (w *AttendanceWorkflow) transition(logger *zap.Logger, result *entity.WorkflowResult, to entity.State, note string) {
	logger.Info("State transition",
		zap.String("from", string(result.State)),
		zap.String(logg.State, string(to)),
		zap.String("note", note))

	result.Transitions = append(result.Transitions, entity.Transition{
		From: result.State,
		To:   to,
		At:   time.Now(),
		Note: note,
	})
	result.State = to
}

func (w *AttendanceWorkflow) interrupted(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
		apperr.MetaReason: "context_done",
		apperr.MetaStage:  apperr.StageAttendance,
	})
}

// signInLocators are tried in order: explicit selectors, then visible
// controls labelled "sign in", then a scan of every element's own text.
// controls is the snapshot already read for the signed-in check.
func (w *AttendanceWorkflow) signInLocators(controls []entity.Element) []locator {
	return []locator{
		{
			name: "css_selectors",
			find: func(ctx context.Context) (*entity.Element, error) {
				elements, err := w.browser.FindElements(ctx, strings.Join(signInSelectors, ", "))
				if err != nil {
					return nil, err
				}

				return first(visible(elements)), nil
			},
		},
		{
			name: "text_match",
			find: func(ctx context.Context) (*entity.Element, error) {
				return first(filter(visible(controls), func(el entity.Element) bool {
					return containsFold(label(el), "sign in")
				})), nil
			},
		},
		{
			name: "dom_scan",
			find: func(ctx context.Context) (*entity.Element, error) {
				elements, err := w.browser.FindElements(ctx, domScanQuery)
				if err != nil {
					return nil, err
				}

				return deepest(filter(visible(elements), func(el entity.Element) bool {
					return containsFold(el.OwnText, "sign in") || containsFold(el.Value, "sign in")
				})), nil
			},
		},
	}
}

// confirm clicks the dialog's own submit control. The page-level trigger
// carries the same label and comes first in the document, so the last match
// wins.
func (w *AttendanceWorkflow) confirm(ctx context.Context, logger *zap.Logger) error {
	controls, err := w.browser.FindElements(ctx, controlQuery)
	if err != nil {
		return err
	}

	shown := visible(controls)

	target := last(filter(shown, func(el entity.Element) bool {
		return labelEquals(el, "sign in")
	}))
	if target == nil {
		target = last(filter(shown, func(el entity.Element) bool {
			return labelIn(el, confirmLabels)
		}))
	}

	if target == nil {
		logger.Warn("No confirm control found, verifying current state")

		return nil
	}

	logger.Info("Clicking confirm control", zap.String("text", label(*target)), zap.Int("index", target.Index))

	return w.browser.Click(ctx, target.Selector)
}

func (w *AttendanceWorkflow) verify(ctx context.Context) (verdict, error) {
	if err := sleep(ctx, w.config.WorkflowConfig.SettleVerify); err != nil {
		return verdict{}, w.interrupted("verify", err)
	}

	text, controls, err := w.readPage(ctx)
	if err != nil {
		return verdict{}, err
	}

	return classify(text, controls), nil
}

// finalAttempt clicks the last control that looks like any attendance
// action. It reports whether anything was clicked.
func (w *AttendanceWorkflow) finalAttempt(ctx context.Context, logger *zap.Logger) (bool, error) {
	controls, err := w.browser.FindElements(ctx, controlQuery)
	if err != nil {
		return false, err
	}

	target := last(filter(visible(controls), func(el entity.Element) bool {
		text := label(el)
		if _, excluded := containsAnyFold(text, finalAttemptExcluded); excluded {
			return false
		}

		_, ok := containsAnyFold(text, finalAttemptWords)

		return ok
	}))
	if target == nil {
		logger.Warn("Final attempt found nothing to click")

		return false, nil
	}

	logger.Info("Final attempt clicking", zap.String("text", label(*target)))

	if err := w.browser.Click(ctx, target.Selector); err != nil {
		return false, err
	}

	return true, nil
}
