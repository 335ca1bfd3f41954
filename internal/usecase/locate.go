package usecase

import (
	"context"
	"errors"
	"strings"

	"attendance-agent/internal/entity"
	"attendance-agent/pkg/logg"

	"go.uber.org/zap"
)

var errNoMatch = errors.New("no locator strategy matched")

// locator is one named way of finding an element. find returns nil when the
// strategy does not apply to the current page.
type locator struct {
	name string
	find func(ctx context.Context) (*entity.Element, error)
}

// locate evaluates strategies in order and returns the first hit together
// with the strategy name. Strategy errors are logged and treated as misses;
// only a finished ctx stops the chain.
func locate(ctx context.Context, logger *zap.Logger, strategies []locator) (*entity.Element, string, error) {
	for _, strategy := range strategies {
		el, err := strategy.find(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}

		if err != nil {
			logger.Debug("Locator failed", zap.String(logg.Strategy, strategy.name), zap.Error(err))

			continue
		}

		if el != nil {
			logger.Info("Locator matched",
				zap.String(logg.Strategy, strategy.name),
				zap.String(logg.Selector, el.Selector),
				zap.String("text", label(*el)))

			return el, strategy.name, nil
		}

		logger.Debug("Locator found nothing", zap.String(logg.Strategy, strategy.name))
	}

	return nil, "", errNoMatch
}

// label is what a user would read on the control.
func label(el entity.Element) string {
	if el.Text != "" {
		return el.Text
	}

	return strings.TrimSpace(el.Value)
}

func visible(elements []entity.Element) []entity.Element {
	out := make([]entity.Element, 0, len(elements))
	for _, el := range elements {
		if el.Visible {
			out = append(out, el)
		}
	}

	return out
}

func filter(elements []entity.Element, keep func(entity.Element) bool) []entity.Element {
	out := make([]entity.Element, 0, len(elements))
	for _, el := range elements {
		if keep(el) {
			out = append(out, el)
		}
	}

	return out
}

func first(elements []entity.Element) *entity.Element {
	if len(elements) == 0 {
		return nil
	}

	return &elements[0]
}

func last(elements []entity.Element) *entity.Element {
	if len(elements) == 0 {
		return nil
	}

	return &elements[len(elements)-1]
}

// deepest prefers the innermost node, so a wrapper div never wins over the
// span that actually carries the text. Ties keep document order.
func deepest(elements []entity.Element) *entity.Element {
	var best *entity.Element
	for i := range elements {
		if best == nil || elements[i].Depth > best.Depth {
			best = &elements[i]
		}
	}

	return best
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsAnyFold(s string, substrs []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, substr := range substrs {
		if strings.Contains(lower, strings.ToLower(substr)) {
			return substr, true
		}
	}

	return "", false
}

func labelEquals(el entity.Element, want string) bool {
	return strings.EqualFold(label(el), want)
}

func labelIn(el entity.Element, wants []string) bool {
	for _, want := range wants {
		if labelEquals(el, want) {
			return true
		}
	}

	return false
}
