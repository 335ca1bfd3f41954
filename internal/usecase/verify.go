package usecase

import (
	"context"

	"attendance-agent/internal/entity"
)

type verdict struct {
	outcome   entity.Outcome
	indicator string
}

// classify decides the verification outcome from the visible page text and
// the controls on the page. Phrases and a Sign Out control mean success; a
// remaining Sign In control means failure; anything else is unverified.
func classify(text string, controls []entity.Element) verdict {
	if phrase, ok := containsAnyFold(text, verifiedPhrases); ok {
		return verdict{outcome: entity.OutcomeSignedIn, indicator: "phrase: " + phrase}
	}

	shown := visible(controls)

	if hasControl(shown, "sign out") {
		return verdict{outcome: entity.OutcomeSignedIn, indicator: "sign_out_control"}
	}

	if hasControl(shown, "sign in") {
		return verdict{outcome: entity.OutcomeSignInFailed, indicator: "sign_in_control_still_visible"}
	}

	return verdict{outcome: entity.OutcomeUnverified, indicator: "no_indicator"}
}

// alreadySignedIn reports whether the dashboard shows today's attendance
// before anything is clicked.
func alreadySignedIn(text string, controls []entity.Element) (string, bool) {
	if phrase, ok := containsAnyFold(text, alreadySignedInPhrases); ok {
		return "phrase: " + phrase, true
	}

	if hasControl(visible(controls), "sign out") {
		return "sign_out_control", true
	}

	return "", false
}

func hasControl(controls []entity.Element, text string) bool {
	for _, el := range controls {
		if containsFold(label(el), text) {
			return true
		}
	}

	return false
}

// readPage returns the body text and the clickable controls.
func (w *AttendanceWorkflow) readPage(ctx context.Context) (string, []entity.Element, error) {
	text, err := w.browser.PageText(ctx)
	if err != nil {
		return "", nil, err
	}

	controls, err := w.browser.FindElements(ctx, controlQuery)
	if err != nil {
		return "", nil, err
	}

	return text, controls, nil
}
