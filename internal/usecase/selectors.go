package usecase

import "strings"

// The portal DOM is not a stable contract; every selector and phrase the
// workflow relies on lives here.

var usernameSelectors = []string{
	`input[placeholder*="Employee"]`,
	`input[name*="username"]`,
	`input[id*="username"]`,
	`input[type="email"]`,
}

const passwordSelector = `input[type="password"]`

var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button.btn-primary`,
	`.login-btn`,
	`#login-button`,
}

var loginLabels = []string{"login", "log in"}

// controlQuery matches everything the portal renders as a clickable control,
// including its gt-* web components.
const controlQuery = `button, gt-button, [role="button"], a, input[type="submit"], input[type="button"]`

var signInSelectors = []string{
	`gt-button.sign-in`,
	`button.sign-in`,
	`button[data-action="sign-in"]`,
	`gt-button[data-action="sign-in"]`,
	`[aria-label="Sign In"]`,
}

const domScanQuery = `body *`

var alreadySignedInPhrases = []string{
	"already signed in",
	"attendance marked",
	"check out",
	"signed in successfully",
}

var verifiedPhrases = []string{
	"signed in successfully",
	"attendance marked",
	"check in successful",
	"already signed in",
	"punch in successful",
}

const locationPromptPhrase = "tell us your work location"

// locationScopes are the containers the location prompt renders in. Dropdowns
// elsewhere on the dashboard belong to unrelated widgets.
var locationScopes = []string{"gt-popup-modal", `[role="dialog"]`, ".modal"}

var dropdownTriggers = []string{
	`gt-dropdown button`,
	`gt-dropdown [role="button"]`,
	`button.dropdown-button`,
	`[role="combobox"]`,
	`[aria-haspopup="listbox"]`,
}

var dropdownOptions = []string{
	`gt-dropdown .dropdown-item`,
	`.dropdown-menu .dropdown-item`,
	`[role="listbox"] [role="option"]`,
	`[role="option"]`,
	`.dropdown-item`,
}

var (
	dropdownTriggerQuery = scoped(locationScopes, dropdownTriggers)
	dropdownOptionQuery  = scoped(locationScopes, dropdownOptions)
	locationTextQuery    = scoped(locationScopes, []string{"*"})
)

// scoped builds a selector group matching every selector as a descendant of
// every scope.
func scoped(scopes, selectors []string) string {
	parts := make([]string, 0, len(scopes)*len(selectors))
	for _, scope := range scopes {
		for _, selector := range selectors {
			parts = append(parts, scope+" "+selector)
		}
	}

	return strings.Join(parts, ", ")
}

var confirmLabels = []string{"submit", "confirm"}

// finalAttemptWords widen the last-chance search; finalAttemptExcluded keeps
// it from undoing attendance.
var finalAttemptWords = []string{"sign", "mark", "check", "punch"}

var finalAttemptExcluded = []string{"sign out", "signout", "check out", "checkout", "sign up"}
