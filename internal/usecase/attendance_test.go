package usecase

import (
	"context"
	"testing"

	"attendance-agent/internal/entity"
	"attendance-agent/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signedOutDashboard = `<html><head><title>Dashboard</title></head><body>
<header><span>EMP042</span><gt-button id="sign-out">Sign Out</gt-button></header>
<main><p>Welcome back</p></main>
</body></html>`

const dashboardWithTrigger = `<html><head><title>Dashboard</title></head><body>
<main><h1>Good morning</h1><gt-button class="sign-in" id="trigger">Sign In</gt-button></main>
</body></html>`

const locationModal = `<html><body>
<gt-button class="sign-in" id="trigger">Sign In</gt-button>
<div class="modal">
  <p>Tell us your work location</p>
  <gt-dropdown>
    <button id="loc-toggle">Select location</button>
    <div class="dropdown-menu">
      <div class="dropdown-item" id="opt-annex">Office Annex</div>
      <div class="dropdown-item" id="opt-office">Office</div>
      <div class="dropdown-item" id="opt-home">Home</div>
    </div>
  </gt-dropdown>
  <gt-button id="confirm">Sign In</gt-button>
</div>
</body></html>`

const locationModalWithoutTarget = `<html><body>
<div class="modal">
  <p>Tell us your work location</p>
  <gt-dropdown>
    <button id="loc-toggle">Select location</button>
    <div class="dropdown-menu">
      <div class="dropdown-item" id="opt-office" style="display: none">Office</div>
      <div class="dropdown-item" id="opt-home">Home</div>
      <div class="dropdown-item" id="opt-remote">Remote</div>
    </div>
  </gt-dropdown>
  <gt-button id="confirm">Sign In</gt-button>
</div>
</body></html>`

const plainDialog = `<html><body>
<button class="sign-in" id="page-sign-in">Sign In</button>
<div role="dialog"><p>Confirm attendance</p><button id="dialog-sign-in">Sign In</button></div>
</body></html>`

const attendanceMarked = `<html><head><title>Dashboard</title></head><body>
<p>Attendance marked for today</p>
</body></html>`

const signOutOnly = `<html><body><gt-button id="sign-out">Sign Out</gt-button></body></html>`

const noIndicator = `<html><body><p>Dashboard</p></body></html>`

func TestAttendanceWorkflow_AlreadySignedInBySignOutControl(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{"dashboard": signedOutDashboard})

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeAlreadySignedIn, result.Outcome)
	assert.Equal(t, entity.StateAlreadySignedIn, result.State)
	assert.Equal(t, "sign_out_control", result.Indicator)
	assert.Empty(t, browser.clicks)
}

func TestAttendanceWorkflow_AlreadySignedInByPhrase(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{"dashboard": attendanceMarked})

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeAlreadySignedIn, result.Outcome)
	assert.Equal(t, "phrase: attendance marked", result.Indicator)
	assert.Empty(t, browser.clicks)
}

func TestAttendanceWorkflow_SelectsExactLocation(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": dashboardWithTrigger,
		"modal":     locationModal,
		"done":      attendanceMarked,
	}).
		on("#trigger", "modal").
		on("#confirm", "done")

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
	assert.Equal(t, entity.StateVerified, result.State)
	assert.Equal(t, "Office", result.Location)
	assert.Equal(t, []string{"#trigger", "#loc-toggle", "#opt-office", "#confirm"}, browser.clicks)

	var states []entity.State
	for _, tr := range result.Transitions {
		states = append(states, tr.To)
	}

	assert.Equal(t, []entity.State{
		entity.StateNeedsSignIn,
		entity.StateLocationPending,
		entity.StateVerified,
	}, states)
}

func TestAttendanceWorkflow_FallsBackToFirstVisibleLocation(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": dashboardWithTrigger,
		"modal":     locationModalWithoutTarget,
		"done":      signOutOnly,
	}).
		on("#trigger", "modal").
		on("#confirm", "done")

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
	assert.Equal(t, "sign_out_control", result.Indicator)
	assert.Equal(t, "Home", result.Location)
	assert.Contains(t, browser.clicks, "#opt-home")
	assert.NotContains(t, browser.clicks, "#opt-office")
}

func TestAttendanceWorkflow_ConfirmsWithLastSignInControl(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": dashboardWithTrigger,
		"dialog":    plainDialog,
		"done":      attendanceMarked,
	}).
		on("#trigger", "dialog").
		on("#dialog-sign-in", "done")

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
	assert.Empty(t, result.Location)
	assert.Equal(t, []string{"#trigger", "#dialog-sign-in"}, browser.clicks)
}

func TestAttendanceWorkflow_LocatesSignInByText(t *testing.T) {
	tests := []struct {
		name      string
		dashboard string
		want      string
	}{
		{
			name:      "visible control label",
			dashboard: `<html><body><a href="#" id="link">Sign In</a></body></html>`,
			want:      "#link",
		},
		{
			name:      "innermost text node",
			dashboard: `<html><body><div id="card"><div id="wrap"><span id="label">Sign In</span></div></div></body></html>`,
			want:      "#label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser := newFakeBrowser(t, "dashboard", map[string]string{
				"dashboard": tt.dashboard,
				"done":      attendanceMarked,
			})
			browser.on(tt.want, "done")

			result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
			require.NotEmpty(t, browser.clicks)
			assert.Equal(t, tt.want, browser.clicks[0])
		})
	}
}

func TestAttendanceWorkflow_SignInControlNotFound(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{"dashboard": noIndicator})

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.Error(t, err)

	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	assert.Equal(t, "sign_in_control_not_found", apperr.ReasonOf(err))
	assert.Equal(t, entity.StateNeedsSignIn, result.State)
	assert.Empty(t, browser.clicks)
}

func TestAttendanceWorkflow_Unverified(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": dashboardWithTrigger,
		"after":     noIndicator,
	}).
		on("#trigger", "after")

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeUnverified, result.Outcome)
	assert.Equal(t, entity.StateNeedsSignIn, result.State)
	assert.Equal(t, []string{"#trigger"}, browser.clicks)
}

func TestAttendanceWorkflow_FinalAttempt(t *testing.T) {
	tests := []struct {
		name         string
		finalAttempt bool
		wantOutcome  entity.Outcome
		wantClicks   []string
	}{
		{
			name:         "enabled",
			finalAttempt: true,
			wantOutcome:  entity.OutcomeSignedIn,
			wantClicks:   []string{"#trigger", "#confirm", "#retry"},
		},
		{
			name:         "disabled",
			finalAttempt: false,
			wantOutcome:  entity.OutcomeSignInFailed,
			wantClicks:   []string{"#trigger", "#confirm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser := newFakeBrowser(t, "dashboard", map[string]string{
				"dashboard": dashboardWithTrigger,
				"dialog":    `<html><body><button id="confirm">Sign In</button></body></html>`,
				"stuck":     `<html><body><p>Try again</p><button id="retry">Sign In</button></body></html>`,
				"done":      attendanceMarked,
			}).
				on("#trigger", "dialog").
				on("#confirm", "stuck").
				on("#retry", "done")

			cfg := testConfig()
			cfg.WorkflowConfig.FinalAttempt = tt.finalAttempt

			result, err := newTestWorkflow(cfg, browser).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantOutcome, result.Outcome)
			assert.Equal(t, tt.wantClicks, browser.clicks)
		})
	}
}

func TestAttendanceWorkflow_FinalAttemptSkipsExcludedLabels(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": dashboardWithTrigger,
		"dialog":    `<html><body><button id="confirm">Sign In</button></body></html>`,
		"stuck": `<html><body>
<button id="retry">Sign In</button>
<button id="mark">Mark Attendance</button>
<gt-button id="sign-up">Sign Up</gt-button>
</body></html>`,
		"done": attendanceMarked,
	}).
		on("#trigger", "dialog").
		on("#confirm", "stuck").
		on("#mark", "done")

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
	assert.Equal(t, []string{"#trigger", "#confirm", "#mark"}, browser.clicks)
}

func TestAttendanceWorkflow_CancelledContext(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{"dashboard": dashboardWithTrigger})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestWorkflow(testConfig(), browser).Run(ctx)
	require.Error(t, err)

	assert.True(t, apperr.HasCode(err, apperr.CodeTimeout))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, browser.clicks)
}

func TestAttendanceWorkflow_IgnoresDropdownsOutsideModal(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": `<html><body>
<input role="combobox" id="search">
<gt-button class="sign-in" id="trigger">Sign In</gt-button>
</body></html>`,
		"dialog": `<html><body>
<input role="combobox" id="search">
<ul role="listbox"><li role="option" id="opt-first">Leave Request</li></ul>
<div role="dialog"><p>Confirm attendance</p><button id="confirm">Sign In</button></div>
</body></html>`,
		"done": attendanceMarked,
	}).
		on("#trigger", "dialog").
		on("#confirm", "done")

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
	assert.Empty(t, result.Location)
	assert.Equal(t, []string{"#trigger", "#confirm"}, browser.clicks)

	for _, tr := range result.Transitions {
		assert.NotEqual(t, entity.StateLocationPending, tr.To)
	}
}

func TestAttendanceWorkflow_DetectsDropdownInsideModalWithoutPromptText(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": dashboardWithTrigger,
		"modal": `<html><body>
<input role="combobox" id="search">
<gt-popup-modal>
  <button aria-haspopup="listbox" id="loc-toggle">Location</button>
  <ul role="listbox"><li role="option" id="opt-home">Home</li><li role="option" id="opt-office">Office</li></ul>
  <gt-button id="confirm">Sign In</gt-button>
</gt-popup-modal>
</body></html>`,
		"done": attendanceMarked,
	}).
		on("#trigger", "modal").
		on("#confirm", "done")

	result, err := newTestWorkflow(testConfig(), browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
	assert.Equal(t, "Office", result.Location)
	assert.Equal(t, []string{"#trigger", "#loc-toggle", "#opt-office", "#confirm"}, browser.clicks)
}

func TestAttendanceWorkflow_SelectsLocationTextInsideModal(t *testing.T) {
	browser := newFakeBrowser(t, "dashboard", map[string]string{
		"dashboard": dashboardWithTrigger,
		"modal": `<html><body>
<nav><span id="page-office">Office</span></nav>
<div class="modal">
  <p>Tell us your work location</p>
  <div class="choices"><span id="loc-home">Home</span><span id="loc-office">Office</span></div>
  <gt-button id="confirm">Sign In</gt-button>
</div>
</body></html>`,
		"done": attendanceMarked,
	}).
		on("#trigger", "modal").
		on("#confirm", "done")

	cfg := testConfig()
	cfg.PortalConfig.SignInLocation = "  Office "

	result, err := newTestWorkflow(cfg, browser).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeSignedIn, result.Outcome)
	assert.Equal(t, "Office", result.Location)
	assert.Equal(t, []string{"#trigger", "#loc-office", "#confirm"}, browser.clicks)
}
