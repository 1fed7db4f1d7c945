package retriever

import "github.com/andybalholm/cascadia"

// All DocSend-specific CSS selectors live here so viewer markup drift is a
// one-file fix. Selector groups are ordered: the first match wins, so put
// the most specific (stable form-field names) before the generic fallbacks.

// passcodeMarkers identify the email+passcode gate. Checked before the email
// markers because a passcode form always contains an email field too.
var passcodeMarkers = []string{
	`input[name="link_auth_form[passcode]"]`,
	`#link_auth_form_passcode`,
	`input[type="password"]`,
	`.passcode-gate`,
}

// emailMarkers identify the email-only gate.
var emailMarkers = []string{
	`input[name="link_auth_form[email]"]`,
	`#link_auth_form_email`,
	`#new_link_auth_form`,
	`input[type="email"]`,
	`.visitor-email-capture`,
	`.email-capture`,
}

// rejectionMarkers appear when the viewer refuses submitted credentials.
var rejectionMarkers = []string{
	`.error-message`,
	`.alert-error`,
	`.alert-danger`,
	`.form-error`,
	`[data-testid="auth-error"]`,
}

// documentMarkers indicate rendered document content is present.
var documentMarkers = []string{
	`.document-container`,
	`.page-container`,
	`#document-viewer`,
	`[class*="viewer"]`,
	`img[class*="page"]`,
	`canvas`,
}

// pageIndicatorSelectors locate the "N of M" page indicator.
var pageIndicatorSelectors = []string{
	`[data-testid="page-count"]`,
	`.page-count`,
	`.page-number`,
	`[class*="page-indicator"]`,
	`[class*="pageIndicator"]`,
	`[class*="pageCount"]`,
	`[class*="toolbar-page"]`,
}

// emailInputSelectors locate the email field when filling the gate form.
var emailInputSelectors = []string{
	`input[name="link_auth_form[email]"]`,
	`#link_auth_form_email`,
	`input[type="email"]`,
	`input[autocomplete="email"]`,
}

// passcodeInputSelectors locate the passcode field.
var passcodeInputSelectors = []string{
	`input[name="link_auth_form[passcode]"]`,
	`#link_auth_form_passcode`,
	`input[type="password"]`,
}

// submitSelectors locate the gate form's submit control.
var submitSelectors = []string{
	`[data-testid="submit-button"]`,
	`button[type="submit"]`,
	`input[type="submit"]`,
	`form button`,
}

// nextPageSelectors locate the viewer's forward-navigation control. Keyboard
// ArrowRight is the fallback when none of these are present.
var nextPageSelectors = []string{
	`[data-testid="next-page"]`,
	`[aria-label="Next page"]`,
	`.next-page`,
	`.next-btn`,
	`[class*="nextPage"]`,
}

// consentSelectors locate cookie-consent accept buttons that would otherwise
// sit on top of every capture.
var consentSelectors = []string{
	`#onetrust-accept-btn-handler`,
	`[data-testid="cookie-accept"]`,
	`.cookie-consent-accept`,
	`.cc-accept`,
}

// Every selector above must parse; a typo here would silently disable its
// group. Panicking at init keeps the failure loud and immediate.
func init() {
	groups := [][]string{
		passcodeMarkers, emailMarkers, rejectionMarkers, documentMarkers,
		pageIndicatorSelectors, emailInputSelectors, passcodeInputSelectors,
		submitSelectors, nextPageSelectors, consentSelectors,
	}
	for _, group := range groups {
		for _, sel := range group {
			cascadia.MustCompile(sel)
		}
	}
}
