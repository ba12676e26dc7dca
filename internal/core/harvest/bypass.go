package harvest

import (
	"harvester/internal/core/progress"
	"harvester/internal/platform/browser"
)

type bypassAction int

const (
	actionClick bypassAction = iota
	actionRemove
)

// bypassRule is one obstruction heuristic: a locator plus what to do with the
// first visible match. Rules run in priority order and every failure is
// swallowed; dismissing overlays is best effort by contract.
type bypassRule struct {
	name     string
	selector string
	action   bypassAction
}

var bypassRules = []bypassRule{
	// consent managers with stable ids
	{"onetrust accept", "#onetrust-accept-btn-handler", actionClick},
	{"cookiebot accept", "#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll", actionClick},
	{"quantcast accept", ".qc-cmp2-summary-buttons button[mode=\"primary\"]", actionClick},
	// generic accept controls
	{"accept button by label", "button[aria-label*=\"accept\" i]", actionClick},
	{"accept button by id", "button[id*=\"accept\" i]", actionClick},
	{"accept button by class", "button[class*=\"accept\" i]", actionClick},
	{"accept link by text", "text=/^(accept|agree|allow)( all)?( cookies)?$/i", actionClick},
	{"got it by text", "text=/^(got it|ok|okay|verstanden)$/i", actionClick},
	// modal close controls
	{"dialog close", "[role=\"dialog\"] button[aria-label*=\"close\" i]", actionClick},
	{"modal close", ".modal [class*=\"close\" i]", actionClick},
	// container overlays that only go away by force
	{"cookie banner", "[id*=\"cookie-banner\" i]", actionRemove},
	{"cookie consent container", "[class*=\"cookie-consent\" i]", actionRemove},
	{"gdpr overlay", "[class*=\"gdpr\" i][class*=\"overlay\" i]", actionRemove},
	{"modal backdrop", ".modal-backdrop", actionRemove},
	{"generic overlay", "[class*=\"overlay\" i][aria-modal=\"true\"]", actionRemove},
}

// removeNodesJS deletes every match and undoes the body scroll lock consent
// managers leave behind.
const removeNodesJS = `(sel) => {
	document.querySelectorAll(sel).forEach((el) => el.remove());
	document.body.style.overflow = '';
	document.documentElement.style.overflow = '';
}`

// bypassObstructions walks the rule table in order. Each rule acts on the
// first matching visible element only; absent elements and rejected clicks
// are ignored and the loop always completes.
func (s *Service) bypassObstructions(pg browser.Page, url string, rep *progress.Reporter) {
	for _, rule := range bypassRules {
		if !pg.IsVisible(rule.selector) {
			continue
		}
		switch rule.action {
		case actionClick:
			if err := pg.Click(rule.selector); err != nil {
				rep.Warnf("obstruction click (%s) failed on %s: %v", rule.name, url, err)
				continue
			}
			rep.Infof("dismissed obstruction (%s) on %s", rule.name, url)
		case actionRemove:
			if err := pg.Eval(`(` + removeNodesJS + `)(` + jsString(rule.selector) + `)`); err != nil {
				rep.Warnf("obstruction removal (%s) failed on %s: %v", rule.name, url, err)
				continue
			}
			rep.Infof("removed obstruction (%s) on %s", rule.name, url)
		}
	}
}

// jsString quotes a selector for embedding into an evaluated script.
func jsString(s string) string {
	out := make([]rune, 0, len(s)+2)
	out = append(out, '\'')
	for _, r := range s {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}
