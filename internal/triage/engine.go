// Package triage holds the symptom rule engine. Assess is a pure
// function of the accumulated symptom set; it calls nothing and keeps
// no state, so triage outcomes are deterministic and testable on their
// own.
package triage

import (
	"github.com/pharmafirst/careline/pkg/session"
)

// Assessment is the outcome of running the rule chain over a symptom set.
// Urgency is not derived from severity: the two are independent outputs
// of the same ordered rules (urgent implies severe, never the reverse).
type Assessment struct {
	Condition string
	Severity  session.Severity
	Urgent    bool
}

// Red-flag symptoms that demand urgent care regardless of anything else.
var redFlags = []string{"blood", "fever"}

// Symptoms suggestive of a urinary tract infection.
var utiMarkers = []string{"burn", "burning", "frequent", "urgency"}

// Assess runs the ordered rule chain over the symptom set.
//
// Rules, in order:
//   - empty set: no condition, no severity, not urgent
//   - any red flag (blood, fever): severe and urgent
//   - two or more symptoms: moderate
//   - otherwise: mild
//
// Condition is "Possible UTI" whenever the set intersects the UTI
// markers, independent of severity.
func Assess(symptoms []string) Assessment {
	if len(symptoms) == 0 {
		return Assessment{}
	}

	var out Assessment
	switch {
	case containsAny(symptoms, redFlags):
		out.Severity = session.SeveritySevere
		out.Urgent = true
	case len(symptoms) >= 2:
		out.Severity = session.SeverityModerate
	default:
		out.Severity = session.SeverityMild
	}

	if containsAny(symptoms, utiMarkers) {
		out.Condition = "Possible UTI"
	}

	return out
}

func containsAny(set []string, tokens []string) bool {
	for _, s := range set {
		for _, t := range tokens {
			if s == t {
				return true
			}
		}
	}
	return false
}
