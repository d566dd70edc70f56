package conversation

import (
	"strings"

	"github.com/pharmafirst/careline/pkg/session"
)

// Intent keywords, checked against the lower-cased utterance.
// Prescription intent strictly dominates symptom intent when both are
// present in the same message.
var (
	prescriptionKeywords = []string{"medication", "dosage", "prescription", "medicine"}
	symptomKeywords      = []string{"pain", "burn", "uti", "infection", "frequent", "urinate"}
)

// Route picks the stage that should handle the current input. It is a
// pure function of (current stage, raw input) and never mutates state.
//
// Priority order: prescription intent first, then symptom intent (only
// while the conversation is in a greeting or triage stage), then fall
// through to whatever stage the conversation is already in.
func Route(current session.Stage, input string) session.Stage {
	text := strings.ToLower(input)

	if containsAny(text, prescriptionKeywords) {
		return session.StagePrescriptionQuery
	}

	if containsAny(text, symptomKeywords) {
		switch current {
		case session.StageGreeting, session.StageTriageStart, session.StageTriageAssessment:
			return session.StageTriageAssessment
		}
	}

	if current == "" {
		return session.StageGreeting
	}
	return current
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
