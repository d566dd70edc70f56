package session

import (
	"testing"
)

func TestAddSymptomDedup(t *testing.T) {
	st := NewState("s", ChannelMessaging, "+447700900123")

	if !st.AddSymptom("burning") {
		t.Error("first AddSymptom should report new")
	}
	if st.AddSymptom("burning") {
		t.Error("duplicate AddSymptom should report existing")
	}
	if !st.AddSymptom("frequent") {
		t.Error("second distinct AddSymptom should report new")
	}

	if len(st.Symptoms) != 2 {
		t.Errorf("symptom set = %v, want 2 distinct tokens", st.Symptoms)
	}
}

func TestStageValid(t *testing.T) {
	for _, s := range Stages() {
		if !s.Valid() {
			t.Errorf("Stages() member %q reported invalid", s)
		}
	}
	if Stage("escalate").Valid() {
		t.Error("unknown stage reported valid")
	}
	if Stage("").Valid() {
		t.Error("empty stage reported valid")
	}
}

func TestCloneIsDeep(t *testing.T) {
	st := NewState("s", ChannelMessaging, "+447700900123")
	st.AddSymptom("pain")
	st.AppendMessage(RoleUser, "hello")

	cp := st.Clone()
	cp.AddSymptom("fever")
	cp.AppendMessage(RoleAssistant, "hi")
	cp.LastPrescriptionResults = append(cp.LastPrescriptionResults, PrescriptionResult{Medication: "x"})

	if len(st.Symptoms) != 1 {
		t.Errorf("clone mutation leaked into symptoms: %v", st.Symptoms)
	}
	if len(st.MessageLog) != 1 {
		t.Errorf("clone mutation leaked into message log: %d entries", len(st.MessageLog))
	}
	if len(st.LastPrescriptionResults) != 0 {
		t.Error("clone mutation leaked into prescription results")
	}
}
