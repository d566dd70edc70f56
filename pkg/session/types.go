// Package session holds the per-conversation state record and the store
// that owns the session-id to state mapping. State is pure data; all
// transition logic lives in the conversation package.
package session

import (
	"time"
)

// Channel identifies how the user reached the service.
type Channel string

const (
	// ChannelMessaging covers text channels (WhatsApp, SMS).
	ChannelMessaging Channel = "messaging"
	// ChannelVoice covers phone calls.
	ChannelVoice Channel = "voice"
)

// Stage is one discrete phase of the conversation flow.
// The set is closed; transitions happen only through the router and
// stage handlers.
type Stage string

const (
	StageGreeting          Stage = "greeting"
	StageCollectInfo       Stage = "collect_info"
	StageTriageStart       Stage = "triage_start"
	StageTriageAssessment  Stage = "triage_assessment"
	StageBookingGuidance   Stage = "booking_guidance"
	StagePrescriptionQuery Stage = "prescription_query"
	StageGeneralChat       Stage = "general_chat"
	StageEnd               Stage = "end"
)

// Stages returns every stage in the closed enumeration.
func Stages() []Stage {
	return []Stage{
		StageGreeting,
		StageCollectInfo,
		StageTriageStart,
		StageTriageAssessment,
		StageBookingGuidance,
		StagePrescriptionQuery,
		StageGeneralChat,
		StageEnd,
	}
}

// Valid reports whether s is a member of the stage enumeration.
func (s Stage) Valid() bool {
	switch s {
	case StageGreeting, StageCollectInfo, StageTriageStart, StageTriageAssessment,
		StageBookingGuidance, StagePrescriptionQuery, StageGeneralChat, StageEnd:
		return true
	}
	return false
}

// Severity grades the accumulated symptom picture.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Role identifies the author of a logged message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the append-only conversation log.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity holds what we know about the caller. Handle is fixed at
// session creation; PatientID is set once resolved and never changes
// afterwards.
type Identity struct {
	Handle      string `json:"handle"`
	PatientID   string `json:"patientId,omitempty"`
	Name        string `json:"name,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// PrescriptionResult is one hit from a prescription lookup.
type PrescriptionResult struct {
	Medication   string `json:"medication"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions"`
}

// State is the per-session conversation record. Exactly one State exists
// per session id; it is mutated by exactly one stage handler per turn.
type State struct {
	SessionID string  `json:"sessionId"`
	Channel   Channel `json:"channel"`

	Identity          Identity `json:"identity"`
	PreferredLanguage string   `json:"preferredLanguage"`

	Stage      Stage     `json:"stage"`
	MessageLog []Message `json:"messageLog"`

	// Symptoms grows monotonically for the life of the session and
	// holds no duplicates.
	Symptoms  []string `json:"symptoms"`
	Severity  Severity `json:"severity,omitempty"`
	Condition string   `json:"condition,omitempty"`
	// Urgent latches: once true it never reverts within the session.
	Urgent bool `json:"urgent"`

	// LastPrescriptionResults is replaced wholesale on each query.
	LastPrescriptionResults []PrescriptionResult `json:"lastPrescriptionResults,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Scratch fields, valid only while a turn is being processed.
	TurnInput string `json:"-"`
	TurnReply string `json:"-"`
}

// NewState constructs the initial record for a fresh session.
func NewState(sessionID string, channel Channel, handle string) *State {
	now := time.Now().UTC()
	// PreferredLanguage stays empty until the first greeting turn runs
	// detection; afterwards it is sticky for the session.
	return &State{
		SessionID:  sessionID,
		Channel:    channel,
		Identity:   Identity{Handle: handle},
		Stage:      StageGreeting,
		MessageLog: make([]Message, 0),
		Symptoms:   make([]string, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AppendMessage adds an entry to the message log. The log is append-only;
// nothing ever truncates or reorders it.
func (s *State) AppendMessage(role Role, text string) {
	s.MessageLog = append(s.MessageLog, Message{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// HasSymptom reports whether token is already in the symptom set.
func (s *State) HasSymptom(token string) bool {
	for _, t := range s.Symptoms {
		if t == token {
			return true
		}
	}
	return false
}

// AddSymptom appends token to the symptom set if not already present.
// Returns true when the token was new.
func (s *State) AddSymptom(token string) bool {
	if s.HasSymptom(token) {
		return false
	}
	s.Symptoms = append(s.Symptoms, token)
	return true
}

// Clone returns a deep copy so stored state cannot be mutated through
// aliased slices.
func (s *State) Clone() *State {
	cp := *s
	cp.MessageLog = append([]Message(nil), s.MessageLog...)
	cp.Symptoms = append([]string(nil), s.Symptoms...)
	cp.LastPrescriptionResults = append([]PrescriptionResult(nil), s.LastPrescriptionResults...)
	return &cp
}
