package conversation

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/pharmafirst/careline/internal/directory"
	"github.com/pharmafirst/careline/internal/language"
	"github.com/pharmafirst/careline/internal/prescriptions"
	"github.com/pharmafirst/careline/internal/triage"
	"github.com/pharmafirst/careline/pkg/observability"
	"github.com/pharmafirst/careline/pkg/session"
)

// Handler processes one turn for one stage. It mutates state (reply,
// stage, accumulated fields) and returns an error only for programming
// or lifecycle bugs; collaborator failures are absorbed and degrade to
// the handler's negative branch.
type Handler func(ctx context.Context, st *session.State, input string) error

// Handlers binds the per-stage transition logic to its collaborators.
type Handlers struct {
	directory     directory.Directory
	prescriptions prescriptions.Index
	language      language.Service
	bookingURL    string
}

// NewHandlers wires the stage handlers. Any collaborator may be nil, in
// which case its lookups behave as not-found.
func NewHandlers(dir directory.Directory, rx prescriptions.Index, lang language.Service, bookingURL string) *Handlers {
	return &Handlers{
		directory:     dir,
		prescriptions: rx,
		language:      lang,
		bookingURL:    bookingURL,
	}
}

// Table maps every stage to its handler. The controller verifies at
// startup that the table is total over the stage enumeration.
func (h *Handlers) Table() map[session.Stage]Handler {
	return map[session.Stage]Handler{
		session.StageGreeting:          h.Greeting,
		session.StageCollectInfo:       h.CollectInfo,
		session.StageTriageStart:       h.TriageStart,
		session.StageTriageAssessment:  h.TriageAssessment,
		session.StageBookingGuidance:   h.BookingGuidance,
		session.StagePrescriptionQuery: h.PrescriptionQuery,
		session.StageGeneralChat:       h.GeneralChat,
		session.StageEnd:               h.End,
	}
}

// Symptom tokens recognized during triage. Matched on word boundaries so
// "burn" does not fire on "burning".
var triageSymptoms = []string{"pain", "burn", "burning", "frequent", "urgency", "blood", "fever", "cloudy", "back pain"}

var symptomPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(triageSymptoms))
	for _, kw := range triageSymptoms {
		m[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return m
}()

var (
	namePattern = regexp.MustCompile(`(?i)(?:my name is|name is|i'm|i am)\s+([A-Za-z][A-Za-z ]{1,50})`)
	isoDate     = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	slashedDate = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`)
)

// askNameByLanguage localizes the new-user prompt; anything outside the
// table falls back to English.
var askNameByLanguage = map[string]string{
	"en": "Hi, I'm the Pharmacy First assistant. What's your full name?",
	"ur": "سلام! براہ کرم اپنا پورا نام بتائیں۔",
	"es": "Hola, soy el asistente de Pharmacy First. ¿Cuál es tu nombre completo?",
}

// say records the reply, translating it into the session's preferred
// language when one is set. Translation failures keep the English text.
func (h *Handlers) say(ctx context.Context, st *session.State, text string) {
	lang := st.PreferredLanguage
	if h.language != nil && lang != "" && lang != language.DefaultLanguage {
		translated, err := h.language.Translate(ctx, text, lang)
		if err != nil {
			log.Printf("session %s: translation to %s failed: %v", st.SessionID, lang, err)
			observability.RecordCollaboratorFailure("language")
		} else if translated != "" {
			text = translated
		}
	}
	h.sayVerbatim(st, text)
}

// sayVerbatim records an already-localized reply.
func (h *Handlers) sayVerbatim(st *session.State, text string) {
	st.TurnReply = text
	st.AppendMessage(session.RoleAssistant, text)
}

// Greeting handles the first contact: language detection, then identity
// lookup by handle. Known patients go straight to triage; unknown ones
// are asked for their name.
func (h *Handlers) Greeting(ctx context.Context, st *session.State, input string) error {
	if st.PreferredLanguage == "" {
		st.PreferredLanguage = language.DefaultLanguage
		if h.language != nil {
			code, err := h.language.Detect(ctx, input)
			if err != nil {
				log.Printf("session %s: language detection failed: %v", st.SessionID, err)
				observability.RecordCollaboratorFailure("language")
			} else if code != "" {
				st.PreferredLanguage = code
			}
		}
	}

	var patient *directory.Patient
	if h.directory != nil {
		p, err := h.directory.Get(ctx, st.Identity.Handle)
		if err != nil {
			if err != directory.ErrPatientNotFound {
				log.Printf("session %s: patient lookup failed: %v", st.SessionID, err)
				observability.RecordCollaboratorFailure("directory")
			}
		} else {
			patient = p
		}
	}

	if patient != nil {
		if st.Identity.PatientID == "" {
			st.Identity.PatientID = patient.PatientID
		}
		st.Identity.Name = patient.Name
		st.Identity.DateOfBirth = patient.DateOfBirth
		h.say(ctx, st, fmt.Sprintf("Hello %s - welcome back! How can I help you today?", patient.Name))
		st.Stage = session.StageTriageStart
		return nil
	}

	prompt, ok := askNameByLanguage[st.PreferredLanguage]
	if !ok {
		prompt = askNameByLanguage[language.DefaultLanguage]
	}
	h.sayVerbatim(st, prompt)
	st.Stage = session.StageCollectInfo
	return nil
}

// CollectInfo extracts a name and date of birth from free text, filling
// only fields not already set. Once both are present the patient is
// registered and the conversation moves on to triage.
func (h *Handlers) CollectInfo(ctx context.Context, st *session.State, input string) error {
	if st.Identity.Name == "" {
		if m := namePattern.FindStringSubmatch(input); m != nil {
			st.Identity.Name = strings.TrimSpace(m[1])
		}
	}

	if st.Identity.DateOfBirth == "" {
		if m := isoDate.FindStringSubmatch(input); m != nil {
			st.Identity.DateOfBirth = m[1]
		} else if m := slashedDate.FindStringSubmatch(input); m != nil {
			st.Identity.DateOfBirth = m[1]
		}
	}

	switch {
	case st.Identity.Name != "" && st.Identity.DateOfBirth != "":
		if h.directory != nil {
			id, err := h.directory.Upsert(ctx, st.Identity.Handle, directory.Patient{
				PatientID:         derivePatientID(st.Identity.Handle),
				Name:              st.Identity.Name,
				DateOfBirth:       st.Identity.DateOfBirth,
				Handle:            st.Identity.Handle,
				PreferredLanguage: st.PreferredLanguage,
			})
			if err != nil {
				log.Printf("session %s: patient upsert failed: %v", st.SessionID, err)
				observability.RecordCollaboratorFailure("directory")
			} else if st.Identity.PatientID == "" {
				st.Identity.PatientID = id
			}
		}
		h.say(ctx, st, fmt.Sprintf("Thanks %s - how can I help you today?", st.Identity.Name))
		st.Stage = session.StageTriageStart

	case st.Identity.Name != "":
		h.say(ctx, st, fmt.Sprintf("Nice to meet you, %s - could you tell me your date of birth?", st.Identity.Name))

	default:
		h.say(ctx, st, "I didn't catch your name. What's your full name, please?")
	}
	return nil
}

// derivePatientID builds the deterministic registration id from the last
// six characters of the contact handle.
func derivePatientID(handle string) string {
	suffix := handle
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "PAT_" + suffix
}

// TriageStart invites a symptom description when the input carried no
// recognizable intent. The stage is unchanged; the router moves the
// conversation to triage_assessment as soon as symptoms are mentioned.
func (h *Handlers) TriageStart(ctx context.Context, st *session.State, input string) error {
	h.say(ctx, st, "How can I help you today? If you're feeling unwell, please describe your symptoms.")
	return nil
}

// TriageAssessment accumulates symptom tokens from the input, runs the
// rule engine over the full set, and branches on the outcome.
func (h *Handlers) TriageAssessment(ctx context.Context, st *session.State, input string) error {
	text := strings.ToLower(input)
	for _, kw := range triageSymptoms {
		if symptomPatterns[kw].MatchString(text) {
			st.AddSymptom(kw)
		}
	}

	assessment := triage.Assess(st.Symptoms)
	st.Condition = assessment.Condition
	st.Severity = assessment.Severity
	if assessment.Urgent && !st.Urgent {
		st.Urgent = true
		observability.RecordUrgentEscalation()
	}

	switch {
	case st.Urgent:
		h.say(ctx, st, "Based on your symptoms, please seek urgent care or call 111 immediately.")
		st.Stage = session.StageEnd

	case len(st.Symptoms) >= 2:
		h.say(ctx, st, "It sounds like you may have a UTI. I can help you find an NHS Pharmacy First nearby for assessment. "+
			"Would you like me to find a local pharmacy and book a consultation?")
		st.Stage = session.StageBookingGuidance

	default:
		h.say(ctx, st, "Can you tell me if you have any of the following: pain or burning when urinating, "+
			"needing to urinate more often, urgency, fever, or blood in your urine?")
	}
	return nil
}

// BookingGuidance is a stateless informational reply pointing at the
// booking resource.
func (h *Handlers) BookingGuidance(ctx context.Context, st *session.State, input string) error {
	h.say(ctx, st, fmt.Sprintf("NHS Pharmacy First offers same-day assessment and treatment. "+
		"You can learn more and find participating pharmacies here: %s. "+
		"If you want, I can search for nearby pharmacies and share contact details.", h.bookingURL))
	st.Stage = session.StageGeneralChat
	return nil
}

// PrescriptionQuery looks up the caller's prescriptions. Identity must
// be verified first; search failures read as an empty result.
func (h *Handlers) PrescriptionQuery(ctx context.Context, st *session.State, input string) error {
	if st.Identity.PatientID == "" {
		h.say(ctx, st, "Please verify your name and date of birth first so I can look up prescriptions.")
		st.Stage = session.StageCollectInfo
		return nil
	}

	var results []prescriptions.Prescription
	if h.prescriptions != nil {
		found, err := h.prescriptions.Search(ctx, input, st.Identity.PatientID, 3)
		if err != nil {
			log.Printf("session %s: prescription search failed: %v", st.SessionID, err)
			observability.RecordCollaboratorFailure("prescriptions")
		} else {
			results = found
		}
	}

	st.LastPrescriptionResults = st.LastPrescriptionResults[:0]
	for _, r := range results {
		st.LastPrescriptionResults = append(st.LastPrescriptionResults, session.PrescriptionResult{
			Medication:   r.Medication,
			Dosage:       r.Dosage,
			Instructions: r.Instructions,
		})
	}

	if len(results) == 0 {
		h.say(ctx, st, "I couldn't find prescriptions matching your query. Could you provide more details?")
	} else {
		parts := make([]string, 0, len(results))
		for _, r := range results {
			parts = append(parts, fmt.Sprintf("%s %s - %s", r.Medication, r.Dosage, r.Instructions))
		}
		h.say(ctx, st, "I found these prescriptions: "+strings.Join(parts, "; "))
	}

	st.Stage = session.StageGeneralChat
	return nil
}

// GeneralChat keeps the conversation open after triage or a lookup.
func (h *Handlers) GeneralChat(ctx context.Context, st *session.State, input string) error {
	h.say(ctx, st, "Is there anything else I can help you with today? You can ask about your prescriptions or describe new symptoms.")
	return nil
}

// End acknowledges messages after the conversation has been closed.
func (h *Handlers) End(ctx context.Context, st *session.State, input string) error {
	if st.Urgent {
		h.say(ctx, st, "This conversation has been closed. Please seek urgent care or call 111 immediately; in an emergency call 999.")
	} else {
		h.say(ctx, st, "This conversation has ended. Message us again any time you need help.")
	}
	return nil
}
