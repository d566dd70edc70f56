// Package httpapi exposes the inbound webhook endpoints for the
// messaging and voice channels and delivers replies back out.
package httpapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pharmafirst/careline/internal/conversation"
	"github.com/pharmafirst/careline/pkg/observability"
	"github.com/pharmafirst/careline/pkg/session"
)

// Options configures the webhook server.
type Options struct {
	Port      int
	RateLimit float64
	RateBurst int

	Controller *conversation.Controller
	// Transport delivers messaging replies out of band. When nil the
	// reply is embedded in the webhook response instead.
	Transport MessageTransport
}

// Server is the webhook listener.
type Server struct {
	controller *conversation.Controller
	transport  MessageTransport
	limiter    *rate.Limiter
	port       int

	httpServer *http.Server
}

// NewServer creates the webhook server.
func NewServer(opts Options) *Server {
	limit := opts.RateLimit
	if limit <= 0 {
		limit = 10
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 20
	}
	return &Server{
		controller: opts.Controller,
		transport:  opts.Transport,
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		port:       opts.Port,
	}
}

// Handler returns the routed webhook handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/messaging", s.instrument("/webhook/messaging", s.handleMessaging))
	mux.HandleFunc("/webhook/voice", s.instrument("/webhook/voice", s.handleVoiceStart))
	mux.HandleFunc("/webhook/voice/collect", s.instrument("/webhook/voice/collect", s.handleVoiceCollect))
	return mux
}

// Start starts the webhook server. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusWriter captures the response code for request metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument applies the method check, rate limit, and request metrics
// around one route.
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		switch {
		case r.Method != http.MethodPost:
			http.Error(sw, "method not allowed", http.StatusMethodNotAllowed)
		case !s.limiter.Allow():
			http.Error(sw, "too many requests", http.StatusTooManyRequests)
		default:
			next(sw, r)
		}

		observability.RecordHTTPRequest(r.Method, path, strconv.Itoa(sw.status), time.Since(start))
	}
}

// messagingResponse is the XML acknowledgement for a messaging webhook.
// Message carries the reply only when no transport is configured.
type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// gather asks the telephony provider to capture the caller's next
// utterance and post it back.
type gather struct {
	Input   string `xml:"input,attr"`
	Action  string `xml:"action,attr"`
	Method  string `xml:"method,attr"`
	Timeout int    `xml:"timeout,attr"`
}

// voiceResponse is the XML call-control document for a voice webhook.
type voiceResponse struct {
	XMLName xml.Name  `xml:"Response"`
	Say     string    `xml:"Say,omitempty"`
	Gather  *gather   `xml:"Gather,omitempty"`
	Hangup  *struct{} `xml:"Hangup,omitempty"`
}

func writeXML(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return
	}
	if err := xml.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode webhook response: %v", err)
	}
}

func (s *Server) handleMessaging(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}

	// Messaging sessions are keyed by the sender's number.
	reply, _, err := s.controller.ProcessTurn(r.Context(), from, session.ChannelMessaging, from, body)
	if err != nil {
		log.Printf("messaging turn for %s failed: %v", from, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if s.transport != nil {
		if err := s.transport.Send(r.Context(), from, reply); err != nil {
			log.Printf("outbound send to %s failed: %v", from, err)
			observability.RecordCollaboratorFailure("transport")
			// Fall back to an inline reply so the user still gets an
			// answer.
			writeXML(w, messagingResponse{Message: reply})
			return
		}
		writeXML(w, messagingResponse{})
		return
	}
	writeXML(w, messagingResponse{Message: reply})
}

func speechGather() *gather {
	return &gather{
		Input:   "speech",
		Action:  "/webhook/voice/collect",
		Method:  http.MethodPost,
		Timeout: 5,
	}
}

func (s *Server) handleVoiceStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	from := r.PostFormValue("From")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	// Voice sessions are keyed by the call id; the caller's number is
	// the identity handle.
	reply, stage, err := s.controller.ProcessTurn(r.Context(), callID, session.ChannelVoice, from, "")
	if err != nil {
		log.Printf("voice turn for call %s failed: %v", callID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := voiceResponse{Say: reply}
	if stage == session.StageEnd {
		resp.Hangup = &struct{}{}
	} else {
		resp.Gather = speechGather()
	}
	writeXML(w, resp)
}

func (s *Server) handleVoiceCollect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	from := r.PostFormValue("From")
	speech := r.PostFormValue("SpeechResult")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	reply, stage, err := s.controller.ProcessTurn(r.Context(), callID, session.ChannelVoice, from, speech)
	if err != nil {
		log.Printf("voice turn for call %s failed: %v", callID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := voiceResponse{Say: reply}
	if stage == session.StageEnd {
		resp.Hangup = &struct{}{}
	} else {
		resp.Gather = speechGather()
	}
	writeXML(w, resp)
}
