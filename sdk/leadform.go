package vocaria

import (
	"context"
	"strings"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core"
	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
	"github.com/Juanisegura2025/vocaria-widget/pkg/leads"
)

// ValidateLeadDraft checks a lead form draft before submission. Email is
// required and must have a single @ with non-empty local part and domain;
// phone is optional free text.
func ValidateLeadDraft(draft types.LeadDraft) error {
	email := strings.TrimSpace(draft.Email)
	if email == "" {
		return core.NewValidationError("email is required", "email")
	}
	at := strings.Index(email, "@")
	if at != strings.LastIndex(email, "@") {
		return core.NewValidationError("email must contain exactly one @", "email")
	}
	if at <= 0 {
		return core.NewValidationError("email is missing the part before @", "email")
	}
	domain := email[at+1:]
	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return core.NewValidationError("email domain is invalid", "email")
	}
	return nil
}

// SubmitLead validates the draft, acknowledges in the transcript and
// submits the lead in the background. Validation failures return
// immediately and leave the form visible; submission failures surface
// later through LeadError and OnError, with RetryLead available.
func (s *Session) SubmitLead(ctx context.Context, draft types.LeadDraft) error {
	if err := ValidateLeadDraft(draft); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	channel := types.ChannelText
	if s.mode == ModeVoice {
		channel = types.ChannelVoice
	}
	lead := leads.Lead{
		Email:       strings.TrimSpace(draft.Email),
		Phone:       strings.TrimSpace(draft.Phone),
		TourID:      s.client.cfg.TourID,
		AgentID:     s.client.cfg.AgentID,
		RoomContext: s.rooms.Current(),
		Channel:     channel,
		Metadata: map[string]any{
			"session_id": s.id,
			"messages":   len(s.transcript),
		},
	}
	s.leadFormVisible = false
	s.pendingLead = &lead
	s.leadErr = nil
	s.appendLocked(types.AuthorAgent, channel, leadAckText(s.client.language))
	s.mu.Unlock()

	s.dispatchLead(lead)
	return nil
}

// RetryLead resubmits the last failed lead. No-op unless a submission
// actually failed.
func (s *Session) RetryLead() {
	s.mu.Lock()
	if s.closed || s.pendingLead == nil || s.leadErr == nil {
		s.mu.Unlock()
		return
	}
	lead := *s.pendingLead
	s.leadErr = nil
	s.mu.Unlock()
	s.dispatchLead(lead)
}

// DismissLeadForm hides the form without submitting and re-arms the
// trigger, so a later agent message may surface it again.
func (s *Session) DismissLeadForm() {
	s.mu.Lock()
	s.leadFormVisible = false
	s.armed = true
	s.mu.Unlock()
}

// LeadFormVisible reports whether the lead form is currently shown.
func (s *Session) LeadFormVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leadFormVisible
}

// LeadError returns the last lead submission failure, if any.
func (s *Session) LeadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leadErr
}

// dispatchLead submits the lead off the caller's goroutine. The
// transcript acknowledgment has already happened; this only settles the
// pending/error bookkeeping and fires the capture callback.
func (s *Session) dispatchLead(lead leads.Lead) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.client.leadTimeout)
		defer cancel()
		record, err := s.client.leads.Create(ctx, lead)
		if err != nil {
			s.mu.Lock()
			s.leadErr = err
			s.mu.Unlock()
			s.client.logger.Warn("lead submission failed",
				"session", s.id, "tour_id", lead.TourID, "error", err)
			s.notifyError(err)
			return
		}

		s.mu.Lock()
		s.pendingLead = nil
		s.leadErr = nil
		s.mu.Unlock()
		s.client.logger.Info("lead captured",
			"session", s.id, "tour_id", lead.TourID, "lead_id", record.ID)
		if s.client.onLeadCapture != nil {
			s.client.onLeadCapture(*record)
		}
	}()
}

func leadAckText(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "en") {
		return "Thanks! An advisor will contact you shortly."
	}
	return "¡Gracias! Un asesor se pondrá en contacto contigo muy pronto."
}
