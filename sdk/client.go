// Package vocaria is the embeddable conversational widget for 3D
// property tours.
//
// A Client holds the tour configuration and backing services; Mount
// creates one widget Session per visitor page. The session owns the
// transcript, the text/voice mode switch, and the lead capture flow.
package vocaria

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core"
	"github.com/Juanisegura2025/vocaria-widget/pkg/leads"
	"github.com/Juanisegura2025/vocaria-widget/pkg/room"
	"github.com/Juanisegura2025/vocaria-widget/pkg/text"
	"github.com/Juanisegura2025/vocaria-widget/pkg/trigger"
	"github.com/Juanisegura2025/vocaria-widget/pkg/voice"
)

const (
	defaultAPIBaseURL = "https://widget.vocaria.app/v1"

	defaultLanguage     = "es"
	defaultPosition     = "bottom-right"
	defaultPrimaryColor = "#2563EB"

	defaultReplyTimeout  = 10 * time.Second
	defaultLeadTimeout   = 10 * time.Second
	defaultRecoveryDelay = 3 * time.Second
)

// Config identifies the tour the widget is embedded in.
type Config struct {
	// TourID is the property tour this widget serves. Required.
	TourID string

	// AgentID is the voice agent bound to the tour. Optional: without
	// it the widget is text-only and StartVoice fails fast.
	AgentID string

	// Token is the widget bearer token issued for the tour.
	Token string
}

// VoiceDialer opens live voice sessions. The production implementation
// dials the voice relay; tests substitute fakes.
type VoiceDialer interface {
	Connect(ctx context.Context, agentID string) (VoiceHandle, error)
}

// VoiceHandle is one live voice session as seen by the controller.
type VoiceHandle interface {
	ID() string
	Events() <-chan voice.Event
	Close() error
	Err() error
}

// LeadCreator submits captured leads to the backend.
type LeadCreator interface {
	Create(ctx context.Context, lead leads.Lead) (*leads.Record, error)
}

// Client is a configured widget. One Client serves one tour and can
// mount any number of visitor sessions.
type Client struct {
	cfg Config

	position     string
	primaryColor string
	greeting     string
	language     string
	autoOpen     bool
	backendURL   string
	voiceURL     string

	httpClient     *http.Client
	logger         *slog.Logger
	replies        text.ReplyProvider
	engine         trigger.Engine
	voice          VoiceDialer
	leads          LeadCreator
	connectTimeout time.Duration
	replyTimeout   time.Duration
	leadTimeout    time.Duration
	recoveryDelay  time.Duration

	onReady       func()
	onError       func(error)
	onLeadCapture func(leads.Record)

	sessions *sessionTracker
}

// New creates a widget client for one tour.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.TourID = strings.TrimSpace(cfg.TourID)
	cfg.AgentID = strings.TrimSpace(cfg.AgentID)
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.TourID == "" {
		return nil, core.NewConfigurationError("tour id must not be empty")
	}

	c := &Client{
		cfg:           cfg,
		position:      defaultPosition,
		primaryColor:  defaultPrimaryColor,
		language:      defaultLanguage,
		logger:        slog.Default(),
		replyTimeout:  defaultReplyTimeout,
		leadTimeout:   defaultLeadTimeout,
		recoveryDelay: defaultRecoveryDelay,
		sessions:      newSessionTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.engine == nil {
		c.engine = trigger.NewKeywordEngine()
	}
	if c.replies == nil {
		if c.backendURL != "" {
			backendOpts := []text.BackendOption{}
			if c.httpClient != nil {
				backendOpts = append(backendOpts, text.WithHTTPClient(c.httpClient))
			}
			c.replies = text.NewBackend(c.backendURL, cfg.TourID, cfg.Token, backendOpts...)
		} else {
			c.replies = text.NewCanned(c.language)
		}
	}
	if c.leads == nil {
		base := c.backendURL
		if base == "" {
			base = defaultAPIBaseURL
		}
		leadOpts := []leads.Option{leads.WithLogger(c.logger)}
		if c.httpClient != nil {
			leadOpts = append(leadOpts, leads.WithHTTPClient(c.httpClient))
		}
		c.leads = leads.New(base, cfg.Token, leadOpts...)
	}
	if c.voice == nil {
		adapterOpts := []voice.Option{
			voice.WithLanguage(c.language),
			voice.WithToken(cfg.Token),
			voice.WithLogger(c.logger),
		}
		if c.voiceURL != "" {
			adapterOpts = append(adapterOpts, voice.WithURL(c.voiceURL))
		}
		if c.connectTimeout > 0 {
			adapterOpts = append(adapterOpts, voice.WithConnectTimeout(c.connectTimeout))
		}
		c.voice = adapterDialer{adapter: voice.NewAdapter(adapterOpts...)}
	}
	return c, nil
}

// Mount creates a new widget session for one visitor page.
func (c *Client) Mount() *Session {
	s := &Session{
		id:         uuid.NewString(),
		client:     c,
		rooms:      room.NewTracker(),
		mode:       ModeText,
		voiceState: VoiceIdle,
		armed:      true,
	}
	s.unregister = c.sessions.register(s.id, s)
	c.logger.Debug("widget session mounted", "session", s.id, "tour_id", c.cfg.TourID)
	if c.onReady != nil {
		c.onReady()
	}
	if c.autoOpen {
		s.OpenWidget()
	}
	return s
}

// TourID returns the configured tour id.
func (c *Client) TourID() string { return c.cfg.TourID }

// Position returns the configured widget corner.
func (c *Client) Position() string { return c.position }

// PrimaryColor returns the configured accent color.
func (c *Client) PrimaryColor() string { return c.primaryColor }

// Sessions returns the number of mounted sessions.
func (c *Client) Sessions() int { return c.sessions.count() }

// Close unmounts every live session.
func (c *Client) Close() error {
	c.sessions.closeAll()
	return nil
}

// adapterDialer adapts *voice.Adapter to the VoiceDialer interface.
type adapterDialer struct {
	adapter *voice.Adapter
}

func (d adapterDialer) Connect(ctx context.Context, agentID string) (VoiceHandle, error) {
	h, err := d.adapter.Connect(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return h, nil
}
