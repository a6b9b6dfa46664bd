package vocaria

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Juanisegura2025/vocaria-widget/pkg/leads"
	"github.com/Juanisegura2025/vocaria-widget/pkg/text"
	"github.com/Juanisegura2025/vocaria-widget/pkg/trigger"
)

// Option is a function that configures a Client.
type Option func(*Client)

// WithPosition sets the widget corner on the host page.
func WithPosition(position string) Option {
	return func(c *Client) {
		c.position = position
	}
}

// WithPrimaryColor sets the widget accent color.
func WithPrimaryColor(color string) Option {
	return func(c *Client) {
		c.primaryColor = color
	}
}

// WithGreeting sets the agent message appended when the widget opens.
func WithGreeting(greeting string) Option {
	return func(c *Client) {
		c.greeting = greeting
	}
}

// WithLanguage sets the conversation language (default "es").
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = language
	}
}

// WithAutoOpen opens the widget as soon as a session is mounted.
func WithAutoOpen(autoOpen bool) Option {
	return func(c *Client) {
		c.autoOpen = autoOpen
	}
}

// WithBackendURL sets the widget API root. When set, text-mode replies
// route through the conversation backend instead of the canned set.
func WithBackendURL(url string) Option {
	return func(c *Client) {
		c.backendURL = url
	}
}

// WithVoiceURL overrides the voice relay websocket URL.
func WithVoiceURL(url string) Option {
	return func(c *Client) {
		c.voiceURL = url
	}
}

// WithHTTPClient sets a custom HTTP client for backend calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger for the client and its sessions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReplyProvider replaces the text-channel reply provider.
func WithReplyProvider(p text.ReplyProvider) Option {
	return func(c *Client) {
		c.replies = p
	}
}

// WithTriggerEngine replaces the lead trigger engine.
func WithTriggerEngine(e trigger.Engine) Option {
	return func(c *Client) {
		c.engine = e
	}
}

// WithVoiceDialer replaces the voice provider session dialer.
func WithVoiceDialer(d VoiceDialer) Option {
	return func(c *Client) {
		c.voice = d
	}
}

// WithLeadCreator replaces the lead submission client.
func WithLeadCreator(l LeadCreator) Option {
	return func(c *Client) {
		c.leads = l
	}
}

// WithConnectTimeout bounds how long StartVoice may wait on the provider.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithReplyTimeout bounds how long a text-channel reply may take.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.replyTimeout = d
		}
	}
}

// WithRecoveryDelay sets the fixed delay before the error state recovers
// to idle.
func WithRecoveryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.recoveryDelay = d
		}
	}
}

// OnReady registers the host-page callback fired when a session mounts.
func OnReady(fn func()) Option {
	return func(c *Client) {
		c.onReady = fn
	}
}

// OnError registers the host-page callback for user-visible errors.
func OnError(fn func(error)) Option {
	return func(c *Client) {
		c.onError = fn
	}
}

// OnLeadCapture registers the host-page callback fired when a lead is
// accepted by the backend.
func OnLeadCapture(fn func(leads.Record)) Option {
	return func(c *Client) {
		c.onLeadCapture = fn
	}
}
