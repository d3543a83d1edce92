package pipeline

import (
	"fmt"
	"time"

	"tada-pipeline/internal/programs"
)

// Status gates processing: only active pipelines see events.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusError  Status = "error"
)

// Pipeline is a user-defined tuple of programs, filter, transform, and
// destinations. The id is opaque; the owning API key scopes control-plane
// access.
type Pipeline struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	APIKey       string        `json:"-"`
	Programs     []programs.ID `json:"programs"`
	Filter       Filter        `json:"filter"`
	Transform    Transform     `json:"transform"`
	Destinations Destinations  `json:"destinations"`
	Status       Status        `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Validate enforces the upsert invariants: at least one program, every
// program known, and at least one enabled destination.
func (p *Pipeline) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("pipeline id is empty")
	}
	if len(p.Programs) == 0 {
		return fmt.Errorf("pipeline %s: programs is empty", p.ID)
	}
	for _, id := range p.Programs {
		if !programs.IsKnown(id) {
			return fmt.Errorf("pipeline %s: unknown program %q", p.ID, id)
		}
	}
	if !p.Destinations.AnyEnabled() {
		return fmt.Errorf("pipeline %s: no enabled destination", p.ID)
	}
	switch p.Status {
	case StatusActive, StatusPaused, StatusError, "":
	default:
		return fmt.Errorf("pipeline %s: invalid status %q", p.ID, p.Status)
	}
	return nil
}

// Range bounds a numeric convenience predicate. Nil ends are unbounded.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// AccountFilter constrains the account set collected from an event.
type AccountFilter struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Condition is one {field, op, value} triple with a dotted field path into
// the event.
type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Filter is the recursive declarative predicate. All set convenience fields
// AND together; $and/$or take precedence over everything else when present.
// The zero value matches every event.
type Filter struct {
	And []Filter `json:"$and,omitempty"`
	Or  []Filter `json:"$or,omitempty"`

	Instructions []string `json:"instructions,omitempty"`
	Mints        []string `json:"mints,omitempty"`
	Wallets      []string `json:"wallets,omitempty"`
	IsBuy        *bool    `json:"isBuy,omitempty"`
	SolAmount    *Range   `json:"solAmount,omitempty"`
	TokenAmount  *Range   `json:"tokenAmount,omitempty"`

	Accounts   *AccountFilter `json:"accounts,omitempty"`
	Conditions []Condition    `json:"conditions,omitempty"`

	// Code is a reserved escape hatch; the runtime treats it as match-all.
	Code string `json:"code,omitempty"`
}

// IsEmpty reports whether no predicate is set.
func (f *Filter) IsEmpty() bool {
	return len(f.And) == 0 && len(f.Or) == 0 &&
		len(f.Instructions) == 0 && len(f.Mints) == 0 && len(f.Wallets) == 0 &&
		f.IsBuy == nil && f.SolAmount == nil && f.TokenAmount == nil &&
		f.Accounts == nil && len(f.Conditions) == 0
}

// FieldMapping maps one dotted source path to a target key, optionally
// through a named pipe.
type FieldMapping struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Pipe   string `json:"pipe,omitempty"`
}

// Transform templates.
const (
	TemplateRaw       = "raw"
	TemplateTrade     = "trade"
	TemplateTransfer  = "transfer"
	TemplateMigration = "migration"
)

// Transform selects how a matched event becomes an output record: a named
// template, an explicit field mapping, or the reserved code escape hatch
// (treated as raw).
type Transform struct {
	Template string         `json:"template,omitempty"`
	Fields   []FieldMapping `json:"fields,omitempty"`
	Code     string         `json:"code,omitempty"`
}

// Destinations bundles the enabled delivery sinks of a pipeline.
type Destinations struct {
	Discord  *DiscordDestination  `json:"discord,omitempty"`
	Telegram *TelegramDestination `json:"telegram,omitempty"`
	Webhook  *WebhookDestination  `json:"webhook,omitempty"`
	Realtime *RealtimeDestination `json:"realtime,omitempty"`
}

// AnyEnabled reports whether at least one destination is enabled.
func (d *Destinations) AnyEnabled() bool {
	return (d.Discord != nil && d.Discord.Enabled) ||
		(d.Telegram != nil && d.Telegram.Enabled) ||
		(d.Webhook != nil && d.Webhook.Enabled) ||
		(d.Realtime != nil && d.Realtime.Enabled)
}

// DiscordDestination posts an embed or plain text to a chat webhook URL.
type DiscordDestination struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
	Format     string `json:"format,omitempty"` // "embed" (default) or "text"
}

// TelegramDestination pushes through the bot sendMessage endpoint.
type TelegramDestination struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChatID    string `json:"chat_id"`
	ParseMode string `json:"parse_mode,omitempty"` // Markdown, HTML, or "" for plain
}

// WebhookDestination posts signed JSON to a caller-controlled endpoint with
// retry.
type WebhookDestination struct {
	Enabled         bool              `json:"enabled"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers,omitempty"`
	Secret          string            `json:"secret,omitempty"`
	SignatureHeader string            `json:"signature_header,omitempty"` // default X-Tada-Signature
	Attempts        int               `json:"attempts,omitempty"`         // default 3
	Backoff         string            `json:"backoff,omitempty"`          // "linear" (default) or "exponential"
	RatePerSecond   float64           `json:"rate_per_second,omitempty"`  // 0 = unlimited
}

// RealtimeDestination broadcasts on the in-process pub/sub bus.
type RealtimeDestination struct {
	Enabled bool `json:"enabled"`
}
