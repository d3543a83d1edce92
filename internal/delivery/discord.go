package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/pipeline"
)

const embedColor = 0x00C2FF

// deliverDiscord posts an embed (or plain text) built from the output data.
// Success is any 2xx; chat webhooks are not retried.
func (d *Dispatcher) deliverDiscord(ctx context.Context, out *events.OutputRecord, cfg *pipeline.DiscordDestination) error {
	var payload map[string]any
	if cfg.Format == "text" {
		payload = map[string]any{"content": formatChatText(out)}
	} else {
		payload = map[string]any{"embeds": []any{formatDiscordEmbed(out)}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", cfg.WebhookURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned %d", resp.StatusCode)
	}
	return nil
}

func formatDiscordEmbed(out *events.OutputRecord) map[string]any {
	embed := map[string]any{
		"title":       formatOutputTitle(out),
		"description": formatOutputDescription(out),
		"color":       embedColor,
		"footer":      map[string]any{"text": "Tada Pipeline"},
	}

	var fields []map[string]any
	addField := func(name string, value any, inline bool) {
		if value == nil {
			return
		}
		fields = append(fields, map[string]any{
			"name":   name,
			"value":  fmt.Sprintf("`%v`", value),
			"inline": inline,
		})
	}

	switch out.Data["type"] {
	case "trade":
		addField("Direction", out.Data["direction"], true)
		addField("SOL", out.Data["solAmount"], true)
		addField("Token", shortValue(out.Data["token"]), true)
		addField("Trader", shortValue(out.Data["trader"]), true)
	case "migration":
		addField("Token", shortValue(out.Data["token"]), true)
		addField("Pool", shortValue(out.Data["pool"]), true)
		addField("SOL Raised", out.Data["solRaised"], true)
	default:
		addField("Event", out.Data["name"], true)
		addField("Program", string(out.Program), true)
	}
	addField("Signature", shortValue(out.Signature), false)

	if len(fields) > 0 {
		embed["fields"] = fields
	}
	return embed
}

func formatOutputTitle(out *events.OutputRecord) string {
	switch out.Data["type"] {
	case "trade":
		if out.Data["direction"] == "buy" {
			return "🟢 Buy"
		}
		if out.Data["direction"] == "sell" {
			return "🔴 Sell"
		}
		return "🔄 Swap"
	case "transfer":
		return "💸 Transfer"
	case "migration":
		return "🎓 Migration"
	default:
		name, _ := out.Data["name"].(string)
		if name == "" {
			name = "Event"
		}
		return "📡 " + name
	}
}

func formatOutputDescription(out *events.OutputRecord) string {
	switch out.Data["type"] {
	case "trade":
		return fmt.Sprintf("%v SOL on `%s`", orDash(out.Data["solAmount"]), out.Program)
	case "migration":
		return fmt.Sprintf("Token graduated on `%s`", out.Program)
	default:
		j, _ := json.Marshal(out.Data)
		s := string(j)
		if len(s) > 300 {
			s = s[:297] + "..."
		}
		return s
	}
}

// formatChatText renders a single-line plain-text summary shared by the
// Discord text format and the Telegram plain mode.
func formatChatText(out *events.OutputRecord) string {
	switch out.Data["type"] {
	case "trade":
		return fmt.Sprintf("%s %v SOL | token %v | %s",
			orDash(out.Data["direction"]), orDash(out.Data["solAmount"]),
			shortValue(out.Data["token"]), out.Program)
	case "migration":
		return fmt.Sprintf("migration | token %v | pool %v | %s",
			shortValue(out.Data["token"]), shortValue(out.Data["pool"]), out.Program)
	default:
		return fmt.Sprintf("%v | %s | %s", orDash(out.Data["name"]), out.Program, shortValue(out.Signature))
	}
}

func shortValue(v any) any {
	s, ok := v.(string)
	if !ok || len(s) <= 16 {
		return v
	}
	return s[:8] + "..." + s[len(s)-6:]
}

func orDash(v any) any {
	if v == nil {
		return "-"
	}
	return v
}
