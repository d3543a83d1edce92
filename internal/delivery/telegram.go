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

// telegramAPIBase is a var so tests can point the adapter at a local server.
var telegramAPIBase = "https://api.telegram.org"

// deliverTelegram pushes a formatted message through the bot sendMessage
// endpoint. Success is any 2xx; no retry.
func (d *Dispatcher) deliverTelegram(ctx context.Context, out *events.OutputRecord, cfg *pipeline.TelegramDestination) error {
	text := formatTelegramText(out, cfg.ParseMode)

	payload := map[string]any{
		"chat_id":                  cfg.ChatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if cfg.ParseMode != "" {
		payload["parse_mode"] = cfg.ParseMode
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram POST: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram API returned %d", resp.StatusCode)
	}
	return nil
}

func formatTelegramText(out *events.OutputRecord, parseMode string) string {
	title := formatOutputTitle(out)
	line := formatChatText(out)

	switch parseMode {
	case "Markdown", "MarkdownV2":
		return fmt.Sprintf("*%s*\n`%s`", title, line)
	case "HTML":
		return fmt.Sprintf("<b>%s</b>\n<code>%s</code>", title, line)
	default:
		return title + "\n" + line
	}
}
