package delivery

import (
	"context"
	"fmt"
	"log"
	"net/url"

	svix "github.com/svix/svix-webhooks/go"
	"github.com/svix/svix-webhooks/go/models"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/pipeline"
)

// SvixBackend routes generic webhooks through a hosted delivery service, one
// application per pipeline. When it errors, the dispatcher falls back to the
// direct POST path.
type SvixBackend struct {
	client *svix.Svix
}

// NewSvixBackend creates the backend. An empty serverURL uses the default
// cloud endpoint.
func NewSvixBackend(authToken, serverURL string) (*SvixBackend, error) {
	var opts *svix.SvixOptions
	if serverURL != "" {
		u, err := url.Parse(serverURL)
		if err != nil {
			return nil, fmt.Errorf("parse svix server url: %w", err)
		}
		opts = &svix.SvixOptions{ServerUrl: u}
	}
	client, err := svix.New(authToken, opts)
	if err != nil {
		return nil, fmt.Errorf("create svix client: %w", err)
	}
	return &SvixBackend{client: client}, nil
}

// EnsurePipeline gets or creates the application for a pipeline (uid = the
// pipeline ID) and creates an endpoint for its webhook URL. The endpoint is
// created on every call; existing endpoints are not looked up or reused.
func (s *SvixBackend) EnsurePipeline(ctx context.Context, p *pipeline.Pipeline) error {
	uid := p.ID
	app, err := s.client.Application.GetOrCreate(ctx, models.ApplicationIn{
		Name: p.Name,
		Uid:  &uid,
	}, nil)
	if err != nil {
		return fmt.Errorf("svix create application: %w", err)
	}
	if p.Destinations.Webhook == nil || p.Destinations.Webhook.URL == "" {
		return nil
	}
	ep, err := s.client.Endpoint.Create(ctx, app.Id, models.EndpointIn{
		Url: p.Destinations.Webhook.URL,
	}, nil)
	if err != nil {
		return fmt.Errorf("svix create endpoint: %w", err)
	}
	log.Printf("[svix] endpoint ready: id=%s pipeline=%s", ep.Id, p.ID)
	return nil
}

// Send dispatches one output record through the pipeline's application.
func (s *SvixBackend) Send(ctx context.Context, out *events.OutputRecord, cfg *pipeline.WebhookDestination) error {
	payload := make(map[string]any, len(out.Data)+1)
	for k, v := range out.Data {
		payload[k] = v
	}
	payload["_meta"] = map[string]any{
		"pipelineId": out.PipelineID,
		"eventId":    out.ID,
		"timestamp":  out.Timestamp,
	}

	msg, err := s.client.Message.Create(ctx, out.PipelineID, models.MessageIn{
		EventType: "pipeline.output",
		Payload:   payload,
	}, nil)
	if err != nil {
		return fmt.Errorf("svix send message: %w", err)
	}
	log.Printf("[svix] message sent: id=%s pipeline=%s", msg.Id, out.PipelineID)
	return nil
}
