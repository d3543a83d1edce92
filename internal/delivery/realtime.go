package delivery

import (
	"encoding/json"
	"fmt"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/realtime"
)

// deliverRealtime broadcasts the output on the pipeline's room. Best-effort:
// slow subscribers drop, and a missing bus reports failure.
func (d *Dispatcher) deliverRealtime(out *events.OutputRecord) error {
	if d.hub == nil {
		return fmt.Errorf("realtime bus not initialized")
	}

	payload := make(map[string]any, len(out.Data)+6)
	for k, v := range out.Data {
		payload[k] = v
	}
	payload["id"] = out.ID
	payload["signature"] = out.Signature
	payload["timestamp"] = out.Timestamp
	payload["program"] = string(out.Program)
	payload["pipelineId"] = out.PipelineID

	msg, err := json.Marshal(map[string]any{
		"type":    "event",
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("marshal realtime payload: %w", err)
	}

	d.hub.Broadcast(realtime.RoomForPipeline(out.PipelineID), msg)
	return nil
}
