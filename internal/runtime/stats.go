package runtime

import "sync/atomic"

// Stats holds the process-wide counters. All increments are atomic; Snapshot
// is a consistent-enough read for reporting.
type Stats struct {
	EventsProcessed atomic.Uint64
	EventsMatched   atomic.Uint64
	EventsFiltered  atomic.Uint64
	Errors          atomic.Uint64

	DiscordOK    atomic.Uint64
	DiscordFail  atomic.Uint64
	TelegramOK   atomic.Uint64
	TelegramFail atomic.Uint64
	WebhookOK    atomic.Uint64
	WebhookFail  atomic.Uint64
	RealtimeOK   atomic.Uint64
	RealtimeFail atomic.Uint64
}

// DestinationStats is one destination's success/failure tally.
type DestinationStats struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

// Snapshot is the JSON view served by the control plane.
type Snapshot struct {
	EventsProcessed uint64                      `json:"events_processed"`
	EventsMatched   uint64                      `json:"events_matched"`
	EventsFiltered  uint64                      `json:"events_filtered"`
	Errors          uint64                      `json:"errors"`
	Destinations    map[string]DestinationStats `json:"destinations"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		EventsProcessed: s.EventsProcessed.Load(),
		EventsMatched:   s.EventsMatched.Load(),
		EventsFiltered:  s.EventsFiltered.Load(),
		Errors:          s.Errors.Load(),
		Destinations: map[string]DestinationStats{
			"discord":  {s.DiscordOK.Load(), s.DiscordFail.Load()},
			"telegram": {s.TelegramOK.Load(), s.TelegramFail.Load()},
			"webhook":  {s.WebhookOK.Load(), s.WebhookFail.Load()},
			"realtime": {s.RealtimeOK.Load(), s.RealtimeFail.Load()},
		},
	}
}

// countDelivery records one destination result.
func (s *Stats) countDelivery(tag string, success bool) {
	var ok, fail *atomic.Uint64
	switch tag {
	case "discord":
		ok, fail = &s.DiscordOK, &s.DiscordFail
	case "telegram":
		ok, fail = &s.TelegramOK, &s.TelegramFail
	case "webhook":
		ok, fail = &s.WebhookOK, &s.WebhookFail
	case "realtime":
		ok, fail = &s.RealtimeOK, &s.RealtimeFail
	default:
		return
	}
	if success {
		ok.Add(1)
	} else {
		fail.Add(1)
	}
}
