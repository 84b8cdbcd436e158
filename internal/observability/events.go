package observability

import "time"

// EventEnvelope is the wire shape of a chat screen lifecycle event.
type EventEnvelope struct {
	Service   string      `json:"service"`
	EventName string      `json:"event_name"`
	EmittedAt string      `json:"emitted_at"`
	Payload   interface{} `json:"payload"`
}

// NewScreenEvent stamps the envelope with the service name and emission time.
func NewScreenEvent(name string, payload interface{}) EventEnvelope {
	return EventEnvelope{
		Service:   "community-service",
		EventName: name,
		EmittedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}

// BuildHeaders carries request correlation ids into the broker message.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["x-trace-id"] = traceID
	}
	return headers
}
