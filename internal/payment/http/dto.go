package http

import "encoding/json"

// WebhookEnvelope is the gateway's notification body: {type, action, data: {id}}.
type WebhookEnvelope struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}
