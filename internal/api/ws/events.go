package ws

import (
	"encoding/json"

	"github.com/talking/chat-server/internal/core/ports"
)

// envelope is the JSON frame exchanged on the chat namespace:
//
//	{"event": "personal-message", "data": {...}}
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type personalPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (p personalPayload) input() ports.PersonalMessageInput {
	return ports.PersonalMessageInput{From: p.From, To: p.To, Text: p.Text}
}

func encodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

// broadcastPayload decodes the data of a send-message event. A missing or
// null payload becomes an empty object; anything but an object is refused.
func broadcastPayload(raw json.RawMessage) (map[string]any, error) {
	payload := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}
