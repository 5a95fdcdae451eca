package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Event is one entry of the build log. Seq is assigned by the store and is
// zero until the event has been read back.
type Event struct {
	Seq      int64             `json:"seq"`
	BuildID  string            `json:"build_id"`
	Type     string            `json:"type"`
	At       time.Time         `json:"at"`
	Payload  json.RawMessage   `json:"payload"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.WrapError(err, errors.CategoryEventStore, "decode "+e.Type+" payload").
			WithContext("build_id", e.BuildID).
			WithContext("seq", e.Seq).
			Build()
	}
	return nil
}

func newEvent(buildID, eventType string, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, errors.EventStoreError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("build_id", buildID).
			Build()
	}
	return Event{BuildID: buildID, Type: eventType, At: at, Payload: data}, nil
}
