package mqx

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"configtree/internal/logx"
)

var mqLogger = logx.GetScope("mq")

// Routing keys for document events.
const (
	KeySchemaSaved = "schema.saved"
	KeyConfigSaved = "config.saved"
)

// SavedEvent announces that a document was written to disk.
type SavedEvent struct {
	Kind      string    `json:"kind"` // schema | config
	Session   string    `json:"session"`
	File      string    `json:"file"`
	Name      string    `json:"name"`
	Version   string    `json:"version,omitempty"`
	Items     int       `json:"items"`
	Operator  string    `json:"operator,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Events publishes SavedEvents. A nil Publisher turns it into a no-op.
type Events struct {
	pub Publisher
}

func NewEvents(pub Publisher) *Events { return &Events{pub: pub} }

// Saved publishes ev under the routing key for its kind. Failures are logged
// and returned; a failed publish never undoes the save.
func (e *Events) Saved(ctx context.Context, ev SavedEvent) error {
	if e == nil || e.pub == nil {
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	key := KeyConfigSaved
	if ev.Kind == "schema" {
		key = KeySchemaSaved
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := e.pub.Publish(ctx, key, body); err != nil {
		mqLogger.Warn("publish failed", zap.String("key", key), zap.String("file", ev.File), zap.Error(err))
		return err
	}
	return nil
}
