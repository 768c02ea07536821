package realtime

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

// Applier is what push messages are reconciled into.
type Applier interface {
	ApplyTaskUpdate(u model.TaskUpdate)
	ApplyNotification(n model.Notification)
}

// Bridge decodes push messages and hands them to an Applier. Bodies that do
// not decode are logged and dropped; the connection is unaffected.
type Bridge struct {
	logger  *zap.Logger
	applier Applier
	stops   []func()
}

func NewBridge(logger *zap.Logger, c *Client, a Applier) *Bridge {
	b := &Bridge{logger: logger, applier: a}
	b.stops = append(b.stops,
		c.Handle(TaskUpdates, b.taskUpdate),
		c.Handle(Notifications, b.notification),
	)
	return b
}

// Close detaches the bridge from the client.
func (b *Bridge) Close() {
	for _, stop := range b.stops {
		stop()
	}
}

func (b *Bridge) taskUpdate(body []byte) {
	var u model.TaskUpdate
	if err := json.Unmarshal(body, &u); err != nil {
		b.logger.Warn("malformed task update", zap.Error(err), zap.ByteString("body", body))
		return
	}
	b.applier.ApplyTaskUpdate(u)
}

func (b *Bridge) notification(body []byte) {
	var n model.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		b.logger.Warn("malformed notification", zap.Error(err), zap.ByteString("body", body))
		return
	}
	b.applier.ApplyNotification(n)
}
