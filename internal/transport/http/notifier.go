package http

import (
	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/metrics"
	"github.com/gamelink/gamelink-server/internal/presence"
	"github.com/gamelink/gamelink-server/internal/proto"
	"github.com/gamelink/gamelink-server/internal/store"
)

// PushNotifier implements messaging.Notifier over the presence registry. It
// is at-most-once: an offline receiver or a full event buffer drops the push
// and the persisted message remains the durable record.
type PushNotifier struct {
	registry *presence.Registry
	metrics  *metrics.Metrics
	log      *zerolog.Logger
}

// NewPushNotifier creates a push notifier.
func NewPushNotifier(registry *presence.Registry, mets *metrics.Metrics, logger *zerolog.Logger) *PushNotifier {
	return &PushNotifier{
		registry: registry,
		metrics:  mets,
		log:      logger,
	}
}

// NotifyNewMessage pushes the message to the receiver's connection if one is
// registered. Never blocks, never fails the send.
func (n *PushNotifier) NotifyNewMessage(receiverID int64, msg *store.Message) {
	if n.metrics != nil {
		n.metrics.MessagesSent.Inc()
	}

	conn := n.registry.Resolve(receiverID)
	if conn == nil {
		if n.metrics != nil {
			n.metrics.PushesSkipped.Inc()
		}
		n.log.Debug().Int64("receiver_id", receiverID).Msg("receiver offline, push skipped")
		return
	}

	if conn.TryPush(proto.NewMessageEvent(messageToWire(msg))) {
		if n.metrics != nil {
			n.metrics.PushesDelivered.Inc()
		}
		return
	}

	if n.metrics != nil {
		n.metrics.PushesSkipped.Inc()
	}
	n.log.Warn().Int64("receiver_id", receiverID).Str("message_id", msg.ID).Msg("push dropped, slow consumer")
}
