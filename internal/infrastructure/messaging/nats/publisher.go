package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/observability-core/internal/logging"
	"github.com/dreschagin/observability-core/internal/observability"
)

const natsComponent = "nats-publisher"

// EventPublisher relays observability events to NATS JetStream so external
// consumers (dashboards, alerting) can react without polling. It is attached
// to the manager's event bus as a plain listener.
type EventPublisher struct {
	nc          *nats.Conn
	js          nats.JetStreamContext
	logger      *logging.Logger
	subjectBase string
}

// NewEventPublisher connects to NATS with reconnect handling.
func NewEventPublisher(natsURL, subjectBase string, log *logging.Logger) (*EventPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected",
					logging.Context{Component: natsComponent},
					map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected",
				logging.Context{Component: natsComponent},
				map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS",
		logging.Context{Component: natsComponent},
		map[string]interface{}{"url": natsURL})

	return &EventPublisher{
		nc:          nc,
		js:          js,
		logger:      log,
		subjectBase: subjectBase,
	}, nil
}

// HandleEvent is the bus listener: every emitted event goes out on
// "<subjectBase>.<type>", fire-and-forget.
func (p *EventPublisher) HandleEvent(event observability.Event) {
	subject := fmt.Sprintf("%s.%s", p.subjectBase, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			logging.Context{Component: natsComponent},
			map[string]interface{}{"subject": subject}, err)
		return
	}

	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Context{Component: natsComponent},
			map[string]interface{}{"subject": subject}, err)
		return
	}

	p.logger.Debug("Event published",
		logging.Context{Component: natsComponent},
		map[string]interface{}{"subject": subject, "size": len(data)})
}

// Close closes the NATS connection.
func (p *EventPublisher) Close() error {
	if p.nc != nil {
		p.logger.Info("Closing NATS connection",
			logging.Context{Component: natsComponent}, nil)
		p.nc.Close()
	}
	return nil
}
