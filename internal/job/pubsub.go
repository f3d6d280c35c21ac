package job

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	DriverMemory = "memory"
	DriverKafka  = "kafka"
)

// Durable reports whether queued messages of driver outlive the process.
func Durable(driver string) bool {
	return driver == DriverKafka
}

type PubSubOptions struct {
	Driver        string
	Brokers       []string
	ConsumerGroup string
	Logger        *slog.Logger
}

// PubSub bundles the publisher and subscriber of one transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

func (p *PubSub) Close() error {
	if err := p.Publisher.Close(); err != nil {
		return err
	}

	return p.Subscriber.Close()
}

// NewPubSub builds the transport named by opts.Driver. The memory driver keeps
// messages in process and only suits a single instance.
func NewPubSub(opts PubSubOptions) (*PubSub, error) {
	logger := watermillLogger(opts.Logger)

	switch opts.Driver {
	case DriverMemory, "":
		ch := gochannel.NewGoChannel(gochannel.Config{
			Persistent:          true,
			OutputChannelBuffer: 100,
		}, logger)

		return &PubSub{Publisher: ch, Subscriber: noopClose{ch}}, nil
	case DriverKafka:
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   opts.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}

		subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:       opts.Brokers,
			ConsumerGroup: opts.ConsumerGroup,
			Unmarshaler:   kafka.DefaultMarshaler{},
		}, logger)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("creating kafka subscriber: %w", err)
		}

		return &PubSub{Publisher: publisher, Subscriber: subscriber}, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", opts.Driver)
	}
}

// noopClose lets the publisher own the shared gochannel.
type noopClose struct {
	message.Subscriber
}

func (noopClose) Close() error { return nil }

func watermillLogger(l *slog.Logger) watermill.LoggerAdapter {
	if l == nil {
		l = slog.Default()
	}

	return watermill.NewSlogLogger(l.With("component", "queue"))
}
