package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/apache/pulsar-client-go/pulsar"
)

type PulsarOptions struct {
	URL   string
	Topic string
	Name  string
}

type PulsarPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
}

func NewPulsarPublisher(options PulsarOptions) (*PulsarPublisher, error) {
	if options.URL == "" {
		return nil, errors.New("events: pulsar url is empty")
	}

	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: options.URL,
	})
	if err != nil {
		return nil, err
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: options.Topic,
		Name:  options.Name,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return &PulsarPublisher{
		client:   client,
		producer: producer,
	}, nil
}

// Publish sends event keyed by its topic so that events about the same todo
// stay ordered on a partitioned topic.
func (p *PulsarPublisher) Publish(ctx context.Context, event *Event) error {
	if p.producer == nil {
		return errors.New("events: producer not initialized")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Key:     event.Topic,
		Payload: payload,
	})

	return err
}

func (p *PulsarPublisher) Close() {
	if p.producer != nil {
		p.producer.Close()
	}

	p.client.Close()
}
