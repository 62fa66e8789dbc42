// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

//go:build nats

package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/logging"
)

const streamInitTimeout = 10 * time.Second

// NATSPublisher publishes run events to JetStream through Watermill. Events
// go to "<subject>.<type>", e.g. paycorridor.runs.ingestion.
type NATSPublisher struct {
	publisher message.Publisher
	subject   string

	mu     sync.RWMutex
	closed bool
}

// StreamName derives the JetStream stream name from the subject prefix.
func StreamName(subject string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "*", "", ">", "").Replace(subject))
}

// NewNATSPublisher ensures the stream exists and connects a publisher.
func NewNATSPublisher(cfg *config.NATSConfig) (*NATSPublisher, error) {
	if err := ensureStream(cfg.URL, cfg.Subject); err != nil {
		return nil, err
	}

	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &NATSPublisher{publisher: pub, subject: cfg.Subject}, nil
}

func ensureStream(url, subject string) error {
	nc, err := natsgo.Connect(url, natsgo.Timeout(streamInitTimeout))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), streamInitTimeout)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName(subject),
		Subjects:   []string{subject + ".>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 10 * time.Minute,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", StreamName(subject), err)
	}
	return nil
}

// Publish implements Publisher. The run id doubles as Nats-Msg-Id, so a
// repeated publish of the same run is dropped by JetStream.
func (p *NATSPublisher) Publish(_ context.Context, e *RunEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	data, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, e.EventID)
	msg.Metadata.Set("type", e.Type)
	msg.Metadata.Set("outcome", e.Outcome)

	return p.publisher.Publish(p.subject+"."+e.Type, msg)
}

// Close implements Publisher.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
