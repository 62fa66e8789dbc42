// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

//go:build nats

package events

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/indexing"
)

func startEmbeddedNATS(t *testing.T) string {
	t.Helper()
	srv, err := NewEmbeddedServer(&config.NATSConfig{
		EmbeddedHost: "127.0.0.1",
		EmbeddedPort: -1,
		StoreDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return srv.ClientURL()
}

func TestStreamName(t *testing.T) {
	tests := map[string]string{
		"paycorridor.runs": "PAYCORRIDOR_RUNS",
		"events":           "EVENTS",
		"a.b.>":            "A_B_",
	}
	for in, want := range tests {
		if got := StreamName(in); got != want {
			t.Errorf("StreamName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNATSPublisher_PublishesAndDeduplicates(t *testing.T) {
	url := startEmbeddedNATS(t)
	cfg := &config.NATSConfig{Enabled: true, URL: url, Subject: "paycorridor.runs"}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = p.Close() }()

	ctx := context.Background()
	e := FromIngestion(&indexing.RunReport{RunID: "run-42", JobName: "payments", Inserted: 5}, nil, "schedule")
	for i := 0; i < 2; i++ {
		if err := p.Publish(ctx, e); err != nil {
			t.Fatalf("Publish() #%d error = %v", i, err)
		}
	}

	nc, err := natsgo.Connect(url)
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := js.Stream(ctx, StreamName(cfg.Subject))
	if err != nil {
		t.Fatalf("stream missing: %v", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.State.Msgs != 1 {
		t.Errorf("stream holds %d messages, want 1 after duplicate publish", info.State.Msgs)
	}

	msg, err := stream.GetLastMsgForSubject(ctx, "paycorridor.runs.ingestion")
	if err != nil {
		t.Fatalf("GetLastMsgForSubject() error = %v", err)
	}
	var got RunEvent
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.EventID != "run-42" || got.Counts["inserted"] != 5 {
		t.Errorf("decoded event = %+v", got)
	}
}

func TestNATSPublisher_ClosedRejectsPublish(t *testing.T) {
	url := startEmbeddedNATS(t)
	p, err := NewNATSPublisher(&config.NATSConfig{Enabled: true, URL: url, Subject: "paycorridor.runs"})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := p.Publish(context.Background(), &RunEvent{EventID: "x", Type: TypeIngestion}); err == nil {
		t.Error("Publish() after Close() should fail")
	}
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	if _, err := NewNATSPublisher(&config.NATSConfig{Enabled: true, URL: "nats://127.0.0.1:1", Subject: "paycorridor.runs"}); err == nil {
		t.Error("expected connection error")
	}
}
