// Package ingestbridge feeds MQTT telemetry into the ingestion gateway. It is
// an optional second ingress: points arriving over MQTT go through the same
// validation and distribution as points posted over HTTP.
package ingestbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// Ingestor is the write path the bridge feeds into.
type Ingestor interface {
	IngestVehicleState(ctx context.Context, p telemetry.VehicleStatePoint) (telemetry.StoredVehicleState, error)
	IngestEnvironmental(ctx context.Context, p telemetry.EnvironmentalPoint) (telemetry.StoredEnvironmental, error)
}

// Bridge subscribes to the per-AUV telemetry topics and forwards decoded
// points to the ingestion service.
type Bridge struct {
	cfg      Config
	ingestor Ingestor
	logger   *log.Logger
	client   mqtt.Client
}

// NewBridge constructs a bridge. It does not connect yet.
func NewBridge(cfg Config, ingestor Ingestor, logger *log.Logger) (*Bridge, error) {
	if !cfg.Enabled() {
		return nil, errors.New("ingest bridge: no broker configured")
	}
	if ingestor == nil {
		return nil, errors.New("ingest bridge: nil ingestor")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{cfg: cfg, ingestor: ingestor, logger: logger}, nil
}

// Start connects to the broker and subscribes to both telemetry topics.
func (b *Bridge) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.cfg.ClientID).
		SetConnectTimeout(time.Duration(b.cfg.ConnectTimeout)).
		SetAutoReconnect(true)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("ingest bridge: connect %s: %w", b.cfg.BrokerURL, token.Error())
	}
	b.client = client

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := b.HandleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			b.logger.Printf("ingest bridge: message on %s rejected: %v", msg.Topic(), err)
		}
	}
	for _, topic := range []string{b.cfg.VehicleTopic, b.cfg.EnvironmentalTopic} {
		if token := client.Subscribe(topic, b.cfg.QoS, handler); token.Wait() && token.Error() != nil {
			client.Disconnect(250)
			return fmt.Errorf("ingest bridge: subscribe %s: %w", topic, token.Error())
		}
	}
	b.logger.Printf("ingest bridge: connected to %s", b.cfg.BrokerURL)
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	if b == nil || b.client == nil {
		return
	}
	b.client.Disconnect(250)
}

// HandleMessage decodes one telemetry message and ingests it. The AUV id in
// the topic is authoritative: a payload without auv_id inherits it, a payload
// disagreeing with it is rejected.
func (b *Bridge) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	auvID, kind, err := parseTopic(topic)
	if err != nil {
		return err
	}

	switch kind {
	case telemetry.StreamVehicleState:
		var point telemetry.VehicleStatePoint
		if err := json.Unmarshal(payload, &point); err != nil {
			return fmt.Errorf("decode vehicle-state payload: %w", err)
		}
		if point.AUVID == "" {
			point.AUVID = auvID
		}
		if point.AUVID != auvID {
			return fmt.Errorf("payload auv_id %q disagrees with topic %q", point.AUVID, auvID)
		}
		_, err = b.ingestor.IngestVehicleState(ctx, point)
		return err
	case telemetry.StreamEnvironmental:
		var point telemetry.EnvironmentalPoint
		if err := json.Unmarshal(payload, &point); err != nil {
			return fmt.Errorf("decode environmental payload: %w", err)
		}
		if point.AUVID == "" {
			point.AUVID = auvID
		}
		if point.AUVID != auvID {
			return fmt.Errorf("payload auv_id %q disagrees with topic %q", point.AUVID, auvID)
		}
		_, err = b.ingestor.IngestEnvironmental(ctx, point)
		return err
	default:
		return fmt.Errorf("unknown stream kind %q", kind)
	}
}

// parseTopic splits "auv/{auv_id}/{stream}" into its parts.
func parseTopic(topic string) (string, telemetry.StreamKind, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "auv" || parts[1] == "" {
		return "", "", fmt.Errorf("unroutable topic %q", topic)
	}
	switch parts[2] {
	case "vehicle-state":
		return parts[1], telemetry.StreamVehicleState, nil
	case "environmental":
		return parts[1], telemetry.StreamEnvironmental, nil
	default:
		return "", "", fmt.Errorf("unroutable topic %q", topic)
	}
}
