// Package ingest receives catalog stop updates published by the donation catalog over MQTT.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"donationroute/internal/metrics"
	"donationroute/internal/model"
)

// DefaultTopic carries the tenant id in the second segment.
const DefaultTopic = "catalog/+/stops"

type stopWriter interface {
	UpsertStops(ctx context.Context, tenantID string, stops []model.Stop) (created, updated int, err error)
}

type catalogMessage struct {
	Stops []model.Stop `json:"stops"`
}

type CatalogSubscriber struct {
	// OnUpsert, when set, runs after each stored batch.
	OnUpsert func(tenant string, created, updated int)

	client  mqtt.Client
	store   stopWriter
	topic   string
	timeout time.Duration
}

// Connect dials the broker.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

func NewCatalogSubscriber(client mqtt.Client, store stopWriter, topic string) *CatalogSubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	return &CatalogSubscriber{client: client, store: store, topic: topic, timeout: 5 * time.Second}
}

func (s *CatalogSubscriber) Start() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *CatalogSubscriber) Stop() {
	if s.client == nil {
		return
	}
	s.client.Unsubscribe(s.topic).Wait()
	s.client.Disconnect(250)
}

func (s *CatalogSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	logger := log.WithField("topic", msg.Topic())
	tenant, err := tenantFromTopic(msg.Topic())
	if err != nil {
		metrics.CatalogMessages.WithLabelValues("invalid").Inc()
		logger.WithError(err).Warn("catalog message rejected")
		return
	}
	var raw catalogMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		metrics.CatalogMessages.WithLabelValues("invalid").Inc()
		logger.WithError(err).Warn("invalid catalog message")
		return
	}
	if err := validateCatalogMessage(&raw); err != nil {
		metrics.CatalogMessages.WithLabelValues("invalid").Inc()
		logger.WithError(err).Warn("catalog validation error")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	created, updated, err := s.store.UpsertStops(ctx, tenant, raw.Stops)
	if err != nil {
		metrics.CatalogMessages.WithLabelValues("error").Inc()
		logger.WithError(err).Error("catalog upsert failed")
		return
	}
	metrics.CatalogMessages.WithLabelValues("ok").Inc()
	logger.WithFields(log.Fields{"tenant": tenant, "created": created, "updated": updated}).Debug("catalog upserted")
	if s.OnUpsert != nil {
		s.OnUpsert(tenant, created, updated)
	}
}

func tenantFromTopic(topic string) (string, error) {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("topic %q: expected catalog/<tenant>/stops", topic)
	}
	return parts[1], nil
}

func validateCatalogMessage(msg *catalogMessage) error {
	if len(msg.Stops) == 0 {
		return fmt.Errorf("stops: required")
	}
	for i, st := range msg.Stops {
		if st.ID == "" {
			return fmt.Errorf("stops[%d].id: required", i)
		}
		if st.Quantity < 0 {
			return fmt.Errorf("stops[%d].quantity: must be >= 0", i)
		}
		if st.Status == "" {
			msg.Stops[i].Status = model.StatusActive
		}
	}
	return nil
}
