// Package mqtt mirrors sig updates onto an MQTT topic tree so external
// monitoring can follow room state without speaking the fusion protocol.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/avbuild/roomsync/internal/pkg/fusion"
)

type service struct {
	client paho_mqtt.Client
}

func New(client paho_mqtt.Client) *service {
	return &service{
		client: client,
	}
}

func (s *service) Connect() error {
	token := s.client.Connect()
	if token.WaitTimeout(time.Second * 5) {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

func (s *service) Publish(_ context.Context, u fusion.Update) error {
	topic := fmt.Sprintf("roomsync/%s/%s/state", u.Room, u.Slug)
	payload, err := json.Marshal(map[string]string{
		"value":  u.Value,
		"kind":   string(u.Kind),
		"offset": fmt.Sprintf("%d", u.Offset),
	})
	if err != nil {
		return err
	}
	token := s.client.Publish(topic, 0, true, payload)
	if token.WaitTimeout(time.Second * 10) {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}
