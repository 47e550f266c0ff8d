package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/minerva-brain/backend/internal/config"
	"github.com/minerva-brain/backend/internal/models"
)

// MQTTSender pushes notifications to the display over the local broker.
// The ESP32 subscribes to <prefix>/notify and renders the text.
type MQTTSender struct {
	client MQTT.Client
	topic  string
}

// NewMQTTSender connects to the broker from the notify settings. Returns
// nil when no broker is configured, which disables the esp32 channel.
func NewMQTTSender(cfg config.NotifyConfig) *MQTTSender {
	if cfg.MqttBroker == "" {
		return nil
	}
	fmt.Printf("[Notify] Using MQTT broker: %s\n", cfg.MqttBroker)

	opts := MQTT.NewClientOptions()
	opts.AddBroker(cfg.MqttBroker)
	opts.SetClientID(cfg.MqttClientID)
	// CleanSession avoids a queued message backlog on restart
	opts.SetCleanSession(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.OnConnect = func(c MQTT.Client) {
		fmt.Println("[Notify] Connected to MQTT broker")
	}

	client := MQTT.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		fmt.Printf("[Notify] MQTT connect error: %v\n", token.Error())
	}

	return &MQTTSender{
		client: client,
		topic:  cfg.MqttTopicPrefix + "/notify",
	}
}

// Send publishes the event payload as JSON with QoS 1.
func (s *MQTTSender) Send(ctx context.Context, evt *models.NotificationEvent) error {
	if s.client == nil || !s.client.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := s.client.Publish(s.topic, 1, false, data)
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("publish timeout to %s", s.topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSender) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
