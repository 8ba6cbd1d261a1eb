package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/config"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

const publishTimeout = 5 * time.Second

// MQTTDeviceControl publishes launcher commands to
// {prefix}/{userID}/{command}.
type MQTTDeviceControl struct {
	client mqtt.Client
	prefix string
	userID string
	qos    byte
	logger *zap.Logger
}

// DialMQTT connects to the configured broker.
func DialMQTT(cfg *config.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

func NewMQTTDeviceControl(client mqtt.Client, prefix, userID string, qos byte, logger *zap.Logger) *MQTTDeviceControl {
	return &MQTTDeviceControl{client: client, prefix: prefix, userID: userID, qos: qos, logger: logger}
}

type deviceCommand struct {
	Command     string           `json:"command"`
	CaregiverID string           `json:"caregiver_id,omitempty"`
	Message     string           `json:"message,omitempty"`
	Contacts    []commandContact `json:"contacts,omitempty"`
	IssuedAt    int64            `json:"issued_at"`
}

type commandContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (d *MQTTDeviceControl) NotifyUser(ctx context.Context, message string) error {
	return d.publish(ctx, "notify", deviceCommand{Command: "notify", Message: message})
}

func (d *MQTTDeviceControl) RestoreRemovedContacts(ctx context.Context, caregiverID string) error {
	return d.publish(ctx, "contacts", deviceCommand{Command: "restore_removed_contacts", CaregiverID: caregiverID})
}

func (d *MQTTDeviceControl) ReenableBlockedApps(ctx context.Context, caregiverID string) error {
	return d.publish(ctx, "apps", deviceCommand{Command: "reenable_blocked_apps", CaregiverID: caregiverID})
}

func (d *MQTTDeviceControl) RevokeFinancialAppAccess(ctx context.Context, caregiverID string) error {
	return d.publish(ctx, "apps", deviceCommand{Command: "revoke_financial_app_access", CaregiverID: caregiverID})
}

func (d *MQTTDeviceControl) TriggerPanicMode(ctx context.Context, reason string, contacts []*models.ProtectedContact) error {
	cmd := deviceCommand{Command: "panic_mode", Message: reason}
	for _, c := range contacts {
		cmd.Contacts = append(cmd.Contacts, commandContact{Name: c.Name, Phone: c.Phone})
	}
	return d.publish(ctx, "sos", cmd)
}

// publish waits for the broker acknowledgement until ctx is done or
// publishTimeout passes.
func (d *MQTTDeviceControl) publish(ctx context.Context, topic string, cmd deviceCommand) error {
	fullTopic := fmt.Sprintf("%s/%s/%s", d.prefix, d.userID, topic)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("not publishing to topic %s: %w", fullTopic, err)
	}

	cmd.IssuedAt = time.Now().Unix()
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal device command: %w", err)
	}

	token := d.client.Publish(fullTopic, d.qos, false, payload)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publishing to topic %s: %w", fullTopic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("timed out publishing to topic %s", fullTopic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", fullTopic, token.Error())
	}

	d.logger.Info("Device command published",
		zap.String("topic", fullTopic),
		zap.String("command", cmd.Command),
	)
	return nil
}
