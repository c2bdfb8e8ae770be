package iot

import (
	"context"
	"encoding/json"
	"fmt"

	"smart_parking_lot/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"go.uber.org/zap"
)

const barrierTopicPrefix = "smart_parking/command/barriers/"

// DataPlanePublisher is the part of the IoT Data Plane client we use.
type DataPlanePublisher interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// BarrierCommander publishes barrier commands over MQTT.
type BarrierCommander struct {
	client DataPlanePublisher
	logger *zap.Logger
}

func NewBarrierCommander(client DataPlanePublisher, logger *zap.Logger) *BarrierCommander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BarrierCommander{client: client, logger: logger}
}

func BarrierTopic(gateID string) string {
	return barrierTopicPrefix + gateID
}

func (b *BarrierCommander) SendBarrierCommand(ctx context.Context, gateID string, cmd domain.BarrierControlCommandPayload) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal barrier command: %w", err)
	}

	topic := BarrierTopic(gateID)
	_, err = b.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	b.logger.Info("Barrier command sent",
		zap.String("topic", topic),
		zap.String("command", cmd.Command),
		zap.String("request_id", cmd.RequestID),
	)
	return nil
}
