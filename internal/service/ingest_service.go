package service

import (
	"context"
	"encoding/json"
	"fmt"

	"accident-advisor-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IIngestService interface {
	Enqueue(ctx context.Context, payload *dto.PublishIngestDocumentMessage) error
}

type ingestService struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewIngestService(pubSub *gochannel.GoChannel, topicName string) IIngestService {
	return &ingestService{
		pubSub:    pubSub,
		topicName: topicName,
	}
}

func (is *ingestService) Enqueue(ctx context.Context, payload *dto.PublishIngestDocumentMessage) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ingest payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	return is.pubSub.Publish(is.topicName, msg)
}
