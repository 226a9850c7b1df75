package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"accident-advisor-be/internal/dto"
	"accident-advisor-be/internal/entity"
	"accident-advisor-be/internal/repository/unitofwork"
	"accident-advisor-be/pkg/embedding"
	"accident-advisor-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService embeds and stores reference documents asynchronously so
// ingestion never blocks the request path.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal ingest message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if payload.Collection == "" || payload.Content == "" {
		log.Printf("[ERROR] Ingest message missing collection or content")
		msg.Ack()
		return
	}

	log.Printf("[INFO] Ingesting document into collection %s (content length: %d)", payload.Collection, len(payload.Content))

	// ChunkSize: 1500 chars, Overlap: 200 chars. Long precedents and
	// statute pages are split so each chunk stays within embedding limits.
	chunks := utils.SplitText(payload.Content, 1500, 200)

	var documents []*entity.Document
	for i, chunk := range chunks {
		vector, err := cs.embeddingProvider.Generate(ctx, chunk)
		if err != nil {
			log.Printf("[ERROR] Failed to generate embedding for chunk %d: %v", i, err)
			msg.Nack() // Nack for retriable errors
			return
		}

		documents = append(documents, &entity.Document{
			Id:         uuid.New(),
			Collection: payload.Collection,
			Content:    chunk,
			Embedding:  vector,
			CaseNumber: payload.CaseNumber,
			Court:      payload.Court,
			Article:    payload.Article,
			Page:       payload.Page,
			CreatedAt:  time.Now(),
		})
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().CreateBulk(ctx, documents); err != nil {
		log.Printf("[ERROR] Failed to store documents: %v", err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Ingested %d chunks into %s", len(documents), payload.Collection)
	msg.Ack()
}
