package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"accident-advisor-be/internal/config"
	"accident-advisor-be/internal/dto"
	"accident-advisor-be/internal/entity"
	"accident-advisor-be/internal/repository/unitofwork"
	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/database"
	"accident-advisor-be/pkg/embedding"
	"accident-advisor-be/pkg/utils"

	"github.com/google/uuid"
)

// Loads a JSONL corpus of precedents, statutes and terminology into the
// vector store. One dto.PublishIngestDocumentMessage per line.
func main() {
	corpusPath := flag.String("file", "", "path to JSONL corpus file")
	flag.Parse()

	if *corpusPath == "" {
		log.Fatal("Error: -file is required")
	}

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	uowFactory := unitofwork.NewRepositoryFactory(db)

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDimensions)
	} else {
		embeddingProvider = embedding.NewOpenAIProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.EmbeddingModel)
	}

	file, err := os.Open(*corpusPath)
	if err != nil {
		log.Fatal("Error: Failed to open corpus file:", err)
	}
	defer file.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	line, ingested, skipped := 0, 0, 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var payload dto.PublishIngestDocumentMessage
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Printf("Warn: line %d: invalid JSON, skipping: %v", line, err)
			skipped++
			continue
		}
		if payload.Content == "" || !validCollection(payload.Collection) {
			log.Printf("Warn: line %d: missing content or unknown collection %q, skipping", line, payload.Collection)
			skipped++
			continue
		}

		n, err := ingestDocument(ctx, uowFactory, embeddingProvider, &payload)
		if err != nil {
			log.Fatalf("Error: line %d: %v", line, err)
		}
		ingested += n
	}
	if err := scanner.Err(); err != nil {
		log.Fatal("Error: Failed to read corpus file:", err)
	}

	log.Printf("✅ Success: Ingested %d chunks from %d lines (%d skipped).", ingested, line, skipped)
}

func ingestDocument(
	ctx context.Context,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	payload *dto.PublishIngestDocumentMessage,
) (int, error) {
	chunks := utils.SplitText(payload.Content, 1500, 200)

	var documents []*entity.Document
	for _, chunk := range chunks {
		vector, err := embeddingProvider.Generate(ctx, chunk)
		if err != nil {
			return 0, err
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

	uow := uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().CreateBulk(ctx, documents); err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return len(documents), nil
}

func validCollection(collection string) bool {
	for _, cat := range category.All() {
		if cat.Collection() == collection {
			return true
		}
	}
	return false
}
