package gcp

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/knoxfield/corpusflow/internal/platform/envutil"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

// Document extracts structured text and layout from digital documents
// through Document AI.
type Document interface {
	ProcessBytes(ctx context.Context, mimeType string, data []byte) (string, error)
	Close() error
}

type documentService struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
}

func NewDocument(log *logger.Logger) (Document, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	project := envutil.Str("DOCAI_PROJECT_ID", "")
	location := envutil.Str("DOCAI_LOCATION", "us")
	processorID := envutil.Str("DOCAI_PROCESSOR_ID", "")
	if project == "" || processorID == "" {
		return nil, fmt.Errorf("DOCAI_PROJECT_ID and DOCAI_PROCESSOR_ID are required")
	}

	client, err := documentai.NewDocumentProcessorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	return &documentService{
		log:       log.With("service", "gcp.Document"),
		client:    client,
		processor: fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID),
	}, nil
}

func (s *documentService) ProcessBytes(ctx context.Context, mimeType string, data []byte) (string, error) {
	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("documentai process: %w", err)
	}
	return resp.GetDocument().GetText(), nil
}

func (s *documentService) Close() error { return s.client.Close() }
