package gcp

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

// Vision runs optical text recognition over images and scanned PDFs.
type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte) (string, error)
	OCRPDFBytes(ctx context.Context, data []byte) (string, error)
	Close() error
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	client, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: log.With("service", "gcp.Vision"), client: client}, nil
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte) (string, error) {
	resp, err := s.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{
				Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
			}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision annotate image: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	r := resp.GetResponses()[0]
	if apiErr := r.GetError(); apiErr != nil {
		return "", fmt.Errorf("vision annotate image: %s", apiErr.GetMessage())
	}
	return r.GetFullTextAnnotation().GetText(), nil
}

func (s *visionService) OCRPDFBytes(ctx context.Context, data []byte) (string, error) {
	resp, err := s.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{
				Content:  data,
				MimeType: "application/pdf",
			},
			Features: []*visionpb.Feature{{
				Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
			}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision annotate file: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, page := range resp.GetResponses()[0].GetResponses() {
		if apiErr := page.GetError(); apiErr != nil {
			s.log.Warn("vision page annotation failed", "error", apiErr.GetMessage())
			continue
		}
		b.WriteString(page.GetFullTextAnnotation().GetText())
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (s *visionService) Close() error { return s.client.Close() }
