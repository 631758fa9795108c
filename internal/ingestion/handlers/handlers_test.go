package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

type fakeDocument struct {
	text string
	err  error
}

func (d *fakeDocument) ProcessBytes(ctx context.Context, mimeType string, data []byte) (string, error) {
	return d.text, d.err
}

func (d *fakeDocument) Close() error { return nil }

type fakeVision struct {
	text string
	err  error
}

func (v *fakeVision) OCRImageBytes(ctx context.Context, data []byte) (string, error) {
	return v.text, v.err
}

func (v *fakeVision) OCRPDFBytes(ctx context.Context, data []byte) (string, error) {
	return v.text, v.err
}

func (v *fakeVision) Close() error { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func drain(t *testing.T, seq types.PhaseSeq) ([]types.PhaseEvent, error) {
	t.Helper()
	var out []types.PhaseEvent
	for ev, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func wantMilestones(t *testing.T, events []types.PhaseEvent) {
	t.Helper()
	if len(events) != 2 ||
		events[0].Name != types.PhaseParsingComplete ||
		events[1].Name != types.PhaseIndexingComplete {
		t.Fatalf("expected parsing_complete then indexing_complete, got %v", events)
	}
}

func textRequest(content string) Request {
	return Request{RecordID: uuid.New(), Content: []byte(content)}
}

func TestPlainTextHandler(t *testing.T) {
	h := NewPlainTextHandler(testLogger(t))

	events, err := drain(t, h.Extract(context.Background(), textRequest("meeting notes")))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	wantMilestones(t, events)

	events, err = drain(t, h.Extract(context.Background(), textRequest("  \n\t ")))
	if err != nil {
		t.Fatalf("extract blank: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("blank content must yield no events, got %v", events)
	}
}

func TestPlainTextHandlerCancelledContext(t *testing.T) {
	h := NewPlainTextHandler(testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := drain(t, h.Extract(ctx, textRequest("content")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestDelimitedHandler(t *testing.T) {
	h := NewDelimitedHandler(testLogger(t))

	t.Run("csv_rows", func(t *testing.T) {
		events, err := drain(t, h.Extract(context.Background(), textRequest("a,b,c\n1,2,3\n")))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		wantMilestones(t, events)
	})

	t.Run("tsv_rows", func(t *testing.T) {
		req := textRequest("a\tb\n1\t2\n")
		req.Extension = "tsv"
		events, err := drain(t, h.Extract(context.Background(), req))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		wantMilestones(t, events)
	})

	t.Run("empty", func(t *testing.T) {
		events, err := drain(t, h.Extract(context.Background(), textRequest("")))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("empty file must yield no events, got %v", events)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := drain(t, h.Extract(context.Background(), textRequest("\"unterminated")))
		if err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestTableSnapshotHandler(t *testing.T) {
	h := NewTableSnapshotHandler(testLogger(t))

	t.Run("rows", func(t *testing.T) {
		events, err := drain(t, h.Extract(context.Background(), textRequest(`{"rows":[{"id":1},{"id":2}]}`)))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		wantMilestones(t, events)
	})

	t.Run("no_rows", func(t *testing.T) {
		events, err := drain(t, h.Extract(context.Background(), textRequest(`{"rows":[]}`)))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("empty snapshot must yield no events, got %v", events)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := drain(t, h.Extract(context.Background(), textRequest(`{"rows":`)))
		if err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestWebHandler(t *testing.T) {
	h := NewWebHandler(testLogger(t))

	t.Run("visible_text", func(t *testing.T) {
		events, err := drain(t, h.Extract(context.Background(),
			textRequest(`<html><body><p>release notes</p></body></html>`)))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		wantMilestones(t, events)
	})

	t.Run("script_only", func(t *testing.T) {
		events, err := drain(t, h.Extract(context.Background(),
			textRequest(`<html><head><script>var x = 1;</script><style>p{}</style></head><body></body></html>`)))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("script and style text is not visible text, got %v", events)
		}
	})
}

func TestStructuredPDFHandlerSignalsFallback(t *testing.T) {
	recordID := uuid.New()
	req := Request{RecordID: recordID, Content: []byte("pdf bytes")}

	t.Run("processor_error", func(t *testing.T) {
		h := NewStructuredPDFHandler(&fakeDocument{err: errors.New("layout parse failed")}, testLogger(t))
		events, err := drain(t, h.Extract(context.Background(), req))
		if err != nil {
			t.Fatalf("processor failure must be in-band, got stream error %v", err)
		}
		if len(events) != 1 || events[0].Name != types.PhaseHandlerFailed {
			t.Fatalf("expected single handler_failed event, got %v", events)
		}
		if events[0].RecordID != recordID {
			t.Fatal("handler_failed must carry the record id")
		}
	})

	t.Run("no_client", func(t *testing.T) {
		h := NewStructuredPDFHandler(nil, testLogger(t))
		events, err := drain(t, h.Extract(context.Background(), req))
		if err != nil {
			t.Fatalf("missing client must be in-band, got stream error %v", err)
		}
		if len(events) != 1 || events[0].Name != types.PhaseHandlerFailed {
			t.Fatalf("expected single handler_failed event, got %v", events)
		}
	})

	t.Run("success", func(t *testing.T) {
		h := NewStructuredPDFHandler(&fakeDocument{text: "extracted text"}, testLogger(t))
		events, err := drain(t, h.Extract(context.Background(), req))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		wantMilestones(t, events)
	})

	t.Run("empty_text", func(t *testing.T) {
		h := NewStructuredPDFHandler(&fakeDocument{text: "  "}, testLogger(t))
		events, err := drain(t, h.Extract(context.Background(), req))
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("blank extraction must yield no events, got %v", events)
		}
	})
}

func TestOCRPDFHandlerErrorsPropagate(t *testing.T) {
	req := Request{RecordID: uuid.New(), Content: []byte("pdf bytes")}

	boom := errors.New("vision backend down")
	h := NewOCRPDFHandler(&fakeVision{err: boom}, testLogger(t))
	_, err := drain(t, h.Extract(context.Background(), req))
	if !errors.Is(err, boom) {
		t.Fatalf("ocr failure must propagate as a stream error, got %v", err)
	}

	h = NewOCRPDFHandler(&fakeVision{text: "scanned text"}, testLogger(t))
	events, err := drain(t, h.Extract(context.Background(), req))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	wantMilestones(t, events)
}

func TestImageHandler(t *testing.T) {
	req := Request{RecordID: uuid.New(), Content: []byte("png bytes")}

	h := NewImageHandler(&fakeVision{text: "whiteboard text"}, testLogger(t))
	events, err := drain(t, h.Extract(context.Background(), req))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	wantMilestones(t, events)

	h = NewImageHandler(&fakeVision{text: ""}, testLogger(t))
	events, err = drain(t, h.Extract(context.Background(), req))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("textless image must yield no events, got %v", events)
	}
}
