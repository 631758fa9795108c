package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knoxfield/corpusflow/internal/ingestion/handlers"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// ErrUnsupportedContentType is fatal: an event whose mime type and
// extension both miss the capability table is never silently skipped.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Sampler estimates the fraction of a PDF's pages that need optical
// recognition.
type Sampler interface {
	OCRFraction(data []byte) (float64, error)
}

// Dispatcher routes a revision to the handler for its content family.
// Routing is a capability table keyed by mime type with an extension
// fallback; adding a family means registering a handler, not touching
// dispatch logic. The PDF family alone carries a secondary classifier
// and a one-shot OCR fallback.
type Dispatcher struct {
	byMime map[string]handlers.Handler
	byExt  map[string]handlers.Handler

	structuredPDF handlers.Handler
	ocrPDF        handlers.Handler

	sampler      Sampler
	ocrThreshold float64
	log          *logger.Logger
}

type Handlers struct {
	Office        handlers.Handler
	Web           handlers.Handler
	PlainText     handlers.Handler
	Delimited     handlers.Handler
	TableSnapshot handlers.Handler
	Image         handlers.Handler
	StructuredPDF handlers.Handler
	OCRPDF        handlers.Handler
}

func New(h Handlers, sampler Sampler, ocrThreshold float64, baseLog *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		byMime:        map[string]handlers.Handler{},
		byExt:         map[string]handlers.Handler{},
		structuredPDF: h.StructuredPDF,
		ocrPDF:        h.OCRPDF,
		sampler:       sampler,
		ocrThreshold:  ocrThreshold,
		log:           baseLog.With("component", "HandlerDispatcher"),
	}

	register := func(handler handlers.Handler, mimes []string, exts []string) {
		for _, m := range mimes {
			d.byMime[m] = handler
		}
		for _, e := range exts {
			d.byExt[e] = handler
		}
	}

	register(h.Office,
		[]string{
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.google-apps.document",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.google-apps.spreadsheet",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/vnd.google-apps.presentation",
		},
		[]string{"doc", "docx", "xls", "xlsx", "ppt", "pptx"})

	register(h.Web,
		[]string{"text/html", "application/xhtml+xml"},
		[]string{"html", "htm"})

	register(h.PlainText,
		[]string{
			"text/plain",
			"text/markdown",
			"application/vnd.corpusflow.ticket+json",
			"application/vnd.corpusflow.project+json",
			"application/vnd.corpusflow.comment+json",
			"application/vnd.corpusflow.wiki+json",
		},
		[]string{"txt", "md"})

	register(h.Delimited,
		[]string{"text/csv", "text/tab-separated-values"},
		[]string{"csv", "tsv"})

	register(h.TableSnapshot,
		[]string{
			"application/json",
			"application/vnd.corpusflow.table-rows+json",
			"application/vnd.corpusflow.datasource+json",
		},
		[]string{})

	register(h.Image,
		[]string{"image/png", "image/jpeg", "image/webp", "image/gif", "image/tiff"},
		[]string{"png", "jpg", "jpeg", "webp", "gif", "tif", "tiff"})

	return d
}

// Dispatch selects the handler for the request and returns its phase
// stream. The stream is not started here; nothing runs until the caller
// consumes it.
func (d *Dispatcher) Dispatch(ctx context.Context, req handlers.Request) (types.PhaseSeq, error) {
	mime := strings.ToLower(strings.TrimSpace(req.MimeType))
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.Extension), "."))

	if mime == "application/pdf" || ext == "pdf" {
		return d.dispatchPDF(ctx, req), nil
	}

	h, ok := d.byMime[mime]
	if !ok {
		h, ok = d.byExt[ext]
	}
	if !ok {
		return nil, fmt.Errorf("%w: mime=%q ext=%q", ErrUnsupportedContentType, req.MimeType, req.Extension)
	}
	return h.Extract(ctx, req), nil
}

// dispatchPDF classifies the document with the page sampler. At or
// above the threshold it goes straight to optical recognition;
// otherwise the structured handler runs first with a single OCR
// fallback on the in-band handler_failed signal.
func (d *Dispatcher) dispatchPDF(ctx context.Context, req handlers.Request) types.PhaseSeq {
	frac, err := d.sampler.OCRFraction(req.Content)
	if err != nil {
		// Unsampleable documents take the structured-first path; a
		// truly broken file will signal handler_failed and land in OCR
		// through the normal fallback.
		d.log.Warn("pdf sampling failed, using structured-first path",
			"record_id", req.RecordID, "error", err)
		return d.withOCRFallback(ctx, req)
	}
	if frac >= d.ocrThreshold {
		d.log.Debug("dispatching pdf directly to ocr", "record_id", req.RecordID, "fraction", frac)
		return d.ocrPDF.Extract(ctx, req)
	}
	return d.withOCRFallback(ctx, req)
}

func (d *Dispatcher) withOCRFallback(ctx context.Context, req handlers.Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		fellBack := false
		for ev, err := range d.structuredPDF.Extract(ctx, req) {
			if err != nil {
				yield(ev, err)
				return
			}
			if ev.Name == types.PhaseHandlerFailed {
				fellBack = true
				break
			}
			if !yield(ev, nil) {
				return
			}
		}
		if !fellBack {
			return
		}

		d.log.Info("structured pdf handler failed, falling back to ocr once", "record_id", req.RecordID)
		for ev, err := range d.ocrPDF.Extract(ctx, req) {
			if !yield(ev, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}
