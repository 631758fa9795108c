package dispatch

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

// PageSampler estimates what fraction of a PDF needs optical
// recognition by probing a bounded subset of pages for extractable
// text. This is the only inline CPU work in the event path and stays
// cheap: at most maxPages page reads.
type PageSampler struct {
	maxPages int
	minChars int
	log      *logger.Logger
}

func NewPageSampler(maxPages, minChars int, baseLog *logger.Logger) *PageSampler {
	if maxPages <= 0 {
		maxPages = 8
	}
	if minChars <= 0 {
		minChars = 32
	}
	return &PageSampler{maxPages: maxPages, minChars: minChars, log: baseLog.With("component", "PageSampler")}
}

// OCRFraction returns the fraction of sampled pages whose native text
// layer is missing or too thin to be useful.
func (s *PageSampler) OCRFraction(data []byte) (float64, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}

	sample := total
	if sample > s.maxPages {
		sample = s.maxPages
	}
	stride := total / sample

	var needsOCR int32
	var g errgroup.Group
	g.SetLimit(4)

	for i := 0; i < sample; i++ {
		pageNum := 1 + i*stride
		g.Go(func() error {
			if pageNeedsOCR(reader, pageNum, s.minChars) {
				atomic.AddInt32(&needsOCR, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	frac := float64(needsOCR) / float64(sample)
	s.log.Debug("sampled pdf pages for ocr need",
		"pages_total", total, "sampled", sample, "needs_ocr", needsOCR, "fraction", frac)
	return frac, nil
}

func pageNeedsOCR(reader *pdf.Reader, pageNum, minChars int) (needs bool) {
	defer func() {
		// ledongthuc/pdf panics on some malformed content streams;
		// treat such pages as needing optical recognition.
		if recover() != nil {
			needs = true
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return true
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return true
	}
	return len(strings.TrimSpace(text)) < minChars
}
