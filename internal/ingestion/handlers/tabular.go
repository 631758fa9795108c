package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// DelimitedHandler covers csv/tsv exports.
type DelimitedHandler struct {
	log *logger.Logger
}

func NewDelimitedHandler(baseLog *logger.Logger) *DelimitedHandler {
	return &DelimitedHandler{log: baseLog.With("handler", "delimited")}
}

func (h *DelimitedHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(types.PhaseEvent{}, err)
			return
		}

		r := csv.NewReader(bytes.NewReader(req.Content))
		if req.Extension == "tsv" {
			r.Comma = '\t'
		}
		r.FieldsPerRecord = -1

		rows := 0
		for {
			_, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				yield(types.PhaseEvent{}, fmt.Errorf("parse delimited content: %w", err))
				return
			}
			rows++
		}
		if rows == 0 {
			h.log.Info("delimited content has no rows", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}

// TableSnapshotHandler covers tabular database snapshots delivered as
// JSON row containers.
type TableSnapshotHandler struct {
	log *logger.Logger
}

func NewTableSnapshotHandler(baseLog *logger.Logger) *TableSnapshotHandler {
	return &TableSnapshotHandler{log: baseLog.With("handler", "table_snapshot")}
}

func (h *TableSnapshotHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(types.PhaseEvent{}, err)
			return
		}

		var doc struct {
			Rows []json.RawMessage `json:"rows"`
		}
		if err := json.Unmarshal(req.Content, &doc); err != nil {
			yield(types.PhaseEvent{}, fmt.Errorf("parse table snapshot: %w", err))
			return
		}
		if len(doc.Rows) == 0 {
			h.log.Info("table snapshot has no rows", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}
