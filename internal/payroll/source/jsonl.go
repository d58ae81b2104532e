package source

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/louisbranch/payrollwatch/internal/payroll/event"
	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

// frame is one ledger subscription record as delivered on the wire: the
// event name, the transaction that emitted it, and its raw return values.
type frame struct {
	Event  string          `json:"event"`
	TxHash string          `json:"transactionHash"`
	Values json.RawMessage `json:"returnValues"`
}

// JSONL reads newline-delimited subscription frames from a stream and
// republishes them as ledger events in arrival order. A malformed frame is
// logged and skipped so one bad record cannot stall the projection.
type JSONL struct {
	reader io.Reader
	logger *log.Logger
}

// NewJSONL creates a feed over the given stream.
func NewJSONL(reader io.Reader, logger *log.Logger) *JSONL {
	if logger == nil {
		logger = log.Default()
	}
	return &JSONL{reader: reader, logger: logger}
}

// Events implements Feed. The returned channel closes at end of stream or
// when the context is cancelled; a read error other than EOF is surfaced as
// a transport error through the final logged entry.
func (j *JSONL) Events(ctx context.Context) (<-chan event.Event, error) {
	events := make(chan event.Event)
	decoder := json.NewDecoder(j.reader)
	go func() {
		defer close(events)
		for {
			var f frame
			if err := decoder.Decode(&f); err != nil {
				if err != io.EOF {
					wrapped := apperrors.Wrap(apperrors.CodeTransportError, "event stream read failed", err)
					j.logger.Printf("payroll: %v", wrapped)
				}
				return
			}
			if f.Event == "" {
				j.logger.Printf("payroll: skipping frame without event name (tx %s)", f.TxHash)
				continue
			}
			ev := event.Event{
				Type:        event.Type(f.Event),
				TxHash:      f.TxHash,
				PayloadJSON: f.Values,
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

var _ Feed = (*JSONL)(nil)
