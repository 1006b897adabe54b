// Package ingest parses the merged input stream's line grammar into
// pkg/types.Record values: one (timestamp, ticker, price) record per
// line, tolerant of comments, blank lines, and malformed records.
package ingest

import (
	"bufio"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

// Reader parses one record per input line. Lines are split on any run
// of spaces, tabs, or commas; blank lines and lines whose first
// non-whitespace rune is '#' are ignored; malformed records (wrong
// field count, unparseable price) are skipped rather than failing the
// run.
type Reader struct {
	scanner *bufio.Scanner
	logger  *zap.Logger

	// OnReject, when non-nil, is called once per skipped malformed
	// record (wrong field count or unparseable price). Comments and
	// blank lines are not records and do not count.
	OnReject func()
}

// New wraps src for line-by-line record parsing.
func New(src io.Reader, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{scanner: bufio.NewScanner(src), logger: logger}
}

// Next returns the next well-formed record. ok is false once the
// input is exhausted; malformed lines are consumed and skipped
// internally, never surfaced as a "next record" to the caller.
func (r *Reader) Next() (types.Record, bool, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.FieldsFunc(line, func(c rune) bool {
			return c == ',' || c == '\t' || c == ' '
		})
		if len(fields) != 3 {
			r.logger.Debug("skipping malformed record", zap.String("line", line))
			r.reject()
			continue
		}

		price, err := decimal.NewFromString(fields[2])
		if err != nil {
			r.logger.Debug("skipping record with unparseable price", zap.String("line", line))
			r.reject()
			continue
		}

		return types.Record{Timestamp: fields[0], Ticker: fields[1], Price: price}, true, nil
	}

	if err := r.scanner.Err(); err != nil {
		return types.Record{}, false, err
	}
	return types.Record{}, false, nil
}

func (r *Reader) reject() {
	if r.OnReject != nil {
		r.OnReject()
	}
}
