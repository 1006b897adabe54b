package ingest_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/internal/ingest"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

func readAll(t *testing.T, r *ingest.Reader) []types.Record {
	t.Helper()
	var out []types.Record
	for {
		rec, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

func TestReaderParsesWhitespaceAndCommaDelimiters(t *testing.T) {
	input := "t1 AAA 100\nt1,BBB,200.5\nt2\tAAA\t101\n"
	r := ingest.New(strings.NewReader(input), zap.NewNop())

	recs := readAll(t, r)
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[1].Ticker != "BBB" || recs[1].Price.String() != "200.5" {
		t.Fatalf("comma-delimited record parsed wrong: %+v", recs[1])
	}
}

func TestReaderSkipsCommentsAndBlankLines(t *testing.T) {
	input := "# header comment\n\n   # indented comment\nt1 AAA 100\n"
	r := ingest.New(strings.NewReader(input), zap.NewNop())

	recs := readAll(t, r)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
}

func TestReaderSkipsMalformedRecordsAndReportsThem(t *testing.T) {
	input := strings.Join([]string{
		"t1 AAA 100",
		"t1 AAA",              // wrong field count
		"t1 BBB not-a-number", // unparseable price
		"t2 AAA 101",
	}, "\n") + "\n"

	r := ingest.New(strings.NewReader(input), zap.NewNop())
	rejected := 0
	r.OnReject = func() { rejected++ }

	recs := readAll(t, r)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2 (malformed lines skipped)", len(recs))
	}
	if rejected != 2 {
		t.Fatalf("rejected = %d, want 2", rejected)
	}
}
