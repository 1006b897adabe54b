package sink_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/equity-optimizer/internal/sink"
	"github.com/atlas-desktop/equity-optimizer/pkg/types"
)

func TestEmitWithoutMarginOrHoldings(t *testing.T) {
	var buf bytes.Buffer
	s := sink.New(&buf)

	err := s.Emit(types.OutputRecord{
		Timestamp:      "t1",
		AverageIndex:   1000,
		AverageValue:   100,
		PortfolioValue: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	want := "t1\t1000\t100\t1000\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestEmitWithMarginAndHoldingsReversesOrder(t *testing.T) {
	var buf bytes.Buffer
	s := sink.New(&buf)

	err := s.Emit(types.OutputRecord{
		Timestamp:      "t2",
		AverageIndex:   1010,
		AverageValue:   101,
		PortfolioValue: decimal.NewFromInt(1010),
		MarginFraction: 0.25,
		HasMargin:      true,
		Holdings: []types.Holding{
			{Ticker: "AAA", Allocation: 0.6},
			{Ticker: "BBB", Allocation: 0.4},
		},
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	line := strings.TrimSuffix(buf.String(), "\n")
	fields := strings.Split(line, "\t")
	if fields[len(fields)-2] != "BBB=0.4" || fields[len(fields)-1] != "AAA=0.6" {
		t.Fatalf("holdings not printed in ascending-desirability order: %v", fields)
	}
	if !strings.Contains(line, "0.25") {
		t.Fatalf("margin_fraction missing from line: %q", line)
	}
}

func TestEmitOmitsAverageValueWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	s := sink.New(&buf)
	s.ShowAverageValue = false

	if err := s.Emit(types.OutputRecord{
		Timestamp:      "t3",
		AverageIndex:   1000,
		PortfolioValue: decimal.NewFromInt(1000),
	}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	want := "t3\t1000\t1000\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
