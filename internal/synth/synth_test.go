package synth

import (
	"errors"
	"testing"
	"time"

	"labsynth/pkg/dataset"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{Start: date(2024, 1, 1), End: date(2024, 1, 31)}},
		{name: "single-day", cfg: Config{Start: date(2024, 1, 1), End: date(2024, 1, 1)}},
		{name: "reversed", cfg: Config{Start: date(2024, 2, 1), End: date(2024, 1, 1)}, wantErr: true},
		{name: "zero-start", cfg: Config{End: date(2024, 1, 1)}, wantErr: true},
		{name: "zero-end", cfg: Config{Start: date(2024, 1, 1)}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				if !errors.Is(err, dataset.ErrInvalidConfiguration) {
					t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestConfigDaysInclusive(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{name: "january", start: date(2024, 1, 1), end: date(2024, 1, 31), want: 31},
		{name: "single-day", start: date(2024, 3, 15), end: date(2024, 3, 15), want: 1},
		{name: "leap-february", start: date(2024, 2, 1), end: date(2024, 2, 29), want: 29},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Start: tc.start, End: tc.end}
			if got := cfg.Days(); got != tc.want {
				t.Fatalf("Days() = %d, want %d", got, tc.want)
			}
			n := 0
			cfg.EachDay(func(time.Time) { n++ })
			if n != tc.want {
				t.Fatalf("EachDay visited %d days, want %d", n, tc.want)
			}
		})
	}
}

func TestConfigMonthsAndQuarters(t *testing.T) {
	cfg := Config{Start: date(2024, 2, 15), End: date(2024, 7, 3)}
	months := cfg.Months()
	if len(months) != 6 {
		t.Fatalf("Months() returned %d entries, want 6", len(months))
	}
	if FormatMonth(months[0]) != "2024-02" || FormatMonth(months[5]) != "2024-07" {
		t.Fatalf("month range %s..%s, want 2024-02..2024-07", FormatMonth(months[0]), FormatMonth(months[5]))
	}
	quarters := cfg.Quarters()
	if len(quarters) != 3 {
		t.Fatalf("Quarters() returned %d entries, want 3", len(quarters))
	}
	if FormatQuarter(quarters[0]) != "2024-Q1" || FormatQuarter(quarters[2]) != "2024-Q3" {
		t.Fatalf("quarter range %s..%s, want 2024-Q1..2024-Q3", FormatQuarter(quarters[0]), FormatQuarter(quarters[2]))
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	// 2024-01-03 is a Wednesday; its week starts 2024-01-01.
	if got := FormatDate(WeekStart(date(2024, 1, 3))); got != "2024-01-01" {
		t.Fatalf("WeekStart(Wed) = %s, want 2024-01-01", got)
	}
	// A Monday is its own week start.
	if got := FormatDate(WeekStart(date(2024, 1, 1))); got != "2024-01-01" {
		t.Fatalf("WeekStart(Mon) = %s, want 2024-01-01", got)
	}
	// A Sunday belongs to the preceding Monday.
	if got := FormatDate(WeekStart(date(2024, 1, 7))); got != "2024-01-01" {
		t.Fatalf("WeekStart(Sun) = %s, want 2024-01-01", got)
	}
}

func TestStreamDeterminism(t *testing.T) {
	a := NewStream(42, 3)
	b := NewStream(42, 3)
	for i := 0; i < 100; i++ {
		if av, bv := a.Normal(0, 1), b.Normal(0, 1); av != bv {
			t.Fatalf("draw %d diverged: %v vs %v", i, av, bv)
		}
		if av, bv := a.IntN(1000), b.IntN(1000); av != bv {
			t.Fatalf("int draw %d diverged: %d vs %d", i, av, bv)
		}
	}
}

func TestStreamOffsetsIndependent(t *testing.T) {
	a := NewStream(42, 0)
	b := NewStream(42, 1)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 100 {
		t.Fatal("streams with different offsets produced identical sequences")
	}
}

func TestUniformIntBounds(t *testing.T) {
	s := NewStream(1, 0)
	for i := 0; i < 1000; i++ {
		v := s.UniformInt(5, 9)
		if v < 5 || v > 9 {
			t.Fatalf("UniformInt(5,9) = %d", v)
		}
	}
	if v := s.UniformInt(7, 7); v != 7 {
		t.Fatalf("UniformInt(7,7) = %d", v)
	}
}

func TestWeightedIndexDistribution(t *testing.T) {
	s := NewStream(7, 0)
	weights := []float64{0.7, 0.2, 0.1}
	counts := make([]int, len(weights))
	const n = 10000
	for i := 0; i < n; i++ {
		counts[s.WeightedIndex(weights)]++
	}
	for i, w := range weights {
		got := float64(counts[i]) / n
		if got < w-0.05 || got > w+0.05 {
			t.Fatalf("index %d drawn at rate %v, want about %v", i, got, w)
		}
	}
}

func TestBernoulliExtremes(t *testing.T) {
	s := NewStream(11, 0)
	for i := 0; i < 100; i++ {
		if s.Bernoulli(1) != true {
			t.Fatal("Bernoulli(1) returned false")
		}
		if s.Bernoulli(0) != false {
			t.Fatal("Bernoulli(0) returned true")
		}
	}
}
