package report

import (
	"testing"
	"time"
)

func TestDefaultRangeAnchorsSaturday(t *testing.T) {
	tests := []struct {
		name      string
		today     string
		wantStart string
		wantEnd   string
	}{
		{"saturday itself", "2024-03-02", "2024-03-02", "2024-03-08"},
		{"sunday", "2024-03-03", "2024-03-02", "2024-03-08"},
		{"wednesday", "2024-03-06", "2024-03-02", "2024-03-08"},
		{"friday", "2024-03-08", "2024-03-02", "2024-03-08"},
		{"next saturday rolls over", "2024-03-09", "2024-03-09", "2024-03-15"},
		{"across month boundary", "2024-04-02", "2024-03-30", "2024-04-05"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			today, err := time.Parse("2006-01-02", tc.today)
			if err != nil {
				t.Fatalf("parse today: %v", err)
			}
			r := DefaultRange(today)
			if r.Start.Date() != tc.wantStart {
				t.Errorf("start = %s, want %s", r.Start.Date(), tc.wantStart)
			}
			if r.End.Date() != tc.wantEnd {
				t.Errorf("end = %s, want %s", r.End.Date(), tc.wantEnd)
			}
			if h, m, s := r.Start.Clock(); h != 0 || m != 0 || s != 0 {
				t.Errorf("start clock = %02d:%02d:%02d, want midnight", h, m, s)
			}
			if h, m, s := r.End.Clock(); h != 23 || m != 59 || s != 59 {
				t.Errorf("end clock = %02d:%02d:%02d, want 23:59:59", h, m, s)
			}
		})
	}
}

func TestParseRangeExplicit(t *testing.T) {
	r, err := ParseRange("2024-01-01", "2024-01-07", time.Now())
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if r.Start.Date() != "2024-01-01" || r.End.Date() != "2024-01-07" {
		t.Errorf("range = %s..%s", r.Start.Date(), r.End.Date())
	}
	// End day is included whole.
	if h, _, s := r.End.Clock(); h != 23 || s != 59 {
		t.Errorf("end not expanded to last second: %v", r.End)
	}
}

func TestParseRangeDefaultsWhenEmpty(t *testing.T) {
	today, _ := time.Parse("2006-01-02", "2024-03-06")
	r, err := ParseRange("", "", today)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if r.Start.Date() != "2024-03-02" || r.End.Date() != "2024-03-08" {
		t.Errorf("default range = %s..%s, want 2024-03-02..2024-03-08", r.Start.Date(), r.End.Date())
	}
}

func TestParseRangeRejectsMalformed(t *testing.T) {
	if _, err := ParseRange("yesterday", "2024-01-07", time.Now()); err == nil {
		t.Error("expected error for malformed start date")
	}
	if _, err := ParseRange("2024-01-01", "", time.Now()); err == nil {
		t.Error("expected error for missing end date")
	}
	if _, err := ParseRange("2024-01-07", "2024-01-01", time.Now()); err == nil {
		t.Error("expected error for inverted range")
	}
}
