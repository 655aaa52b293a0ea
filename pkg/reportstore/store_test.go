package reportstore

import (
	"context"
	"fmt"
	"testing"
)

func TestNewReportGeneratesFields(t *testing.T) {
	r := NewReport("http://phish.example", "fake login", "203.0.113.9")
	if r.ID == "" {
		t.Error("missing id")
	}
	if r.CreatedAt.IsZero() {
		t.Error("missing timestamp")
	}
	if r.URL != "http://phish.example" || r.Description != "fake login" {
		t.Errorf("report = %+v", r)
	}
}

func TestMemStoreSaveAndRecent(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	defer s.Close()

	for i := 0; i < 5; i++ {
		r := NewReport(fmt.Sprintf("http://site%d.example", i), "", "")
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].URL != "http://site4.example" {
		t.Errorf("newest-first order violated: got %q first", got[0].URL)
	}
}

func TestMemStoreRecentUnbounded(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.Save(ctx, NewReport("http://a.example", "", ""))

	got, err := s.Recent(ctx, 0)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, _ := s.Recent(ctx, 100); len(got) != 1 {
		t.Errorf("limit beyond size returned %d reports", len(got))
	}
}

func TestMemStoreBounded(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	for i := 0; i < maxReports+50; i++ {
		s.Save(ctx, NewReport("http://x.example", "", ""))
	}
	got, _ := s.Recent(ctx, 0)
	if len(got) != maxReports {
		t.Errorf("store holds %d reports, want cap %d", len(got), maxReports)
	}
}
