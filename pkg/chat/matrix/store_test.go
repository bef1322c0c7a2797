// Copyright 2024-2026 Aiku AI

package matrix

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return s, path
}

func TestSessionRoundTripAcrossReopen(t *testing.T) {
	t.Parallel()
	s, path := openTestStore(t)

	if _, err := s.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("fresh store: got %v, want ErrNoSession", err)
	}
	want := Session{UserID: "@relay:example.org", DeviceID: "DEVICE", AccessToken: "secret"}
	if err := s.SaveSession(want); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession after reopen: %v", err)
	}
	if *got != want {
		t.Errorf("got %+v, want %+v", *got, want)
	}
}

func TestSyncPositionIsPerUser(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	if batch, err := s.LoadNextBatch(ctx, "@a:example.org"); err != nil || batch != "" {
		t.Fatalf("fresh store: got %q %v, want empty", batch, err)
	}
	s.SaveNextBatch(ctx, "@a:example.org", "s1")
	s.SaveNextBatch(ctx, "@b:example.org", "s9")
	s.SaveFilterID(ctx, "@a:example.org", "f1")

	if batch, _ := s.LoadNextBatch(ctx, "@a:example.org"); batch != "s1" {
		t.Errorf("batch for a: got %q, want s1", batch)
	}
	if batch, _ := s.LoadNextBatch(ctx, "@b:example.org"); batch != "s9" {
		t.Errorf("batch for b: got %q, want s9", batch)
	}
	if filter, _ := s.LoadFilterID(ctx, "@a:example.org"); filter != "f1" {
		t.Errorf("filter for a: got %q, want f1", filter)
	}
}

func TestClearSessionForgetsSyncPosition(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	s.SaveSession(Session{UserID: "@relay:example.org", AccessToken: "old"})
	s.SaveNextBatch(ctx, "@relay:example.org", "s42")
	if err := s.ClearSession(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Errorf("session after clear: got %v, want ErrNoSession", err)
	}
	if batch, _ := s.LoadNextBatch(ctx, "@relay:example.org"); batch != "" {
		t.Errorf("batch after clear: got %q, want empty", batch)
	}
}
