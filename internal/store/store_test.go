package store_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"wip/internal/service"
	"wip/internal/store"
)

func TestDisk_CredentialsMissing(t *testing.T) {
	s := store.Open(t.TempDir())

	creds, err := s.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.HasToken() {
		t.Errorf("expected empty credentials, got %+v", creds)
	}
}

func TestDisk_CredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := store.Open(dir)

	want := service.Credentials{AccessToken: "tok", Mode: service.Development}
	if err := s.SaveCredentials(want); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}

	got, err := store.Open(dir).LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials"))
	if err != nil {
		t.Fatalf("stat credentials: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestDisk_ViewerLifecycle(t *testing.T) {
	s := store.Open(t.TempDir())

	if _, ok, err := s.LoadViewer(); err != nil || ok {
		t.Fatalf("expected no viewer, got ok=%v err=%v", ok, err)
	}

	snap := service.ViewerSnapshot{
		Username:      "marc",
		FirstName:     "Marc",
		CurrentStreak: 3,
		BestStreak:    10,
		Streaking:     true,
		Products:      []service.Product{{Name: "WIP", URL: "https://wip.chat"}},
	}
	if err := s.SaveViewer(snap); err != nil {
		t.Fatalf("SaveViewer: %v", err)
	}

	got, ok, err := s.LoadViewer()
	if err != nil || !ok {
		t.Fatalf("LoadViewer: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Errorf("expected %+v, got %+v", snap, got)
	}

	if err := s.ClearViewer(); err != nil {
		t.Fatalf("ClearViewer: %v", err)
	}
	if _, ok, _ := s.LoadViewer(); ok {
		t.Error("expected viewer to be cleared")
	}
	// Clearing twice is not an error.
	if err := s.ClearViewer(); err != nil {
		t.Errorf("second ClearViewer: %v", err)
	}
}
