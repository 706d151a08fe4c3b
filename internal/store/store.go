// Package store persists credentials and the last viewer snapshot on disk.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/peterbourgon/diskv/v3"

	"wip/internal/service"
)

const (
	credentialsKey = "credentials"
	viewerKey      = "viewer"
)

// Disk is a diskv-backed key/value store rooted in the config directory.
type Disk struct {
	d *diskv.Diskv
}

// Open returns a store rooted at basePath. Files are written with mode 0600.
func Open(basePath string) *Disk {
	return &Disk{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 64 * 1024,
		FilePerm:     0600,
		PathPerm:     0700,
	})}
}

// LoadCredentials returns the saved credentials, or the zero value if none exist.
func (s *Disk) LoadCredentials() (service.Credentials, error) {
	var creds service.Credentials
	if _, err := s.readJSON(credentialsKey, &creds); err != nil {
		return service.Credentials{}, err
	}
	return creds, nil
}

// SaveCredentials writes credentials to disk.
func (s *Disk) SaveCredentials(creds service.Credentials) error {
	return s.writeJSON(credentialsKey, creds)
}

// LoadViewer returns the saved viewer snapshot. The bool is false if none was saved.
func (s *Disk) LoadViewer() (service.ViewerSnapshot, bool, error) {
	var snap service.ViewerSnapshot
	ok, err := s.readJSON(viewerKey, &snap)
	if err != nil || !ok {
		return service.ViewerSnapshot{}, false, err
	}
	return snap, true, nil
}

// SaveViewer writes the viewer snapshot to disk.
func (s *Disk) SaveViewer(snap service.ViewerSnapshot) error {
	return s.writeJSON(viewerKey, snap)
}

// ClearViewer removes the saved viewer snapshot.
func (s *Disk) ClearViewer() error {
	if !s.d.Has(viewerKey) {
		return nil
	}
	return s.d.Erase(viewerKey)
}

func (s *Disk) readJSON(key string, v any) (bool, error) {
	if !s.d.Has(key) {
		return false, nil
	}
	data, err := s.d.Read(key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return true, nil
}

func (s *Disk) writeJSON(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := s.d.Write(key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
