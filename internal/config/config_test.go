package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadNoPathReturnsDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if s != Defaults() {
		t.Errorf("Load(\"\") = %+v, want %+v", s, Defaults())
	}
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acktun.yaml")
	body := "interface: tun0\nserver: true\nhigh_water: 30\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Interface != "tun0" || !s.Server || s.HighWater != 30 {
		t.Errorf("Load() = %+v, want overlaid fields set", s)
	}
	if s.Port != 55555 || s.PacingInterval != 50*time.Millisecond || s.QueueCapacity != 100 {
		t.Errorf("Load() did not preserve defaults for unspecified fields: %+v", s)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load(missing file) = nil error, want an error")
	}
}

func TestValidateRequiresInterface(t *testing.T) {
	s := Defaults()
	s.Server = true
	if err := s.Validate(); err == nil {
		t.Errorf("Validate() with no interface = nil, want an error")
	}
}

func TestValidateRequiresExactlyOneRole(t *testing.T) {
	s := Defaults()
	s.Interface = "tun0"
	if err := s.Validate(); err == nil {
		t.Errorf("Validate() with neither -s nor -c = nil, want an error")
	}
}

func TestValidateHighWaterMustBeBelowCapacity(t *testing.T) {
	s := Defaults()
	s.Interface = "tun0"
	s.Server = true
	s.HighWater = s.QueueCapacity
	if err := s.Validate(); err == nil {
		t.Errorf("Validate() with high_water == capacity = nil, want an error")
	}
}

func TestValidateAcceptsWellFormedClientSettings(t *testing.T) {
	s := Defaults()
	s.Interface = "tun0"
	s.PeerAddr = "10.0.0.1"
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
