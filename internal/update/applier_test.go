package update

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sweeney/tank-monitor/internal/manifest"
)

func TestStagingApplierSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.bin")
	image := []byte{0xE9, 0x01, 0x02, 0x03}
	ft := manifest.NewFakeTransport(manifest.FakeResponse{Status: 200, Body: image})

	res := NewStagingApplier(ft, path).Apply("http://host/fw.bin")
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", res)
	}

	staged, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("staged image missing: %v", err)
	}
	if string(staged) != string(image) {
		t.Error("staged image does not match downloaded body")
	}
}

func TestStagingApplierNotModified(t *testing.T) {
	ft := manifest.NewFakeTransport(manifest.FakeResponse{Status: 304})

	res := NewStagingApplier(ft, filepath.Join(t.TempDir(), "fw.bin")).Apply("http://host/fw.bin")
	if res.Outcome != OutcomeNoUpdate {
		t.Errorf("304 should map to the no-update outcome, got %+v", res)
	}
}

func TestStagingApplierHTTPFailure(t *testing.T) {
	ft := manifest.NewFakeTransport(manifest.FakeResponse{Status: 503, Body: []byte("down")})

	res := NewStagingApplier(ft, filepath.Join(t.TempDir(), "fw.bin")).Apply("http://host/fw.bin")
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.Code != 503 {
		t.Errorf("failure should carry the status as its code, got %d", res.Code)
	}
	if res.Message == "" {
		t.Error("failure should carry a description")
	}
}

func TestStagingApplierTransportError(t *testing.T) {
	ft := manifest.NewFakeTransport(manifest.FakeResponse{Err: errors.New("link down")})

	res := NewStagingApplier(ft, filepath.Join(t.TempDir(), "fw.bin")).Apply("http://host/fw.bin")
	if res.Outcome != OutcomeFailed {
		t.Errorf("expected failure, got %+v", res)
	}
}

func TestStagingApplierEmptyBody(t *testing.T) {
	ft := manifest.NewFakeTransport(manifest.FakeResponse{Status: 200})

	res := NewStagingApplier(ft, filepath.Join(t.TempDir(), "fw.bin")).Apply("http://host/fw.bin")
	if res.Outcome != OutcomeFailed {
		t.Errorf("empty image must fail, got %+v", res)
	}
}
