package rtmp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const statsXML = `<?xml version="1.0" encoding="utf-8" ?>
<rtmp>
  <nginx_version>1.21.6</nginx_version>
  <server>
    <application>
      <name>live</name>
      <live>
        <stream>
          <name>other</name>
          <bw_video>1024000</bw_video>
        </stream>
        <stream>
          <name>secret-key</name>
          <bw_video>6144000</bw_video>
        </stream>
      </live>
    </application>
    <application>
      <name>backup</name>
      <live></live>
    </application>
  </server>
</rtmp>`

func TestBitrate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(statsXML))
	}))
	defer server.Close()

	t.Run("Stream found", func(t *testing.T) {
		kbps, ok, err := NewClient(server.URL, "live", "secret-key").Bitrate(context.Background())
		if err != nil {
			t.Fatalf("Bitrate failed: %v", err)
		}
		if !ok || kbps != 6000 {
			t.Errorf("Expected 6000 Kbps, got %d (ok=%v)", kbps, ok)
		}
	})

	t.Run("Unknown key", func(t *testing.T) {
		_, ok, err := NewClient(server.URL, "live", "missing").Bitrate(context.Background())
		if err != nil || ok {
			t.Errorf("Expected no stream and no error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("Application without streams", func(t *testing.T) {
		_, ok, err := NewClient(server.URL, "backup", "secret-key").Bitrate(context.Background())
		if err != nil || ok {
			t.Errorf("Expected no stream and no error, got ok=%v err=%v", ok, err)
		}
	})
}

func TestBitrateErrors(t *testing.T) {
	t.Run("Server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, _, err := NewClient(server.URL, "live", "key").Bitrate(context.Background())
		if !errors.Is(err, ErrRTMPDown) {
			t.Errorf("Expected ErrRTMPDown, got %v", err)
		}
	})

	t.Run("Network error", func(t *testing.T) {
		_, _, err := NewClient("http://non-existent-server.test/stat", "live", "key").Bitrate(context.Background())
		if !errors.Is(err, ErrRTMPDown) {
			t.Errorf("Expected ErrRTMPDown, got %v", err)
		}
	})

	t.Run("Malformed XML", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<rtmp><server>"))
		}))
		defer server.Close()

		_, _, err := NewClient(server.URL, "live", "key").Bitrate(context.Background())
		if err == nil {
			t.Error("Expected parse error")
		}
	})
}
