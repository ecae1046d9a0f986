package testutils

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// NewTestLogger returns a logrus logger that discards output
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
	})
	return logger
}

// TempDBPath returns a database path inside a per-test temp directory
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "activity.db")
}

// InterfaceFixture builds one interface object as the LiveU API returns it
func InterfaceFixture(port string, uplink int, connected bool, technology string) map[string]interface{} {
	return map[string]interface{}{
		"port":               port,
		"connected":          connected,
		"uplinkKbps":         uplink,
		"downlinkKbps":       0,
		"technology":         technology,
		"isCurrentlyRoaming": false,
	}
}

// BondedInterfaces is a unit with ethernet and both cellular slots connected
func BondedInterfaces() []map[string]interface{} {
	return []map[string]interface{}{
		InterfaceFixture("eth0", 500, true, "ethernet"),
		InterfaceFixture("0", 300, true, "LTE"),
		InterfaceFixture("1", 200, true, "LTE"),
		InterfaceFixture("wlan0", 0, false, "wifi"),
	}
}

// StreamingVideo is a video status with an active encode
func StreamingVideo(bitrate int) map[string]interface{} {
	return map[string]interface{}{"resolution": "1920x1080", "bitrate": bitrate}
}

// IdleVideo is a video status with a camera attached and no encode
func IdleVideo() map[string]interface{} {
	return map[string]interface{}{"resolution": "1920x1080"}
}
