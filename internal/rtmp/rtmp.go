// Package rtmp reads the ingest bitrate from an nginx-rtmp stats page.
package rtmp

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRTMPDown is returned when the stats page cannot be fetched
var ErrRTMPDown = errors.New("rtmp is offline")

type stats struct {
	Server struct {
		Applications []application `xml:"application"`
	} `xml:"server"`
}

type application struct {
	Name string `xml:"name"`
	Live struct {
		Streams []stream `xml:"stream"`
	} `xml:"live"`
}

type stream struct {
	Name    string `xml:"name"`
	BWVideo uint32 `xml:"bw_video"`
}

// Client scrapes one stream from the stats page
type Client struct {
	url         string
	application string
	key         string
	httpClient  *http.Client
}

// NewClient creates a stats client for the stream key in the given application
func NewClient(url, application, key string) *Client {
	return &Client{
		url:         url,
		application: application,
		key:         key,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Bitrate returns the video bitrate in Kbps. ok is false when the stream
// is not being received.
func (c *Client) Bitrate(ctx context.Context) (uint32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrRTMPDown, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrRTMPDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("%w: stats returned status %d", ErrRTMPDown, resp.StatusCode)
	}

	var parsed stats
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, false, fmt.Errorf("failed to parse rtmp stats: %w", err)
	}

	var found *stream
	for _, app := range parsed.Server.Applications {
		if app.Name != c.application {
			continue
		}
		for i := range app.Live.Streams {
			if app.Live.Streams[i].Name == c.key {
				found = &app.Live.Streams[i]
			}
		}
	}

	if found == nil {
		return 0, false, nil
	}

	return found.BWVideo / 1024, true, nil
}
