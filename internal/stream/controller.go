package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/fbettag/liveu-chat-monitor/internal/chat"
	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/sirupsen/logrus"
)

const (
	startAttempts = 15
	stopAttempts  = 10

	// OfflineMessage is posted when the unit cannot be reached
	OfflineMessage = "LiveU Offline :("
)

// Telemetry is the part of the LiveU client needed to drive the encoder
type Telemetry interface {
	GetVideo(ctx context.Context, unitID string) (*liveu.Video, error)
	StartStream(ctx context.Context, unitID string) error
	StopStream(ctx context.Context, unitID string) error
}

// Controller starts and stops the stream and confirms the result in chat.
// Confirmations run detached from the command that triggered them.
type Controller struct {
	telemetry Telemetry
	sender    chat.Sender
	channel   string
	unitID    string
	logger    *logrus.Logger

	// PollInterval is the wait before each confirmation poll
	PollInterval time.Duration
	// RestartGrace is the pause between stopping and starting on restart
	RestartGrace time.Duration
}

func NewController(telemetry Telemetry, sender chat.Sender, channel, unitID string, logger *logrus.Logger) *Controller {
	return &Controller{
		telemetry:    telemetry,
		sender:       sender,
		channel:      channel,
		unitID:       unitID,
		logger:       logger,
		PollInterval: time.Second,
		RestartGrace: 4 * time.Second,
	}
}

// Start asks the unit to start streaming and confirms in the background
func (c *Controller) Start(ctx context.Context) (string, error) {
	if err := c.telemetry.StartStream(ctx, c.unitID); err != nil {
		return "", fmt.Errorf("failed to start stream: %w", err)
	}

	go c.Confirm(context.Background(), startAttempts, true, "started", "starting")

	return "Starting stream", nil
}

// Stop asks the unit to stop streaming and confirms in the background
func (c *Controller) Stop(ctx context.Context) (string, error) {
	if err := c.telemetry.StopStream(ctx, c.unitID); err != nil {
		return "", fmt.Errorf("failed to stop stream: %w", err)
	}

	go c.Confirm(context.Background(), stopAttempts, false, "stopped", "stopping")

	return "Stopping stream", nil
}

// Restart stops the stream, waits for the grace period and starts it
// again. Only the stop request is awaited.
func (c *Controller) Restart(ctx context.Context) (string, error) {
	if _, err := c.Stop(ctx); err != nil {
		return "", err
	}

	go func() {
		time.Sleep(c.RestartGrace)

		if _, err := c.Start(context.Background()); err != nil {
			c.logger.Errorf("Restart could not start the stream: %v", err)
			c.say(OfflineMessage)
		}
	}()

	return "Restarting stream", nil
}

// Confirm polls the video status until the presence of a bitrate matches
// wantBitrate or maxAttempts polls have been made, and posts the outcome.
func (c *Controller) Confirm(ctx context.Context, maxAttempts int, wantBitrate bool, successLabel, pendingLabel string) bool {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-time.After(c.PollInterval):
		case <-ctx.Done():
			return false
		}

		video, err := c.telemetry.GetVideo(ctx, c.unitID)
		if err != nil {
			c.logger.Debugf("Confirmation poll %d/%d failed: %v", attempt, maxAttempts, err)
			continue
		}

		if video.IsStreaming() == wantBitrate {
			c.logger.Infof("Stream %s after %d polls", successLabel, attempt)
			c.say("streaming " + successLabel + " successfully")
			return true
		}
	}

	c.logger.Warnf("Stream not %s after %d polls", successLabel, maxAttempts)
	c.say(pendingLabel + " stream took too long might not have worked")
	return false
}

func (c *Controller) say(text string) {
	if err := c.sender.Say(c.channel, text); err != nil {
		c.logger.Errorf("Failed to send message: %v", err)
	}
}
