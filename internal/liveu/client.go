package liveu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client exposes typed telemetry operations on top of a Dispatcher
type Client struct {
	dispatcher *Dispatcher
	logger     Logger
}

// NewClient creates a telemetry client
func NewClient(dispatcher *Dispatcher, logger Logger) *Client {
	return &Client{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// GetInventory returns the units of the first inventory on the account
func (c *Client) GetInventory(ctx context.Context) (*Inventory, error) {
	resp, err := c.dispatcher.Send(ctx, http.MethodGet, "/inventories", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoInventoriesFound, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return &Inventory{}, nil
	default:
		return nil, fmt.Errorf("%w: status %d", ErrNoInventoriesFound, resp.StatusCode)
	}

	var res struct {
		Data struct {
			Inventories []Inventory `json:"inventories"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoInventoriesFound, err)
	}

	if len(res.Data.Inventories) == 0 {
		return nil, ErrNoInventoriesFound
	}

	return &res.Data.Inventories[0], nil
}

// GetInterfaces returns the raw interface list of a unit. No content means
// an empty list.
func (c *Client) GetInterfaces(ctx context.Context, unitID string) ([]Interface, error) {
	resp, err := c.dispatcher.Send(ctx, http.MethodGet, "/units/"+unitID+"/status/interfaces", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoUnitsFound, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return []Interface{}, nil
	default:
		return nil, fmt.Errorf("%w: status %d", ErrNoUnitsFound, resp.StatusCode)
	}

	var interfaces []Interface
	if err := json.Unmarshal(resp.Body, &interfaces); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoUnitsFound, err)
	}

	return interfaces, nil
}

// GetBattery returns the battery snapshot of a unit
func (c *Client) GetBattery(ctx context.Context, unitID string) (*Battery, error) {
	var battery Battery
	if err := c.getStatus(ctx, unitID, "battery", &battery); err != nil {
		return nil, err
	}
	return &battery, nil
}

// GetVideo returns the video snapshot of a unit
func (c *Client) GetVideo(ctx context.Context, unitID string) (*Video, error) {
	var video Video
	if err := c.getStatus(ctx, unitID, "video", &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *Client) getStatus(ctx context.Context, unitID, kind string, v interface{}) error {
	resp, err := c.dispatcher.Send(ctx, http.MethodGet, "/units/"+unitID+"/status/"+kind, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStatusNotAvailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrStatusNotAvailable, kind, resp.StatusCode)
	}

	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrStatusNotAvailable, err)
	}

	return nil
}

// IsIdle reports a camera attached with no active encode. Fetch failures
// count as false.
func (c *Client) IsIdle(ctx context.Context, unitID string) bool {
	video, err := c.GetVideo(ctx, unitID)
	if err != nil {
		c.logger.Debugf("Idle check failed: %v", err)
		return false
	}
	return video.IsIdle()
}

// IsStreaming reports an active encode. Fetch failures count as false.
func (c *Client) IsStreaming(ctx context.Context, unitID string) bool {
	video, err := c.GetVideo(ctx, unitID)
	if err != nil {
		c.logger.Debugf("Streaming check failed: %v", err)
		return false
	}
	return video.IsStreaming()
}

// StartStream asks the unit to start streaming. Only 201 counts as success.
func (c *Client) StartStream(ctx context.Context, unitID string) error {
	return c.streamAction(ctx, http.MethodPost, unitID, http.StatusCreated)
}

// StopStream asks the unit to stop streaming. Only 204 counts as success.
func (c *Client) StopStream(ctx context.Context, unitID string) error {
	return c.streamAction(ctx, http.MethodDelete, unitID, http.StatusNoContent)
}

func (c *Client) streamAction(ctx context.Context, method, unitID string, want int) error {
	resp, err := c.dispatcher.Send(ctx, method, "/units/"+unitID+"/stream", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStatusNotAvailable, err)
	}

	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s stream returned status %d", ErrStatusNotAvailable, method, resp.StatusCode)
	}

	c.logger.Infof("%s stream acknowledged for unit %s", method, unitID)
	return nil
}

// SelectUnit picks a unit by id or registration code. An empty selector
// returns the first unit.
func SelectUnit(inventory *Inventory, selector string) (Unit, error) {
	if inventory == nil || len(inventory.Units) == 0 {
		return Unit{}, ErrNoUnitsFound
	}

	if selector == "" {
		return inventory.Units[0], nil
	}

	for _, u := range inventory.Units {
		if u.ID == selector || u.RegCode == selector {
			return u, nil
		}
	}

	return Unit{}, fmt.Errorf("%w: no unit matches %q", ErrNoUnitsFound, selector)
}
