package controller

import (
	"context"
	"fmt"
	"net/url"
)

// The relay plugin registers its routes under /api/plugins/<name>/ and
// answers toggle/set as GET requests.

func (c *Client) relayPath(suffix string) string {
	return fmt.Sprintf("/api/plugins/%s/%s", c.relayPlugin, suffix)
}

// RelayStates returns the display state of every enabled relay.
func (c *Client) RelayStates(ctx context.Context) (map[string]RelayState, error) {
	states := make(map[string]RelayState)
	if err := c.get(ctx, c.relayPath("get_status"), &states); err != nil {
		return nil, err
	}
	return states, nil
}

// ToggleRelay flips a relay and returns the state the controller settled on.
func (c *Client) ToggleRelay(ctx context.Context, relayID string) (*RelayResult, error) {
	var res RelayResult
	if err := c.get(ctx, c.relayPath("toggle_relay/"+url.PathEscape(relayID)), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SetRelay drives a relay to an explicit display state.
func (c *Client) SetRelay(ctx context.Context, relayID string, on bool) (*RelayResult, error) {
	state := "off"
	if on {
		state = "on"
	}
	var res RelayResult
	if err := c.get(ctx, c.relayPath("set_relay/"+url.PathEscape(relayID)+"/"+state), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
