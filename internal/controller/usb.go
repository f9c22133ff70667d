package controller

import "context"

// The controller exposes the printer's USB share through a g_mass_storage
// gadget on the host; these calls manage that gadget.

// USBInstallation is the controller's report on whether the mass-storage
// gadget is set up, with a per-component breakdown.
type USBInstallation struct {
	Installed  bool            `json:"installed"`
	SetupType  string          `json:"setup_type"`
	Components map[string]bool `json:"components"`
}

// USBStatus is the live state of the mass-storage gadget.
type USBStatus struct {
	ServiceRunning bool      `json:"service_running"`
	Mounted        bool      `json:"mounted"`
	MountPoint     string    `json:"mount_point"`
	Usage          DiskUsage `json:"usb_space"`
	SetupType      string    `json:"setup_type"`
}

// CheckUSBInstallation reports whether the gadget is installed on the
// controller host.
func (c *Client) CheckUSBInstallation(ctx context.Context) (*USBInstallation, error) {
	var inst USBInstallation
	if err := c.get(ctx, "/api/check_usb_installation", &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// USBStatus fetches the gadget's running/mounted state and share usage.
func (c *Client) USBStatus(ctx context.Context) (*USBStatus, error) {
	var st USBStatus
	if err := c.get(ctx, "/api/usb_status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StartUSBGadget loads the mass-storage gadget so the printer sees the share.
func (c *Client) StartUSBGadget(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/start_usb_gadget", nil)
}

// StopUSBGadget unloads the mass-storage gadget.
func (c *Client) StopUSBGadget(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/stop_usb_gadget", nil)
}

// InstallUSBGadget asks the controller to install the gadget setup.
func (c *Client) InstallUSBGadget(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/install_usb_gadget", nil)
}
