package controller

import "context"

// FileList is the controller's file listing for the USB share.
type FileList struct {
	Files []FileInfo `json:"files"`
	Usage DiskUsage  `json:"usb_space"`
}

// Files lists the printable files on the controller's USB share.
func (c *Client) Files(ctx context.Context) (*FileList, error) {
	var list FileList
	if err := c.get(ctx, "/api/files", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteFile removes a file from the USB share.
func (c *Client) DeleteFile(ctx context.Context, filename string) (string, error) {
	return c.command(ctx, "/api/files/delete", map[string]string{"filename": filename})
}
