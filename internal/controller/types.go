package controller

import "time"

// PrinterState is the print-state reported by the controller firmware bridge.
type PrinterState string

const (
	StateIdle     PrinterState = "IDLE"
	StatePrinting PrinterState = "PRINTING"
	StatePaused   PrinterState = "PAUSED"
	StateFinished PrinterState = "FINISHED"
	StateError    PrinterState = "ERROR"
	StateUnknown  PrinterState = "UNKNOWN"
)

// Active reports whether a print is in flight. The dashboard shows the
// printing overlay exactly while this is true.
func (s PrinterState) Active() bool {
	return s == StatePrinting || s == StatePaused
}

// PrintProgress mirrors the controller's print_status block.
type PrintProgress struct {
	State           PrinterState `json:"state"`
	ProgressPercent float64      `json:"progress_percent"`
	CurrentLayer    int          `json:"current_layer"`
	TotalLayers     int          `json:"total_layers"`
	CurrentByte     int64        `json:"current_byte"`
	TotalBytes      int64        `json:"total_bytes"`
}

// Status is the controller's /api/status payload. It is overwritten
// wholesale on every poll and never mutated locally.
type Status struct {
	Connected       bool          `json:"connected"`
	FirmwareVersion string        `json:"firmware_version"`
	Print           PrintProgress `json:"print_status"`
	SelectedFile    string        `json:"selected_file"`
	ZPosition       float64       `json:"z_position"`
}

// RelayState is one relay as reported by the relay plugin. State is the
// display state (invert logic already applied by the controller).
type RelayState struct {
	Name        string `json:"name"`
	State       bool   `json:"state"`
	ActualState bool   `json:"actual_state"`
	GPIO        int    `json:"gpio"`
	Icon        string `json:"icon"`
	InvertLogic bool   `json:"invert_logic"`
}

// RelayResult is the response to a toggle or set request.
type RelayResult struct {
	RelayID     string `json:"relay_id"`
	State       bool   `json:"state"`
	ActualState bool   `json:"actual_state"`
	Message     string `json:"message"`
}

// FileInfo is one printable file on the controller's USB share.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// DiskUsage is the USB share space report.
type DiskUsage struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

// PluginInfo is one controller plugin's metadata.
type PluginInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Loaded      bool   `json:"loaded"`
}
