package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/resinportal/gateway/internal/config"
	"github.com/resinportal/gateway/internal/controller"
	"github.com/resinportal/gateway/internal/poller"
)

// Server is the gateway HTTP server. It serves the embedded dashboard,
// answers status reads from the poller cache, and forwards actions to the
// controller.
type Server struct {
	config   *config.Config
	client   *controller.Client
	poller   *poller.Poller
	logs     *ActivityLog
	commands *CommandLog
	hub      *Hub
	mux      *http.ServeMux
	httpSrv  *http.Server

	relayMu    sync.Mutex
	lastRelays map[string]controller.RelayState
}

// NewServer creates the gateway server and wires the status hub.
func NewServer(cfg *config.Config, client *controller.Client, p *poller.Poller, logs *ActivityLog) *Server {
	s := &Server{
		config:   cfg,
		client:   client,
		poller:   p,
		logs:     logs,
		commands: NewCommandLog(cfg.UI.CommandHistory),
		hub:      NewHub(),
		mux:      http.NewServeMux(),
	}

	s.hub.Run(p.Subscribe())
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: s.mux,
	}
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// Status
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	// Printer commands
	s.mux.HandleFunc("POST /api/printer/move_z", s.handleMoveZ)
	s.mux.HandleFunc("POST /api/printer/select_file", s.handleSelectFile)
	s.mux.HandleFunc("POST /api/printer/print_file", s.handlePrintFile)
	s.mux.HandleFunc("POST /api/printer/{action}", s.handleCommand)

	// Files
	s.mux.HandleFunc("GET /api/files", s.handleFiles)
	s.mux.HandleFunc("POST /api/files/delete", s.handleDeleteFile)

	// Relays
	s.mux.HandleFunc("GET /api/relays", s.handleRelays)
	s.mux.HandleFunc("POST /api/relays/{id}/toggle", s.handleRelayToggle)
	s.mux.HandleFunc("POST /api/relays/{id}/set", s.handleRelaySet)

	// USB mass-storage gadget
	s.mux.HandleFunc("GET /api/usb/status", s.handleUSBStatus)
	s.mux.HandleFunc("GET /api/usb/installation", s.handleUSBInstallation)
	s.mux.HandleFunc("POST /api/usb/{action}", s.handleUSBAction)

	// Controller configuration
	s.mux.HandleFunc("GET /api/config", s.handleGetConfig)
	s.mux.HandleFunc("POST /api/config", s.handleSetConfig)
	s.mux.HandleFunc("POST /api/config/bulk", s.handleSetConfigBulk)
	s.mux.HandleFunc("POST /api/config/reset", s.handleResetConfig)
	s.mux.HandleFunc("GET /api/config/export", s.handleExportConfig)
	s.mux.HandleFunc("POST /api/config/import", s.handleImportConfig)

	// Controller plugins
	s.mux.HandleFunc("GET /api/plugins", s.handlePlugins)
	s.mux.HandleFunc("POST /api/plugins/{name}/{action}", s.handlePluginAction)

	// History panels
	s.mux.HandleFunc("GET /api/log", s.handleLog)
	s.mux.HandleFunc("GET /api/commands", s.handleCommands)

	// Live status stream
	s.mux.HandleFunc("GET /ws", s.hub.ServeWS)

	// Dashboard
	s.mux.HandleFunc("GET /", s.handleUI)
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the status hub and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, map[string]any{"success": true, "message": message})
}

// writeError reports a failure in the envelope the dashboard turns into a
// single toast. Controller messages pass through verbatim.
func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var apiErr *controller.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	writeJSON(w, map[string]any{"success": false, "error": msg})
}

// record tracks a dispatched command for the history panel.
func (s *Server) record(action, target string, started time.Time, message string, err error) {
	rec := CommandRecord{
		Action:     action,
		Target:     target,
		At:         started,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
		log.Printf("Command %s failed: %v", action, err)
	} else {
		rec.Success = true
		rec.Message = message
		log.Printf("Command %s completed", action)
	}
	s.commands.Add(rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// statusResponse is the cached snapshot plus the last relay states seen.
type statusResponse struct {
	poller.Snapshot
	Relays map[string]controller.RelayState `json:"relays,omitempty"`
}

// handleStatus serves the poller cache; it never round-trips to the
// controller.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Snapshot: s.poller.Snapshot()}

	// The relay cache is replaced wholesale on every update, never
	// mutated, so the reference is safe to encode outside the lock.
	s.relayMu.Lock()
	resp.Relays = s.lastRelays
	s.relayMu.Unlock()

	writeJSON(w, resp)
}

// handleCommand dispatches the body-less printer commands.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	var fn func(context.Context) (string, error)
	switch action {
	case "connect":
		fn = s.client.Connect
	case "disconnect":
		fn = s.client.Disconnect
	case "pause":
		fn = s.client.Pause
	case "resume":
		fn = s.client.Resume
	case "stop":
		fn = s.client.Stop
	case "home_z":
		fn = s.client.HomeZ
	case "reboot":
		fn = s.client.Reboot
	case "recover_usb":
		fn = s.client.RecoverUSB
	default:
		http.Error(w, "unknown action: "+action, http.StatusNotFound)
		return
	}

	started := time.Now()
	msg, err := fn(r.Context())
	s.record(action, "", started, msg, err)
	if err != nil {
		writeError(w, err)
		return
	}

	// Repaint the dashboard promptly after a state-changing command
	s.poller.RefreshNow()
	writeSuccess(w, msg)
}

func (s *Server) handleMoveZ(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Distance float64 `json:"distance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	started := time.Now()
	msg, err := s.client.MoveZ(r.Context(), req.Distance)
	s.record("move_z", strconv.FormatFloat(req.Distance, 'f', -1, 64), started, msg, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, msg)
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	s.handleFileCommand(w, r, "select_file", s.client.SelectFile)
}

func (s *Server) handlePrintFile(w http.ResponseWriter, r *http.Request) {
	s.handleFileCommand(w, r, "print_file", s.client.PrintFile)
}

func (s *Server) handleFileCommand(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, string) (string, error)) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Filename == "" {
		writeError(w, errors.New("no filename provided"))
		return
	}

	started := time.Now()
	msg, err := fn(r.Context(), req.Filename)
	s.record(action, req.Filename, started, msg, err)
	if err != nil {
		writeError(w, err)
		return
	}

	s.poller.RefreshNow()
	writeSuccess(w, msg)
}

// fileEntry decorates the controller listing with a human-readable size.
type fileEntry struct {
	controller.FileInfo
	SizeHuman string `json:"size_human"`
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.client.Files(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	files := make([]fileEntry, 0, len(list.Files))
	for _, f := range list.Files {
		size := f.Size
		if size < 0 {
			size = 0
		}
		files = append(files, fileEntry{
			FileInfo:  f,
			SizeHuman: humanize.IBytes(uint64(size)),
		})
	}

	writeJSON(w, map[string]any{
		"success": true,
		"files":   files,
		"usage": map[string]any{
			"total": list.Usage.Total,
			"used":  list.Usage.Used,
			"free":  list.Usage.Free,
			"human": fmt.Sprintf("%s free of %s",
				humanize.IBytes(list.Usage.Free), humanize.IBytes(list.Usage.Total)),
		},
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	started := time.Now()
	msg, err := s.client.DeleteFile(r.Context(), req.Filename)
	s.record("delete_file", req.Filename, started, msg, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, msg)
}

func (s *Server) handleRelays(w http.ResponseWriter, r *http.Request) {
	states, err := s.client.RelayStates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	s.relayMu.Lock()
	s.lastRelays = states
	s.relayMu.Unlock()

	writeJSON(w, map[string]any{"success": true, "relays": states})
}

func (s *Server) handleRelayToggle(w http.ResponseWriter, r *http.Request) {
	relayID := r.PathValue("id")

	started := time.Now()
	res, err := s.client.ToggleRelay(r.Context(), relayID)
	if err != nil {
		s.record("toggle_relay", relayID, started, "", err)
		writeError(w, err)
		return
	}
	s.record("toggle_relay", relayID, started, res.Message, nil)

	s.cacheRelayState(res)
	writeJSON(w, map[string]any{
		"success":  true,
		"relay_id": res.RelayID,
		"state":    res.State,
		"message":  res.Message,
	})
}

func (s *Server) handleRelaySet(w http.ResponseWriter, r *http.Request) {
	relayID := r.PathValue("id")

	var req struct {
		On bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	started := time.Now()
	res, err := s.client.SetRelay(r.Context(), relayID, req.On)
	if err != nil {
		s.record("set_relay", relayID, started, "", err)
		writeError(w, err)
		return
	}
	s.record("set_relay", relayID, started, res.Message, nil)

	s.cacheRelayState(res)
	writeJSON(w, map[string]any{
		"success":  true,
		"relay_id": res.RelayID,
		"state":    res.State,
		"message":  res.Message,
	})
}

// cacheRelayState mirrors a toggle/set response into the relay cache so the
// next status read reflects it. Concurrent status reads encode the cached
// map without holding relayMu, so the update replaces the map instead of
// writing into it.
func (s *Server) cacheRelayState(res *controller.RelayResult) {
	s.relayMu.Lock()
	defer s.relayMu.Unlock()

	st, ok := s.lastRelays[res.RelayID]
	if !ok {
		return
	}
	st.State = res.State

	next := make(map[string]controller.RelayState, len(s.lastRelays))
	for id, v := range s.lastRelays {
		next[id] = v
	}
	next[res.RelayID] = st
	s.lastRelays = next
}

func (s *Server) handleUSBStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.client.USBStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "usb": st})
}

func (s *Server) handleUSBInstallation(w http.ResponseWriter, r *http.Request) {
	inst, err := s.client.CheckUSBInstallation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "installation": inst})
}

func (s *Server) handleUSBAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	var fn func(context.Context) (string, error)
	switch action {
	case "start":
		fn = s.client.StartUSBGadget
	case "stop":
		fn = s.client.StopUSBGadget
	case "install":
		fn = s.client.InstallUSBGadget
	default:
		http.Error(w, "unknown action: "+action, http.StatusNotFound)
		return
	}

	started := time.Now()
	msg, err := fn(r.Context())
	s.record(action+"_usb_gadget", "", started, msg, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, msg)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.client.AppConfig(r.Context(), r.URL.Query().Get("section"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "config": cfg})
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var edit controller.ConfigEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if edit.Section == "" || edit.Key == "" {
		writeError(w, errors.New("section and key are required"))
		return
	}

	started := time.Now()
	err := s.client.SetAppConfig(r.Context(), edit)
	s.record("set_config", edit.Section+"."+edit.Key, started, "", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Configuration updated")
}

// handleSetConfigBulk flushes a settings-modal edit session in one request.
func (s *Server) handleSetConfigBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Edits []controller.ConfigEdit `json:"edits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	batch := controller.NewEditBatch()
	for _, e := range req.Edits {
		batch.Set(e.Section, e.Key, e.Value)
	}

	started := time.Now()
	err := batch.Flush(r.Context(), s.client)
	s.record("save_config", fmt.Sprintf("%d edits", len(req.Edits)), started, "", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("Saved %d setting(s)", len(req.Edits)))
}

func (s *Server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Section string `json:"section"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	started := time.Now()
	err := s.client.ResetConfig(r.Context(), req.Section)
	s.record("reset_config", req.Section, started, "", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Configuration reset to defaults")
}

// handleExportConfig streams the controller's config document as a download.
func (s *Server) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	data, err := s.client.ExportConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="printer_config.json"`)
	w.Write(data)
}

func (s *Server) handleImportConfig(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}

	started := time.Now()
	msg, err := s.client.ImportConfig(r.Context(), header.Filename, data)
	s.record("import_config", header.Filename, started, msg, err)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg == "" {
		msg = "Configuration imported"
	}
	writeSuccess(w, msg)
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	plugins, err := s.client.Plugins(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "plugins": plugins})
}

func (s *Server) handlePluginAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	action := r.PathValue("action")

	var fn func(context.Context, string) (string, error)
	switch action {
	case "enable":
		fn = s.client.EnablePlugin
	case "disable":
		fn = s.client.DisablePlugin
	case "reload":
		fn = s.client.ReloadPlugin
	default:
		http.Error(w, "unknown action: "+action, http.StatusNotFound)
		return
	}

	started := time.Now()
	msg, err := fn(r.Context(), name)
	s.record(action+"_plugin", name, started, msg, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, msg)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	writeJSON(w, map[string]any{"success": true, "entries": s.logs.Recent(limit)})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"success": true, "commands": s.commands.Recent()})
}

// handleUI serves the embedded dashboard
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(webUI))
}
