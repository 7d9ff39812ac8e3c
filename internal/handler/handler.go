package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"storenet/internal/domain"
	"storenet/internal/repository"
	"storenet/internal/service"
)

// maxBodyBytes bounds request bodies, including imported documents
const maxBodyBytes = 8 << 20

// TopologyHandler handles topology API requests
type TopologyHandler struct {
	svc    *service.TopologyService
	logger *zap.Logger
}

// NewTopologyHandler creates a new topology handler
func NewTopologyHandler(svc *service.TopologyService, logger *zap.Logger) *TopologyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopologyHandler{svc: svc, logger: logger.Named("api")}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GetTopology returns the live topology with power and findings
func (h *TopologyHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Snapshot(), http.StatusOK)
}

// GetGraph returns the topology as nodes and edges for the floor plan view
func (h *TopologyHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Graph(), http.StatusOK)
}

// GetFindings returns the current validation findings
func (h *TopologyHandler) GetFindings(w http.ResponseWriter, r *http.Request) {
	findings := h.svc.Findings()
	if findings == nil {
		findings = []domain.Finding{}
	}
	h.writeJSON(w, findings, http.StatusOK)
}

// GetCatalog returns every device definition
func (h *TopologyHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, domain.Catalog(), http.StatusOK)
}

// CreateDeviceRequest is the body of POST /api/devices
type CreateDeviceRequest struct {
	Type     domain.DeviceType `json:"type"`
	Label    string            `json:"label,omitempty"`
	Position *domain.Position  `json:"position,omitempty"`
}

// CreateDevice adds a device from the catalog
func (h *TopologyHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req CreateDeviceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		h.writeError(w, "Invalid device", "type is required", http.StatusBadRequest)
		return
	}

	d, err := h.svc.AddDevice(req.Type, req.Label, req.Position)
	if err != nil {
		h.fail(w, "Failed to add device", err)
		return
	}
	h.writeJSON(w, d, http.StatusCreated)
}

// GetDevice returns a single device
func (h *TopologyHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Device(r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get device", err)
		return
	}
	h.writeJSON(w, d, http.StatusOK)
}

// UpdateDevice applies a manual override to a device
func (h *TopologyHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	var override service.DeviceOverride
	if !h.decode(w, r, &override) {
		return
	}

	d, err := h.svc.SetDeviceOverride(r.PathValue("id"), override)
	if err != nil {
		h.fail(w, "Failed to update device", err)
		return
	}
	h.writeJSON(w, d, http.StatusOK)
}

// DeleteDevice removes a device and its cables
func (h *TopologyHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveDevice(r.PathValue("id")); err != nil {
		h.fail(w, "Failed to delete device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PowerCycleResponse reports the virtual clock time at which a power-cycled
// device comes back
type PowerCycleResponse struct {
	DeviceID      string  `json:"device_id"`
	BootAtSeconds float64 `json:"boot_at_seconds"`
}

// PowerCycle reboots a device
func (h *TopologyHandler) PowerCycle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	at, err := h.svc.PowerCycle(id)
	if err != nil {
		h.fail(w, "Failed to power cycle device", err)
		return
	}
	h.writeJSON(w, PowerCycleResponse{DeviceID: id, BootAtSeconds: at.Seconds()}, http.StatusAccepted)
}

// WirelessRequest is the body of PUT /api/devices/{id}/wireless
type WirelessRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// SetWireless joins a wifi client to a network
func (h *TopologyHandler) SetWireless(w http.ResponseWriter, r *http.Request) {
	var req WirelessRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.svc.SetWirelessConfig(r.PathValue("id"), req.SSID, req.Password)
	if err != nil {
		h.fail(w, "Failed to configure wireless", err)
		return
	}
	h.writeJSON(w, d, http.StatusOK)
}

// HostingRequest is the body of PUT /api/devices/{id}/hosting
type HostingRequest struct {
	Networks []domain.HostedNetwork `json:"networks"`
}

// SetHosting sets the networks an access point broadcasts
func (h *TopologyHandler) SetHosting(w http.ResponseWriter, r *http.Request) {
	var req HostingRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.svc.SetWifiHosting(r.PathValue("id"), req.Networks)
	if err != nil {
		h.fail(w, "Failed to configure wifi hosting", err)
		return
	}
	h.writeJSON(w, d, http.StatusOK)
}

// ConnectRequest is the body of POST /api/connections
type ConnectRequest struct {
	PortA string `json:"port_a"`
	PortB string `json:"port_b"`
}

// CreateConnection cables two ports together
func (h *TopologyHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PortA == "" || req.PortB == "" {
		h.writeError(w, "Invalid connection", "port_a and port_b are required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Connect(req.PortA, req.PortB); err != nil {
		h.fail(w, "Failed to connect ports", err)
		return
	}
	h.writeJSON(w, req, http.StatusCreated)
}

// DeleteConnection unplugs the cable on a port
func (h *TopologyHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disconnect(r.PathValue("port")); err != nil {
		h.fail(w, "Failed to disconnect port", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

// statusFor maps service and domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDeviceNotFound),
		errors.Is(err, domain.ErrPortNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPowerDataMismatch),
		errors.Is(err, domain.ErrSelfLoop),
		errors.Is(err, domain.ErrWirelessUnsupported),
		errors.Is(err, domain.ErrHostingUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrUnknownDeviceType),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoRepository):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *TopologyHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Info(msg, zap.Int("status", status), zap.Error(err))
	}
	h.writeError(w, msg, err.Error(), status)
}

// decode reads a JSON body into v, answering 400 on failure
func (h *TopologyHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode JSON", zap.Error(err))
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
