package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"storenet/internal/loader"
	"storenet/internal/repository"
	"storenet/internal/scenario"
)

// maxAdvance bounds a single manual clock advance
const maxAdvance = 24 * time.Hour

// Register installs the API routes on mux
func (h *TopologyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/topology", h.GetTopology)
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("GET /api/findings", h.GetFindings)
	mux.HandleFunc("GET /api/catalog", h.GetCatalog)

	// Device endpoints
	mux.HandleFunc("POST /api/devices", h.CreateDevice)
	mux.HandleFunc("GET /api/devices/{id}", h.GetDevice)
	mux.HandleFunc("PATCH /api/devices/{id}", h.UpdateDevice)
	mux.HandleFunc("DELETE /api/devices/{id}", h.DeleteDevice)
	mux.HandleFunc("POST /api/devices/{id}/power-cycle", h.PowerCycle)
	mux.HandleFunc("PUT /api/devices/{id}/wireless", h.SetWireless)
	mux.HandleFunc("PUT /api/devices/{id}/hosting", h.SetHosting)

	// Cabling
	mux.HandleFunc("POST /api/connections", h.CreateConnection)
	mux.HandleFunc("DELETE /api/connections/{port}", h.DeleteConnection)

	// Saved topologies
	mux.HandleFunc("GET /api/topologies", h.ListTopologies)
	mux.HandleFunc("POST /api/topologies/{name}", h.SaveTopology)
	mux.HandleFunc("GET /api/topologies/{name}", h.LoadTopology)
	mux.HandleFunc("DELETE /api/topologies/{name}", h.DeleteTopology)
	mux.HandleFunc("GET /api/topologies/{name}/revisions", h.ListRevisions)
	mux.HandleFunc("POST /api/revisions/{id}/restore", h.RestoreRevision)

	// Import/export
	mux.HandleFunc("POST /api/import/{format}", h.Import)
	mux.HandleFunc("GET /api/export/{format}", h.Export)

	mux.HandleFunc("POST /api/scenario", h.GenerateScenario)
	mux.HandleFunc("POST /api/clock/advance", h.AdvanceClock)
}

// ListTopologies lists the saved topologies
func (h *TopologyHandler) ListTopologies(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListSaved(r.Context())
	if err != nil {
		h.fail(w, "Failed to list topologies", err)
		return
	}
	if list == nil {
		list = []repository.TopologySummary{}
	}
	h.writeJSON(w, list, http.StatusOK)
}

// SaveTopology stores the live topology under a name
func (h *TopologyHandler) SaveTopology(w http.ResponseWriter, r *http.Request) {
	rev, err := h.svc.Save(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, "Failed to save topology", err)
		return
	}
	h.writeJSON(w, rev, http.StatusCreated)
}

// LoadTopology replaces the live topology with a saved one
func (h *TopologyHandler) LoadTopology(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Load(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, "Failed to load topology", err)
		return
	}
	h.writeLoaded(w, report)
}

// DeleteTopology removes a saved topology and its revisions
func (h *TopologyHandler) DeleteTopology(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSaved(r.Context(), r.PathValue("name")); err != nil {
		h.fail(w, "Failed to delete topology", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRevisions returns the revision history of a saved topology, newest
// first. The optional limit query parameter caps the result.
func (h *TopologyHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", fmt.Sprintf("limit must be a non-negative integer, got %q", raw), http.StatusBadRequest)
			return
		}
		limit = n
	}

	revs, err := h.svc.Revisions(r.Context(), r.PathValue("name"), limit)
	if err != nil {
		h.fail(w, "Failed to list revisions", err)
		return
	}
	if revs == nil {
		revs = []repository.Revision{}
	}
	h.writeJSON(w, revs, http.StatusOK)
}

// RestoreRevision replaces the live topology with a past revision
func (h *TopologyHandler) RestoreRevision(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to restore revision", err)
		return
	}
	h.writeLoaded(w, report)
}

// Import replaces the live topology with an uploaded JSON or YAML document
func (h *TopologyHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.svc.Import(r.PathValue("format"), data)
	if err != nil {
		h.fail(w, "Failed to import topology", err)
		return
	}
	h.writeLoaded(w, report)
}

// Export downloads the live topology as JSON or YAML
func (h *TopologyHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
	case "yaml", "yml":
		w.Header().Set("Content-Type", "application/x-yaml")
	default:
		h.writeError(w, "Unsupported format", fmt.Sprintf("cannot export %q", format), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=topology."+format)

	if err := h.svc.Export(format, w); err != nil {
		// Can't write error response as we already set headers
		h.logger.Error("failed to export topology", zap.String("format", format), zap.Error(err))
	}
}

// GenerateScenario replaces the live topology with a generated store. An
// empty body uses the default profile; fields left out keep their defaults.
func (h *TopologyHandler) GenerateScenario(w http.ResponseWriter, r *http.Request) {
	profile := scenario.DefaultProfile()
	if r.ContentLength != 0 {
		if !h.decode(w, r, &profile) {
			return
		}
	}

	if err := h.svc.GenerateScenario(profile); err != nil {
		h.fail(w, "Failed to generate scenario", err)
		return
	}
	h.writeJSON(w, h.svc.Snapshot(), http.StatusCreated)
}

// AdvanceRequest is the body of POST /api/clock/advance
type AdvanceRequest struct {
	Seconds float64 `json:"seconds"`
}

// AdvanceClock moves the simulation clock forward, completing due boots
func (h *TopologyHandler) AdvanceClock(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	d := time.Duration(req.Seconds * float64(time.Second))
	if d <= 0 || d > maxAdvance {
		h.writeError(w, "Invalid advance", fmt.Sprintf("seconds must be in (0, %g]", maxAdvance.Seconds()), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, h.svc.Advance(d), http.StatusOK)
}

// LoadResponse is returned after a topology replacement
type LoadResponse struct {
	Migration loader.Report `json:"migration"`
	Devices   int           `json:"devices"`
	Findings  int           `json:"findings"`
}

func (h *TopologyHandler) writeLoaded(w http.ResponseWriter, report loader.Report) {
	snap := h.svc.Snapshot()
	h.writeJSON(w, LoadResponse{
		Migration: report,
		Devices:   len(snap.Devices),
		Findings:  len(snap.Findings),
	}, http.StatusOK)
}
