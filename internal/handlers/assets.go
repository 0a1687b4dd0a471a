package handlers

import (
	"net/http"
	"strconv"

	"media-filter/internal/database"
	"media-filter/internal/filesystem"
	"media-filter/internal/filter"
	"media-filter/internal/logging"

	"github.com/gorilla/mux"
)

// GetHandle serves the raw bytes of a live asset handle. Released handles
// are gone.
// GET /api/handles/{token}
func (h *Handlers) GetHandle(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.sessions.Registry().Lookup(mux.Vars(r)["token"])
	if !ok {
		writeError(w, errHandleNotFound)
		return
	}

	f, err := filesystem.Open(asset.Path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Handle file missing for %s: %v", asset.Filename, err)
		writeError(w, errHandleNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", asset.MimeType)
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, asset.Filename, info.ModTime(), f)
}

// EffectResponse describes the effect for a set of parameters.
type EffectResponse struct {
	Params   filter.Parameters `json:"params"`
	Effect   filter.Effect     `json:"effect"`
	CSS      string            `json:"css"`
	CSSExact bool              `json:"cssExact"`
	FFmpeg   string            `json:"ffmpeg"`
}

// GetEffect computes the effect descriptor without a session, so clients can
// render previews locally.
// GET /api/effect?brightness=&contrast=&sharpness=
func (h *Handlers) GetEffect(w http.ResponseWriter, r *http.Request) {
	params, err := h.profile.ParseForm(r.URL.Query().Get)
	if err != nil {
		writeError(w, err)
		return
	}

	effect := filter.ComputeEffect(params)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, EffectResponse{
		Params:   params,
		Effect:   effect,
		CSS:      effect.CSS(),
		CSSExact: effect.CSSExact(),
		FFmpeg:   effect.FFmpegFilter(),
	})
}

// GetProfile returns the parameter ranges in effect.
// GET /api/profile
func (h *Handlers) GetProfile(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, h.profile)
}

// ListUploads returns recent upload records, newest first.
// GET /api/uploads?status=&limit=
func (h *Handlers) ListUploads(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", database.StatusPending, database.StatusCompleted, database.StatusFailed:
	default:
		writeJSONError(w, "unknown status "+strconv.Quote(status), http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	uploads, err := h.db.ListUploads(r.Context(), status, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if uploads == nil {
		uploads = []database.Upload{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, uploads)
}
