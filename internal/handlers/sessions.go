package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"media-filter/internal/export"
	"media-filter/internal/filesystem"
	"media-filter/internal/filter"
	"media-filter/internal/logging"
	"media-filter/internal/mediatypes"
	"media-filter/internal/preview"
	"media-filter/internal/session"
	"media-filter/internal/transcoder"

	"github.com/gorilla/mux"
)

func (h *Handlers) lookupSession(r *http.Request) (*session.Session, error) {
	id := mux.Vars(r)["id"]
	s, ok := h.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return s, nil
}

// CreateSession starts an editing session for an uploaded file.
// POST /api/sessions (multipart field "file")
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	up, err := h.receiveUpload(w, r, "file", false)
	if err != nil {
		writeError(w, err)
		return
	}

	describe(r.Context(), &up.asset)
	s := h.sessions.Create(up.asset)
	if up.params != s.Profile().Defaults() {
		if _, err := s.SetParameters(up.params); err != nil {
			writeError(w, err)
			return
		}
	}

	w.Header().Set("Location", "/api/sessions/"+s.ID)
	writeJSONStatusCode(w, http.StatusCreated, s.View())
}

// GetSession returns the session state.
// GET /api/sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, s.View())
}

// DeleteSession tears a session down and releases its asset.
// DELETE /api/sessions/{id}
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(mux.Vars(r)["id"]) {
		writeError(w, errSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceAsset swaps the session's file. Parameters return to their defaults
// and any processed result is dropped; the split position is kept.
// PUT /api/sessions/{id}/asset (multipart field "file")
func (h *Handlers) ReplaceAsset(w http.ResponseWriter, r *http.Request) {
	s, err := h.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	up, err := h.receiveUpload(w, r, "file", false)
	if err != nil {
		writeError(w, err)
		return
	}

	describe(r.Context(), &up.asset)
	if err := s.Replace(up.asset); err != nil {
		discardUpload(up)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.View())
}

// UpdateFilters changes any of brightness, contrast and sharpness. Missing
// fields keep their current value; values are clamped to the profile.
// PUT /api/sessions/{id}/filters
func (h *Handlers) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	s, err := h.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	get, err := valueGetter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	params, err := s.Profile().ParseFormOver(s.Params(), get)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.SetParameters(params); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.View())
}

// UpdateSplit moves the comparison slider.
// PUT /api/sessions/{id}/split
func (h *Handlers) UpdateSplit(w http.ResponseWriter, r *http.Request) {
	s, err := h.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	get, err := valueGetter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	position, err := s.Slider().SetFromInput(get("position"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]float64{"split": position})
}

// parsePreviewOptions reads ?t= (seconds) and ?width= (pixels).
func parsePreviewOptions(r *http.Request) (preview.Options, error) {
	var opts preview.Options
	q := r.URL.Query()

	if raw := q.Get("t"); raw != "" {
		secs, err := filter.ParseValue(raw)
		if err != nil || secs < 0 {
			return opts, fmt.Errorf("%w: t=%q", mediatypes.ErrInvalidParameter, raw)
		}
		opts.At = time.Duration(secs * float64(time.Second))
	}

	if raw := q.Get("width"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil || width <= 0 {
			return opts, fmt.Errorf("%w: width=%q", mediatypes.ErrInvalidParameter, raw)
		}
		opts.MaxWidth = width
	}
	return opts, nil
}

// GetPreview renders the before/after comparison frame as JPEG.
// GET /api/sessions/{id}/preview?t=&width=
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	s, err := h.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	opts, err := parsePreviewOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	img, err := h.renderer.Render(r.Context(), s.Asset(), s.Effect(), s.Split(), opts)
	if err != nil {
		logging.Warn("Preview failed for session %s: %v", s.ID, err)
		writeJSONError(w, "preview could not be rendered", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Encode(&buf, img); err != nil {
		logging.Error("Preview encode failed for session %s: %v", s.ID, err)
		writeJSONError(w, "preview could not be encoded", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.Debug("Preview write for session %s aborted: %v", s.ID, err)
	}
}

// TranscodeSession runs the server-authoritative processor with the
// session's current parameters and stores the result on the session.
// POST /api/sessions/{id}/transcode
func (h *Handlers) TranscodeSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	asset := s.Asset()
	res, err := h.transcoder.Process(r.Context(), transcoder.Request{
		Filename:  asset.Filename,
		MimeType:  asset.MimeType,
		InputPath: asset.Path,
		Size:      asset.Size,
		Params:    s.Params(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	processed := export.ToProcessed(res, asset)
	if err := s.SetProcessed(processed); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ProcessResponse{
		Message:       "File processed successfully",
		OriginalPath:  asset.Filename,
		ProcessedPath: res.PublicURL,
		JobID:         res.JobID,
	})
}

// ExportSession downloads the export artifact. For videos, ?transcode=true
// runs a transcode when none matches the current parameters; without it a
// missing result is a 409.
// GET /api/sessions/{id}/export
func (h *Handlers) ExportSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.lookupSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	transcode, _ := strconv.ParseBool(r.URL.Query().Get("transcode"))
	art, err := h.exporter.Export(r.Context(), s, export.VideoOptions{Transcode: transcode})
	if err != nil {
		writeError(w, err)
		return
	}
	defer art.Close()

	var body io.ReadSeeker
	if art.Data != nil {
		body = bytes.NewReader(art.Data)
	} else {
		f, err := filesystem.Open(art.Path, filesystem.DefaultRetryConfig())
		if err != nil {
			logging.Warn("Export file for session %s vanished: %v", s.ID, err)
			writeError(w, export.ErrExportNotReady)
			return
		}
		defer f.Close()
		body = f
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, art.Filename, art.ModTime, body)
}
