package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"media-filter/internal/mediatypes"
	"media-filter/internal/transcoder"
)

// ProcessResponse is returned by POST /api/process.
type ProcessResponse struct {
	Message       string `json:"message"`
	OriginalPath  string `json:"originalPath"`
	ProcessedPath string `json:"processedPath"`
	JobID         string `json:"jobId"`
}

// processFailure is the body of a 500 from the upload endpoints.
type processFailure struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// runUpload receives the file in field and processes it. want restricts the
// accepted kind; KindUnsupported accepts both images and videos.
func (h *Handlers) runUpload(w http.ResponseWriter, r *http.Request, field string, want mediatypes.Kind) (*transcoder.Result, bool) {
	up, err := h.receiveUpload(w, r, field, true)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	if want != mediatypes.KindUnsupported && up.asset.Kind != want {
		discardUpload(up)
		writeError(w, fmt.Errorf("%w: expected %s, got %q", mediatypes.ErrUnsupportedMediaType, want, up.asset.MimeType))
		return nil, false
	}

	res, err := h.transcoder.Process(r.Context(), transcoder.Request{
		Filename:  up.asset.Filename,
		MimeType:  up.asset.MimeType,
		InputPath: up.asset.Path,
		Size:      up.asset.Size,
		Params:    up.params,
	})
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			writeJSONStatusCode(w, http.StatusInternalServerError, processFailure{
				Message: "Error processing file",
				Error:   err.Error(),
			})
		} else {
			discardUpload(up)
			writeError(w, err)
		}
		return nil, false
	}
	return res, true
}

// ProcessUpload handles a single upload with optional filter fields.
// POST /api/process (multipart field "file")
func (h *Handlers) ProcessUpload(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runUpload(w, r, "file", mediatypes.KindUnsupported)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ProcessResponse{
		Message:       "File processed successfully",
		OriginalPath:  filepath.Base(res.OriginalPath),
		ProcessedPath: res.PublicURL,
		JobID:         res.JobID,
	})
}

// ProcessImage handles an image upload.
// POST /api/image/process (multipart field "image")
func (h *Handlers) ProcessImage(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runUpload(w, r, "image", mediatypes.KindImage)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"imageUrl": res.PublicURL})
}

// ProcessVideo handles a video upload. Listeners on the push channel also
// receive a processedVideo event.
// POST /api/video/process (multipart field "video")
func (h *Handlers) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runUpload(w, r, "video", mediatypes.KindVideo)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"videoUrl": res.PublicURL})
}
