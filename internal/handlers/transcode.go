package handlers

import (
	"net/http"

	"media-filter/internal/logging"
)

// ClearOutputs removes every processed file.
// POST /api/outputs/clear
func (h *Handlers) ClearOutputs(w http.ResponseWriter, _ *http.Request) {
	freedBytes, err := h.transcoder.ClearOutputs()
	if err != nil {
		logging.Error("Failed to clear processed outputs: %v", err)
		writeJSONError(w, "Failed to clear processed outputs", http.StatusInternalServerError)
		return
	}

	logging.Info("Processed outputs cleared, freed %d bytes", freedBytes)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"success":    true,
		"freedBytes": freedBytes,
	})
}
