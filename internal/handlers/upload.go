package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"media-filter/internal/filter"
	"media-filter/internal/logging"
	"media-filter/internal/media"
	"media-filter/internal/mediatypes"
	"media-filter/internal/metrics"
	"media-filter/internal/session"
	"media-filter/internal/transcoder"

	"github.com/google/uuid"
)

// multipartMemory is how much of a multipart body is held in memory before
// the rest spills to temporary files.
const multipartMemory = 32 << 20

// upload is a received multipart file together with its filter fields.
type upload struct {
	asset  session.Asset
	params filter.Parameters
}

// receiveUpload reads the multipart file in field, validates its media kind
// and filter fields, and only then stores it in the upload directory.
// Rejected requests leave nothing on disk. With strict set, out-of-range
// filter values are rejected instead of clamped.
func (h *Handlers) receiveUpload(w http.ResponseWriter, r *http.Request, field string, strict bool) (*upload, error) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.UploadRequestsTotal.WithLabelValues("too_large").Inc()
			return nil, fmt.Errorf("%w: limit is %d bytes", errUploadTooLarge, tooLarge.Limit)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			metrics.UploadRequestsTotal.WithLabelValues("rejected").Inc()
			return nil, mediatypes.ErrNoFileProvided
		}
		return nil, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile(field)
	if err != nil {
		metrics.UploadRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, mediatypes.ErrNoFileProvided
	}
	defer file.Close()

	if header.Size == 0 {
		metrics.UploadRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, mediatypes.ErrNoFileProvided
	}

	mimeType := mediatypes.ResolveMIME(header.Header.Get("Content-Type"), header.Filename)
	kind := mediatypes.KindFromMIME(mimeType)
	if kind == mediatypes.KindUnsupported {
		metrics.UploadRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %q", mediatypes.ErrUnsupportedMediaType, mimeType)
	}

	parse := h.profile.ParseForm
	if strict {
		parse = h.profile.ParseFormStrict
	}
	params, err := parse(r.FormValue)
	if err != nil {
		metrics.UploadRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	path := filepath.Join(h.uploadDir, transcoder.UniqueName(header.Filename))
	size, err := saveFile(file, path)
	if err != nil {
		metrics.UploadRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	metrics.UploadRequestsTotal.WithLabelValues("accepted").Inc()
	logging.Debug("Stored upload %s (%s, %d bytes) at %s", header.Filename, mimeType, size, path)

	return &upload{
		asset: session.Asset{
			ID:       uuid.NewString(),
			Kind:     kind,
			Filename: header.Filename,
			MimeType: mimeType,
			Size:     size,
			Path:     path,
		},
		params: params,
	}, nil
}

// describe fills in the dimensions of a stored asset. Probe failures are
// logged and leave the fields empty.
func describe(ctx context.Context, asset *session.Asset) {
	if asset.IsVideo() {
		info, err := media.ProbeVideo(ctx, asset.Path)
		if err != nil {
			logging.Debug("Could not probe %s: %v", asset.Filename, err)
			return
		}
		asset.Width, asset.Height, asset.Duration = info.Width, info.Height, info.Duration
		return
	}

	dims, err := media.GetImageDimensions(asset.Path)
	if err != nil {
		logging.Debug("Could not read dimensions of %s: %v", asset.Filename, err)
		return
	}
	asset.Width, asset.Height = dims.Width, dims.Height
}

func saveFile(src io.Reader, path string) (int64, error) {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

// discardUpload removes a stored upload that will not be used.
func discardUpload(u *upload) {
	if err := os.Remove(u.asset.Path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove upload %s: %v", u.asset.Path, err)
	}
}
