// Package mediatypes provides shared type definitions and utilities for media
// handling across the media-filter application.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains the media Kind
// dispatch used for uploads, the error taxonomy shared by the processing and
// export paths, and filename helpers.
//
// # Kinds
//
// Uploads are dispatched by declared mime type prefix:
//
//	switch mediatypes.KindFromMIME(header.Get("Content-Type")) {
//	case mediatypes.KindImage:
//	    // image modulation path
//	case mediatypes.KindVideo:
//	    // video transcode path
//	default:
//	    // mediatypes.ErrUnsupportedMediaType
//	}
//
// # Errors
//
// ErrNoFileProvided, ErrUnsupportedMediaType and ErrInvalidParameter are
// validation errors detected before any work begins. ErrProcessingFailure
// wraps failures of the underlying image or video tool.
package mediatypes
