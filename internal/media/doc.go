// Package media loads source frames for the filter pipeline.
//
// Still images are decoded with imaging (auto-orientation applied), falling
// back to libvips for formats the Go decoders cannot read and finally to an
// ffmpeg single-frame decode. Video frames are extracted with ffmpeg at a
// requested timestamp, and ProbeVideo reports duration and dimensions through
// ffprobe.
//
// EncodeJPEG is the one lossy encoder used for previews and exports so that
// identical pixels always produce identical bytes.
package media
