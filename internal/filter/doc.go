// Package filter holds the filter parameter model and its mapping to an
// ordered effect description.
//
// The same Effect value drives every rendition of the filter: the CSS string
// handed to browser previews, the ffmpeg -vf chain used for video transcodes,
// and the raster pipeline used for server previews, image exports and image
// transcodes. Operations are always composed in the order
//
//	grayscale(100%) -> brightness -> contrast -> sharpness
//
// Sharpness is signed. Positive values map to an unsharp-mask sharpen with
// sigma s/20, negative values to a gaussian blur with radius -s/10 px, and
// zero to the identity.
package filter
