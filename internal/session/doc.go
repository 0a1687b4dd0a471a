// Package session holds per-user editing state: the current media asset, the
// live handle to its raw bytes, the filter parameters, the comparison split
// and the latest server-authoritative result.
//
// Handles are scoped resources. Every Acquire is paired with exactly one
// Release, performed when the asset is replaced, the session is closed or the
// session expires, so repeated uploads never accumulate live handles.
package session
