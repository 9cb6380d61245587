// Package uploader sends cached recordings to the remote store. The
// engine only sees the Uploader interface; the HTTP wire format and auth
// headers live here.
package uploader
