// Package storage keeps uploaded asset content. Projects only hold the
// returned Ref; the bytes live here.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/designwheel/engine/pkg/utils"
)

// Object describes stored content.
type Object struct {
	Ref         string `json:"ref"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store is the asset content backend.
type Store interface {
	// Put stores data and returns its reference. Identical content under the
	// same name yields the same Ref.
	Put(ctx context.Context, name, contentType string, data []byte) (Object, error)
	// URL returns a link a browser can fetch the content from.
	URL(ctx context.Context, ref string) (string, error)
	// Open streams stored content.
	Open(ctx context.Context, ref string) (io.ReadCloser, Object, error)
}

// ObjectKey derives the content-addressed key for an upload.
func ObjectKey(name string, data []byte) string {
	return "assets/" + utils.SumSHA256Hex(data) + "/" + SafeName(name)
}

// SafeName reduces a client supplied file name to a single path element.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "upload"
	}
	return base
}

// NameFromRef returns the file name element of a reference.
func NameFromRef(ref string) string { return path.Base(ref) }

// ValidRef rejects references that do not look like ObjectKey output.
func ValidRef(ref string) bool {
	parts := strings.Split(ref, "/")
	return len(parts) == 3 && parts[0] == "assets" && len(parts[1]) == 64 && parts[2] != "" && parts[2] != ".."
}
