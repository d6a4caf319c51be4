package object

import (
	"context"
	"errors"
	"io"
	"path"

	"cv-analyzer/internal/shared/util"
)

// ErrNotFound is returned by Open when a key has no stored object.
var ErrNotFound = errors.New("object not found")

// Store defines the contract for saving and retrieving uploaded CV files.
type Store interface {
	// Save writes r under namespace and returns the storage key and byte count.
	Save(ctx context.Context, namespace, fileName, contentType string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the storage key for fileName inside namespace.
// Names that cannot be sanitized are replaced by a hash-derived name.
func Key(namespace, fileName string) string {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		name = util.FallbackName(fileName)
	}
	return path.Join(namespace, name)
}

// SessionNamespace is the key prefix used for a session's uploaded CV.
func SessionNamespace(sessionID string) string {
	return path.Join("cv", sessionID)
}

// CountingReader counts bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
