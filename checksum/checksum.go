// Package checksum computes file content digests with selectable algorithms.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	sha256 "github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// DefaultAlgorithm matches the digests md5sum produces.
const DefaultAlgorithm = "md5"

// Algorithm is a named hash constructor.
type Algorithm interface {
	// Name returns the algorithm identifier (e.g., "md5", "blake3")
	Name() string

	// New returns a fresh hash.
	New() hash.Hash
}

type algorithm struct {
	name string
	new  func() hash.Hash
}

func (a algorithm) Name() string   { return a.name }
func (a algorithm) New() hash.Hash { return a.new() }

func init() {
	Register(algorithm{name: "md5", new: md5.New})
	Register(algorithm{name: "sha1", new: sha1.New})
	Register(algorithm{name: "sha256", new: sha256.New})
	Register(algorithm{name: "blake3", new: func() hash.Hash { return blake3.New() }})
}

// Sum hashes everything read from r and returns the lowercase hex digest.
func Sum(r io.Reader, algo Algorithm) (string, error) {
	h := algo.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the hex digest of the file at path.
func File(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, err := Sum(f, algo)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum, nil
}
