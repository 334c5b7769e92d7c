// Package semantic provides an embedding index used as the similarity
// collaborator for duplicate detection.
package semantic

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Errors returned by index operations.
var (
	ErrIndexNotFound      = errors.New("semantic index not found")
	ErrDocumentNotIndexed = errors.New("document not in semantic index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

const (
	// IndexFileName is the name of the index file under the cache directory.
	IndexFileName = "semantic.gob"

	// MinTextLength is the minimum title+abstract length worth embedding;
	// shorter texts lack semantic content for reliable similarity.
	MinTextLength = 50

	// MaxTextLength truncates long texts before embedding to stay inside
	// the embedding model's context window.
	MaxTextLength = 8000

	// CurrentIndexVersion is the format version for compatibility checking.
	CurrentIndexVersion = 1
)

// Index holds embeddings for indexed documents, keyed by document ID.
type Index struct {
	Version int `json:"version"`

	ModelName     string    `json:"model_name"`
	Dimensions    int       `json:"dimensions"`
	CreatedAt     time.Time `json:"created_at"`
	DocumentCount int       `json:"document_count"`
	SkippedCount  int       `json:"skipped_count"`

	Embeddings map[int64][]float32 `json:"-"`
}

// NewIndex creates a new empty index.
func NewIndex(modelName string, dimensions int) *Index {
	return &Index{
		Version:    CurrentIndexVersion,
		ModelName:  modelName,
		Dimensions: dimensions,
		CreatedAt:  time.Now(),
		Embeddings: make(map[int64][]float32),
	}
}

// Add records a document embedding.
func (idx *Index) Add(documentID int64, embedding []float32) error {
	if len(embedding) != idx.Dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), idx.Dimensions)
	}
	idx.Embeddings[documentID] = embedding
	idx.DocumentCount = len(idx.Embeddings)
	return nil
}

// Has reports whether a document is in the index.
func (idx *Index) Has(documentID int64) bool {
	_, ok := idx.Embeddings[documentID]
	return ok
}

// IndexPath returns the path of the index file under a cache directory.
func IndexPath(cacheDir string) string {
	return filepath.Join(cacheDir, IndexFileName)
}

// Save persists the index using GOB encoding, writing via a temp file so a
// crash never leaves a truncated index behind.
func (idx *Index) Save(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	indexPath := IndexPath(cacheDir)
	tempPath := indexPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(idx); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, indexPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load reads the index from a cache directory.
func Load(cacheDir string) (*Index, error) {
	f, err := os.Open(IndexPath(cacheDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var idx Index
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}
	if idx.Embeddings == nil {
		idx.Embeddings = make(map[int64][]float32)
	}

	return &idx, nil
}
