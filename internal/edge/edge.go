// Package edge defines the citation edge domain type and its dedup hashing.
package edge

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Origin values record where an edge came from.
const (
	OriginBibliography = "bibliography" // parsed from a bibliography file
	OriginText         = "text"         // extracted from document body text
	OriginMetadata     = "metadata"     // supplied by an external metadata service
)

// MaxRawCiteLen bounds the stored raw mention text.
const MaxRawCiteLen = 500

// Edge represents a directed citation from one document to another.
// DstID == 0 means the destination has not been resolved yet.
type Edge struct {
	ID    int64 `json:"id"`
	SrcID int64 `json:"src_id"`
	DstID int64 `json:"dst_id,omitempty"`

	// RawCite is the mention text as it appeared in the source.
	RawCite string `json:"raw_cite,omitempty"`

	// DstKey is the best-guess destination key parsed from the mention
	// (a DOI, arXiv ID, or anthology ID), empty if none was found.
	DstKey string `json:"dst_key,omitempty"`

	Origin string `json:"origin"`

	// CiteHash is the SHA-256 of the normalized mention text.
	// (SrcID, CiteHash) is unique: re-extraction never duplicates an edge.
	CiteHash string `json:"cite_hash"`

	// Unmatched carries the identifiers of a metadata-sourced reference
	// that could not be matched to a library document. Nil otherwise.
	Unmatched *UnmatchedRef `json:"unmatched,omitempty"`
}

// UnmatchedRef is the structured payload kept on unresolved metadata edges
// so the reference can later be imported as a new document.
type UnmatchedRef struct {
	ProviderID  string            `json:"provider_id,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	Title       string            `json:"title,omitempty"`
}

// Validation errors.
var (
	ErrEmptySrcID   = errors.New("src_id is required")
	ErrEmptyHash    = errors.New("cite_hash is required")
	ErrEmptyOrigin  = errors.New("origin is required")
	ErrSelfCitation = errors.New("src_id and dst_id cannot be the same")
)

// Resolved reports whether the edge's destination has been bound.
func (e *Edge) Resolved() bool {
	return e.DstID != 0
}

// ValidateForCreate validates an edge before insertion.
func (e *Edge) ValidateForCreate() error {
	if e.SrcID == 0 {
		return ErrEmptySrcID
	}
	if e.CiteHash == "" {
		return ErrEmptyHash
	}
	if e.Origin == "" {
		return ErrEmptyOrigin
	}
	if e.DstID != 0 && e.DstID == e.SrcID {
		return ErrSelfCitation
	}
	return nil
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeMention lowercases and whitespace-collapses mention text.
// Two mentions that normalize identically are considered the same citation.
func NormalizeMention(raw string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(strings.ToLower(raw)), " ")
}

// MentionHash computes the dedup hash of a raw mention.
func MentionHash(raw string) string {
	sum := sha256.Sum256([]byte(NormalizeMention(raw)))
	return hex.EncodeToString(sum[:])
}

// MetadataHash computes the dedup hash for a metadata-sourced edge.
// Matched references hash on the destination document; unmatched ones hash
// on the provider's paper ID so repeated provider calls add nothing new.
func MetadataHash(srcID int64, dstID int64, providerID string) string {
	var key string
	if dstID != 0 {
		key = "metadata:" + strconv.FormatInt(srcID, 10) + ":" + strconv.FormatInt(dstID, 10)
	} else {
		key = "metadata:" + strconv.FormatInt(srcID, 10) + ":ext:" + providerID
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// TruncateRawCite bounds mention text to the stored limit.
func TruncateRawCite(raw string) string {
	return Truncate(raw, MaxRawCiteLen)
}

// Truncate bounds s to at most max bytes without splitting a UTF-8 rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
