// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Key identifies a cached summary: the keyed BLAKE3 hash of a
// normalized URL.
type Key [32]byte

// summaryDomainKey separates summary cache keys from any other BLAKE3
// use. Changing it orphans every cached summary.
var summaryDomainKey = [32]byte{
	'c', 'h', 'a', 't', 'd', 's', 'j', '.', 's', 'u', 'm', 'm', 'a', 'r', 'y', 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// CacheKey returns the cache key for a normalized URL.
func CacheKey(normalizedURL string) Key {
	hasher, err := blake3.NewKeyed(summaryDomainKey[:])
	if err != nil {
		panic("content: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(normalizedURL))
	var key Key
	copy(key[:], hasher.Sum(nil))
	return key
}

// String returns the key as lowercase hex.
func (key Key) String() string {
	return hex.EncodeToString(key[:])
}

// ParseKey parses a hex-encoded key.
func ParseKey(value string) (Key, error) {
	var key Key
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return key, fmt.Errorf("content: parsing key: %w", err)
	}
	if len(decoded) != len(key) {
		return key, fmt.Errorf("content: key is %d bytes, want %d", len(decoded), len(key))
	}
	copy(key[:], decoded)
	return key, nil
}
