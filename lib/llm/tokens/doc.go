// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokens counts tokens for text and role-tagged message
// sequences the way the completion APIs bill them.
//
// [Accountant] resolves a BPE encoding per model through tiktoken
// (with the encodings embedded in the binary, so counting never
// touches the network). Models tiktoken does not recognize are counted
// with the general-purpose cl100k_base encoding, and if no BPE
// encoding can be loaded at all the accountant degrades to
// [CharCounter], a characters-per-token heuristic. Counting therefore
// never fails: every call returns a best-effort count >= 0.
package tokens
