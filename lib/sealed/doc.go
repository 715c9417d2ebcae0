// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption and decryption for the ChatDSJ
// credentials file. It wraps filippo.io/age for the operations the
// service and the admin CLI need: generate x25519 keypairs, seal a
// credentials map to one or more recipients, and open it again with an
// identity file.
//
// Sealed files are ASCII-armored so they can live next to the YAML
// config. [Decrypt] accepts armored and binary ciphertext.
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair
//   - [SealCredentials] / [OpenCredentials] -- the credentials file
//   - [Encrypt] / [Decrypt] -- raw payloads
//   - [ReadIdentityFile], [ParsePrivateKey], [ParsePublicKey] -- keys
package sealed
