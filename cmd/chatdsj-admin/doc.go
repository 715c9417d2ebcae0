// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Chatdsj-admin is the operator CLI for a running ChatDSJ service.
//
// It talks to the service's admin Unix socket (CBOR, one request per
// connection) and renders the replies as terminal tables:
//
//	chatdsj-admin status
//	chatdsj-admin usage
//	chatdsj-admin reset-usage
//	chatdsj-admin metrics [--reset]
//	chatdsj-admin channels [--limit N]
//
// Every socket command accepts --json for the reply as JSON and --raw
// for CBOR diagnostic notation. Colors are used only when stdout is a
// terminal and neither --no-color nor NO_COLOR is set.
//
// The socket path comes from --socket, or from admin.socket_path in
// the configuration (--config, else $CHATDSJ_CONFIG, else defaults).
//
// Two offline commands manage the encrypted credentials file the
// service can read its secrets from:
//
//	chatdsj-admin keygen --output identity.txt
//	chatdsj-admin seal-credentials --recipient age1... --output credentials.age secrets.yaml
package main
