// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// signatureVersion is the only request signing scheme Slack uses.
const signatureVersion = "v0"

// baseString is the message Slack signs: "v0:<timestamp>:<body>".
func baseString(timestamp string, body []byte) []byte {
	message := make([]byte, 0, len(signatureVersion)+len(timestamp)+len(body)+2)
	message = append(message, signatureVersion...)
	message = append(message, ':')
	message = append(message, timestamp...)
	message = append(message, ':')
	message = append(message, body...)
	return message
}

// VerifySignature checks an X-Slack-Signature header value against the
// request's timestamp and raw body. The error never includes the
// expected digest.
func VerifySignature(secret []byte, timestamp string, body []byte, signature string) error {
	switch {
	case len(secret) == 0:
		return errors.New("signing secret is empty")
	case timestamp == "":
		return errors.New("request timestamp is empty")
	case len(body) == 0:
		return errors.New("request body is empty")
	case signature == "":
		return errors.New("signature header is empty")
	}

	digest, found := strings.CutPrefix(signature, signatureVersion+"=")
	if !found {
		return fmt.Errorf("signature is not %s", signatureVersion)
	}
	given, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("signature is not hex: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(baseString(timestamp, body))
	if subtle.ConstantTimeCompare(mac.Sum(nil), given) != 1 {
		return errors.New("signature mismatch")
	}
	return nil
}

// Sign returns the X-Slack-Signature value for a request, as Slack
// computes it. Used by tests and local replay tooling.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(baseString(timestamp, body))
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}
