// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"strings"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	// The signing example from Slack's request verification guide.
	secret := []byte("8f742231b10e8888abcd99yyyzzz85a5")
	timestamp := "1531420618"
	body := []byte("token=xyzz0WbapA4vBCDEFasx0q6G&team_id=T1DC2JH3J&team_domain=testteamnow&channel_id=G8PSS9T3V&channel_name=foobar&user_id=U2CERLKJA&user_name=roadrunner&command=%2Fwebhook-collect&text=&response_url=https%3A%2F%2Fhooks.slack.com%2Fcommands%2FT1DC2JH3J%2F397700885554%2F96rGlfmibIGlgcZRskXaIFfN&trigger_id=398738663015.47445629121.803a0bc887a14d10d2c447fce8b6703c")
	const published = "v0=a2114d57b48eac39b9ad189dd8316235a7b4a8d21a10bd27519666489c69b503"

	if got := Sign(secret, timestamp, body); got != published {
		t.Fatalf("Sign() = %q, want %q", got, published)
	}
	if err := VerifySignature(secret, timestamp, body, published); err != nil {
		t.Errorf("VerifySignature(published) = %v, want nil", err)
	}

	tests := []struct {
		name      string
		secret    []byte
		timestamp string
		body      []byte
		signature string
		wantError string
	}{
		{"other timestamp", secret, "1531420619", body, published, "signature mismatch"},
		{"other body", secret, timestamp, []byte("token=changed"), published, "signature mismatch"},
		{"other secret", []byte("not-the-secret"), timestamp, body, published, "signature mismatch"},
		{"truncated", secret, timestamp, body, published[:35], "signature mismatch"},
		{"missing version", secret, timestamp, body, strings.TrimPrefix(published, "v0="), "is not v0"},
		{"github style", secret, timestamp, body, "sha256=" + strings.TrimPrefix(published, "v0="), "is not v0"},
		{"not hex", secret, timestamp, body, "v0=zz", "not hex"},
		{"empty secret", nil, timestamp, body, published, "secret is empty"},
		{"empty timestamp", secret, "", body, published, "timestamp is empty"},
		{"empty body", secret, timestamp, nil, published, "body is empty"},
		{"empty signature", secret, timestamp, body, "", "header is empty"},
	}
	for _, tt := range tests {
		err := VerifySignature(tt.secret, tt.timestamp, tt.body, tt.signature)
		if err == nil || !strings.Contains(err.Error(), tt.wantError) {
			t.Errorf("%s: VerifySignature() = %v, want error containing %q", tt.name, err, tt.wantError)
		}
	}
}
