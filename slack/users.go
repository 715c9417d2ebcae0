// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"context"
	"fmt"
	"net/url"

	"github.com/chatdsj/chatdsj/lib/identity"
)

type userInfoResponse struct {
	User struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		RealName string `json:"real_name"`
		IsBot    bool   `json:"is_bot"`
		Profile  struct {
			DisplayName string `json:"display_name"`
			RealName    string `json:"real_name"`
		} `json:"profile"`
	} `json:"user"`
}

// UserProfile fetches a user's names via users.info. It satisfies
// identity.ProfileLookup.
func (client *Client) UserProfile(ctx context.Context, userID string) (identity.Profile, error) {
	var response userInfoResponse
	if _, err := client.callForm(ctx, "users.info", url.Values{"user": {userID}}, &response); err != nil {
		return identity.Profile{}, fmt.Errorf("slack: looking up user %s: %w", userID, err)
	}

	user := response.User
	realName := user.Profile.RealName
	if realName == "" {
		realName = user.RealName
	}
	id := user.ID
	if id == "" {
		id = userID
	}
	return identity.Profile{
		ID:          id,
		DisplayName: user.Profile.DisplayName,
		RealName:    realName,
		Handle:      user.Name,
		IsBot:       user.IsBot,
	}, nil
}

// AuthInfo identifies the token's owner.
type AuthInfo struct {
	UserID string `json:"user_id"`
	BotID  string `json:"bot_id"`
	User   string `json:"user"`
	Team   string `json:"team"`
	TeamID string `json:"team_id"`
	URL    string `json:"url"`
}

// AuthTest validates the token and returns the bot's identity.
func (client *Client) AuthTest(ctx context.Context) (*AuthInfo, error) {
	var info AuthInfo
	if _, err := client.callForm(ctx, "auth.test", url.Values{}, &info); err != nil {
		return nil, fmt.Errorf("slack: auth.test: %w", err)
	}
	return &info, nil
}
