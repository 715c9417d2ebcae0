// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/chatdsj/chatdsj/lib/codec"
	"github.com/chatdsj/chatdsj/lib/ipc"
	"github.com/chatdsj/chatdsj/lib/service"
	"github.com/chatdsj/chatdsj/lib/version"
)

// newSocketServer builds the admin socket. Only processes running as
// the service's own user may connect.
func (application *app) newSocketServer(socketPath string) *service.SocketServer {
	socketServer := service.NewSocketServer(socketPath, application.logger)
	socketServer.RestrictToOwner()
	application.registerActions(socketServer)
	return socketServer
}

func (application *app) registerActions(socketServer *service.SocketServer) {
	socketServer.Handle(ipc.ActionStatus, application.handleStatus)
	socketServer.Handle(ipc.ActionUsage, application.handleUsage)
	socketServer.Handle(ipc.ActionResetUsage, application.handleResetUsage)
	socketServer.Handle(ipc.ActionMetrics, application.handleMetrics)
	socketServer.Handle(ipc.ActionChannels, application.handleChannels)
}

func (application *app) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return ipc.StatusResponse{
		Build:        version.Fields(),
		Environment:  string(application.config.Environment),
		BotUserID:    application.botUserID,
		Model:        application.completion.Model(),
		StartedAt:    application.startedAt,
		Services:     application.services(ctx),
		QueuedEvents: application.dispatcher.Queued(),
		Channels:     len(application.stats.Snapshot()),
	}, nil
}

func (application *app) handleUsage(ctx context.Context, raw []byte) (any, error) {
	return application.ledger.Snapshot(), nil
}

func (application *app) handleResetUsage(ctx context.Context, raw []byte) (any, error) {
	previous := application.ledger.Reset()
	application.logger.Info("usage ledger reset",
		"requests", previous.Requests,
		"total_tokens", previous.TotalTokens,
		"estimated_cost_usd", previous.EstimatedCostUSD,
	)
	return ipc.ResetUsageResponse{Previous: previous}, nil
}

func (application *app) handleMetrics(ctx context.Context, raw []byte) (any, error) {
	var request ipc.MetricsRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid metrics request: %w", err)
	}
	response := ipc.MetricsResponse{Summary: application.metrics.Summary(), Reset: request.Reset}
	if request.Reset {
		application.metrics.Reset()
		application.logger.Info("metrics reset")
	}
	return response, nil
}

func (application *app) handleChannels(ctx context.Context, raw []byte) (any, error) {
	var request ipc.ChannelsRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid channels request: %w", err)
	}
	if request.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}

	channels := application.stats.Snapshot()
	response := ipc.ChannelsResponse{Total: len(channels)}
	if request.Limit > 0 && len(channels) > request.Limit {
		channels = channels[:request.Limit]
	}
	response.Channels = channels
	return response, nil
}
