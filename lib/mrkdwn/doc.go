// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package mrkdwn converts the CommonMark that language models produce
// into Slack's mrkdwn dialect.
//
// Slack renders *bold*, _italic_, ~strike~, `code`, fenced blocks,
// > quotes and <url|label> links, but not headings, tables, or nested
// emphasis markers in Markdown form. [Render] parses the input with
// goldmark (GFM extensions) and walks the AST, emitting the closest
// mrkdwn construct for each node. Slack control sequences already
// present in the text (<@U123>, <#C123|name>, <!here>, <https://x|y>)
// pass through untouched; everything else has &, < and > escaped.
package mrkdwn
