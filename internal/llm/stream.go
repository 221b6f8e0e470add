// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"strings"

	"github.com/petar-djukic/vibe-blender/pkg/types"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// EventStream abstracts the Bedrock ConverseStream event stream for testing.
type EventStream interface {
	Events() <-chan brtypes.ConverseStreamOutput
	Close() error
	Err() error
}

// consumeStream reads events from a Bedrock ConverseStream, sends text tokens
// through the provided channel, and accumulates the full response. The channel
// is closed when streaming ends, whether complete, failed, or cancelled.
// A stream that dies mid-response is an error: partial text must never
// pass for a complete script.
func consumeStream(ctx context.Context, stream EventStream, tokenCh chan<- string) (*types.StreamResponse, error) {
	defer close(tokenCh)

	var text strings.Builder
	response := &types.StreamResponse{}

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			stream.Close()
			return nil, ctx.Err()

		case event, ok := <-events:
			if !ok {
				// Channel closed; the stream reports whether it
				// completed or broke.
				if err := stream.Err(); err != nil {
					return nil, err
				}
				response.FullText = text.String()
				return response, nil
			}

			switch v := event.(type) {
			case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
				if delta, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
					text.WriteString(delta.Value)
					select {
					case tokenCh <- delta.Value:
					case <-ctx.Done():
						stream.Close()
						return nil, ctx.Err()
					}
				}

			case *brtypes.ConverseStreamOutputMemberMetadata:
				if v.Value.Usage != nil {
					if v.Value.Usage.InputTokens != nil {
						response.Usage.InputTokens = int(*v.Value.Usage.InputTokens)
					}
					if v.Value.Usage.OutputTokens != nil {
						response.Usage.OutputTokens = int(*v.Value.Usage.OutputTokens)
					}
				}
			}
		}
	}
}
