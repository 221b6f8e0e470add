// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/petar-djukic/vibe-blender/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEventStream implements EventStream for testing.
type mockEventStream struct {
	ch  chan brtypes.ConverseStreamOutput
	err error
}

func (m *mockEventStream) Events() <-chan brtypes.ConverseStreamOutput {
	return m.ch
}

func (m *mockEventStream) Close() error {
	return nil
}

func (m *mockEventStream) Err() error {
	return m.err
}

// mockBedrockAPI implements BedrockAPI for error-path testing. The
// happy path streams through consumeStream directly because the SDK's
// ConverseStreamOutput cannot carry a test stream.
type mockBedrockAPI struct {
	callCount   int
	failWithErr error
}

func (m *mockBedrockAPI) ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error) {
	m.callCount++
	return nil, m.failWithErr
}

func tokenEvent(text string) brtypes.ConverseStreamOutput {
	return &brtypes.ConverseStreamOutputMemberContentBlockDelta{
		Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(0),
			Delta:             &brtypes.ContentBlockDeltaMemberText{Value: text},
		},
	}
}

func usageEvent(in, out int) brtypes.ConverseStreamOutput {
	return &brtypes.ConverseStreamOutputMemberMetadata{
		Value: brtypes.ConverseStreamMetadataEvent{
			Usage: &brtypes.TokenUsage{
				InputTokens:  aws.Int32(int32(in)),
				OutputTokens: aws.Int32(int32(out)),
				TotalTokens:  aws.Int32(int32(in + out)),
			},
		},
	}
}

func TestConsumeStream_TokensAndUsage(t *testing.T) {
	tokens := []string{"import", " bpy", "\n"}
	ch := make(chan brtypes.ConverseStreamOutput, len(tokens)+1)
	for _, tok := range tokens {
		ch <- tokenEvent(tok)
	}
	ch <- usageEvent(150, 42)
	close(ch)

	tokenCh := make(chan string, 64)
	response, err := consumeStream(context.Background(), &mockEventStream{ch: ch}, tokenCh)
	require.NoError(t, err)

	var received []string
	for token := range tokenCh {
		received = append(received, token)
	}

	assert.Equal(t, tokens, received)
	assert.Equal(t, "import bpy\n", response.FullText)
	assert.Equal(t, 150, response.Usage.InputTokens)
	assert.Equal(t, 42, response.Usage.OutputTokens)
}

func TestConsumeStream_BrokenStreamFails(t *testing.T) {
	// The stream dies after a partial response; the truncated text must
	// not be returned as a complete result.
	ch := make(chan brtypes.ConverseStreamOutput, 2)
	ch <- tokenEvent("import bpy\n")
	ch <- tokenEvent("bpy.ops.mesh.primitive_cu")
	close(ch)

	streamErr := errors.New("connection reset by peer")
	tokenCh := make(chan string, 64)
	response, err := consumeStream(context.Background(), &mockEventStream{ch: ch, err: streamErr}, tokenCh)

	require.Error(t, err)
	assert.ErrorIs(t, err, streamErr)
	assert.Nil(t, response)

	// tokenCh is closed so the drain goroutine can finish.
	for range tokenCh {
	}
}

func TestConsumeStream_ContextCancellation(t *testing.T) {
	ch := make(chan brtypes.ConverseStreamOutput, 4)
	for _, tok := range []string{"partial", " content", " not", " received"} {
		ch <- tokenEvent(tok)
	}
	// ch stays open; cancellation ends the stream instead.

	tokenCh := make(chan string, 64)
	ctx, cancel := context.WithCancel(context.Background())

	var response *types.StreamResponse
	var streamErr error
	done := make(chan struct{})
	go func() {
		response, streamErr = consumeStream(ctx, &mockEventStream{ch: ch}, tokenCh)
		close(done)
	}()

	var received []string
	for i := 0; i < 2; i++ {
		token, ok := <-tokenCh
		if !ok {
			break
		}
		received = append(received, token)
	}
	cancel()
	<-done

	assert.GreaterOrEqual(t, len(received), 1)
	// Cancellation mid-stream is a failure, not a shorter success.
	require.Error(t, streamErr)
	assert.ErrorIs(t, streamErr, context.Canceled)
	assert.Nil(t, response)
}

func TestNewClientWithAPI_Defaults(t *testing.T) {
	client := NewClientWithAPI(&mockBedrockAPI{}, ClientConfig{
		ModelID: "anthropic.claude-sonnet-4-5-20250929-v1:0",
		Region:  "us-east-1",
	})

	require.NotNil(t, client)
	assert.Equal(t, defaultTimeout, client.timeout)
	assert.Equal(t, defaultMaxTokens, client.maxTokens)
}

func TestNewClient_RequiresModelAndRegion(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, ClientConfig{Region: "us-east-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMFailure)

	_, err = NewClient(ctx, ClientConfig{ModelID: "some-model"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMFailure)
}

func TestGenerate_NonRetryableErrorFailsImmediately(t *testing.T) {
	api := &mockBedrockAPI{
		failWithErr: &brtypes.AccessDeniedException{Message: aws.String("denied")},
	}
	client := NewClientWithAPI(api, ClientConfig{ModelID: "m", Region: "us-east-1"})

	_, err := client.Generate(context.Background(), "system", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMFailure)
	assert.Contains(t, err.Error(), "credential or permission")
	assert.Equal(t, 1, api.callCount)
}

func TestGenerate_ThrottlingExhaustsRetries(t *testing.T) {
	origDelay := baseRetryDelay
	baseRetryDelay = time.Millisecond
	defer func() { baseRetryDelay = origDelay }()

	api := &mockBedrockAPI{
		failWithErr: &brtypes.ThrottlingException{Message: aws.String("Rate exceeded")},
	}
	client := NewClientWithAPI(api, ClientConfig{ModelID: "m", Region: "us-east-1"})

	_, err := client.Generate(context.Background(), "system", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMFailure)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, maxRetryAttempts+1, api.callCount)
}

func TestClassifyError(t *testing.T) {
	client := NewClientWithAPI(&mockBedrockAPI{}, ClientConfig{ModelID: "missing-model", Region: "us-east-1"})

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "access denied",
			err:     &brtypes.AccessDeniedException{Message: aws.String("no")},
			wantMsg: "credential or permission",
		},
		{
			name:    "model not found",
			err:     &brtypes.ResourceNotFoundException{Message: aws.String("no")},
			wantMsg: "model not found: missing-model",
		},
		{
			name:    "timeout",
			err:     context.DeadlineExceeded,
			wantMsg: "timed out",
		},
		{
			name:    "other",
			err:     errors.New("wire broke"),
			wantMsg: "wire broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.classifyError(tt.err)
			assert.ErrorIs(t, got, ErrLLMFailure)
			assert.Contains(t, got.Error(), tt.wantMsg)
		})
	}
}
