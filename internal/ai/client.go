// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Client runs instructions against the registry's active provider.
type Client struct {
	registry      *Registry
	headerTimeout time.Duration
	streamTimeout time.Duration
}

// NewClient creates a client. headerTimeout bounds a single-shot call and
// the wait for a stream to start; streamTimeout bounds a whole stream.
func NewClient(registry *Registry, headerTimeout, streamTimeout time.Duration) *Client {
	return &Client{
		registry:      registry,
		headerTimeout: headerTimeout,
		streamTimeout: streamTimeout,
	}
}

// Registry returns the provider registry the client draws from.
func (c *Client) Registry() *Registry { return c.registry }

// Complete runs a single-shot call and returns the generated text.
func (c *Client) Complete(ctx context.Context, in Instruction) (string, error) {
	p, err := c.registry.Active()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, c.headerTimeout, ErrTimeout)
	defer cancel()

	start := time.Now()
	text, err := p.Complete(ctx, in)
	if err != nil {
		return "", classify(ctx, err)
	}
	slog.Debug("generation completed", "provider", p.Name(), "tier", in.Tier, "chars", len(text), "duration", time.Since(start))
	return text, nil
}

// Stream starts a streamed call. The returned reader must be closed; it
// yields ErrTimeout once the stream deadline has passed.
func (c *Client) Stream(ctx context.Context, in Instruction) (io.ReadCloser, error) {
	p, err := c.registry.Active()
	if err != nil {
		return nil, err
	}

	streamCtx, cancelStream := context.WithTimeoutCause(ctx, c.streamTimeout, ErrTimeout)
	callCtx, cancelCall := context.WithCancelCause(streamCtx)
	headerTimer := time.AfterFunc(c.headerTimeout, func() { cancelCall(ErrTimeout) })

	body, err := p.Stream(callCtx, in)
	started := headerTimer.Stop()
	if err == nil && !started {
		body.Close()
		err = ErrTimeout
	}
	if err != nil {
		err = classify(callCtx, err)
		cancelCall(nil)
		cancelStream()
		return nil, err
	}

	return &streamBody{
		body: body,
		ctx:  callCtx,
		cancel: func() {
			cancelCall(nil)
			cancelStream()
		},
	}, nil
}

// streamBody ties a provider stream to its deadline.
type streamBody struct {
	body   io.ReadCloser
	ctx    context.Context
	cancel func()
}

func (s *streamBody) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if err != nil && err != io.EOF && errors.Is(context.Cause(s.ctx), ErrTimeout) {
		return n, ErrTimeout
	}
	return n, err
}

func (s *streamBody) Close() error {
	err := s.body.Close()
	s.cancel()
	return err
}

// classify maps a provider failure onto the upstream error taxonomy.
// Upstream answers pass through untouched.
func classify(ctx context.Context, err error) error {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream
	case errors.Is(err, ErrTimeout),
		errors.Is(context.Cause(ctx), ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}
