package listener

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/nscrdesigns/houdini-mcp/pkg/lifecycle"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

// run accepts connections until ctx is done, serving each one to completion
// before accepting the next.
func (l *Listener) run(ctx context.Context, ln *net.TCPListener) {
	for {
		if ctx.Err() != nil {
			return
		}

		_ = ln.SetDeadline(time.Now().Add(l.config.PollInterval))
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			if isTimeout(err) {
				continue
			}
			l.acceptErrs.Do(func() {
				l.logger.Warn("accept failed", log.Err(err))
			})
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.config.PollInterval):
			}
			continue
		}

		l.serve(ctx, conn)
	}
}

// serve handles one client until it disconnects, the stream breaks, or
// ctx is done.
func (l *Listener) serve(ctx context.Context, conn net.Conn) {
	logger := l.logger.With(
		log.String("conn_id", uuid.NewString()),
		log.String("remote", conn.RemoteAddr().String()),
	)

	l.setConn(conn)
	if err := l.lifecycle.TransitionTo(lifecycle.StateConnected, "client connected"); err != nil {
		// Stop won the race.
		_ = conn.Close()
		return
	}
	if l.opts.observer != nil {
		l.opts.observer.OnConnectionOpened()
	}
	logger.Info("client connected")

	reason := l.serveConn(ctx, conn, logger)

	l.closeConn()
	_ = conn.Close()
	if l.opts.observer != nil {
		l.opts.observer.OnConnectionClosed(reason)
	}
	logger.Info("client disconnected", log.String("reason", reason))

	if ctx.Err() == nil {
		_ = l.lifecycle.TransitionTo(lifecycle.StateAccepting, reason)
	}
}

func (l *Listener) serveConn(ctx context.Context, conn net.Conn, logger log.Logger) string {
	dec := wire.NewDecoder(conn,
		wire.WithReadTimeouts(l.config.PollInterval, l.config.MessageTimeout),
		wire.WithMaxMessageBytes(l.config.MaxMessageBytes),
	)
	enc := wire.NewEncoder(conn, wire.WithWriteTimeout(l.config.WriteTimeout))

	for {
		if ctx.Err() != nil {
			return "shutdown"
		}

		raw, err := dec.Next()
		switch {
		case err == nil:
		case errors.Is(err, wire.ErrNoData):
			continue
		case errors.Is(err, wire.ErrClosed):
			return "closed by client"
		case errors.Is(err, wire.ErrMalformed):
			l.framingError(logger, err)
			if werr := enc.Encode(wire.Failuref("Invalid JSON: %v", err)); werr != nil {
				return "write failed"
			}
			continue
		default:
			if ctx.Err() != nil {
				return "shutdown"
			}
			l.framingError(logger, err)
			return err.Error()
		}

		resp := l.handle(ctx, raw, logger)
		if err := enc.Encode(resp); err != nil {
			if ctx.Err() == nil {
				logger.Warn("write response failed", log.Err(err))
			}
			return "write failed"
		}
	}
}

func (l *Listener) handle(ctx context.Context, raw json.RawMessage, logger log.Logger) wire.Response {
	req, err := wire.ParseRequest(raw)
	if err != nil {
		logger.Debug("rejected request", log.Err(err))
		return wire.Failure(err.Error())
	}

	start := time.Now()
	resp := l.dispatcher.Dispatch(ctx, req)
	logger.Debug("command executed",
		log.Command(req.Type),
		log.String("status", resp.Status),
		log.Duration("duration", time.Since(start)),
	)
	return resp
}

func (l *Listener) framingError(logger log.Logger, err error) {
	if l.opts.observer != nil {
		l.opts.observer.OnFramingError(err)
	}
	l.frameErrs.Do(func() {
		logger.Warn("framing error", log.Err(err))
	})
}
