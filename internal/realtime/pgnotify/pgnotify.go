// Package pgnotify streams table changes from Postgres LISTEN/NOTIFY.
// Row triggers installed by the dao migrations publish one JSON payload per
// change on a single channel; this package fans them out by table.
package pgnotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

type Dialer interface {
	Dial(ctx context.Context) (*pgx.Conn, error)
}

type Stream struct {
	realtime.Registry

	dial    Dialer
	channel string
	maxWait time.Duration
}

func New(dial Dialer, channel string, maxWait time.Duration) *Stream {
	return &Stream{dial: dial, channel: channel, maxWait: maxWait}
}

type payload struct {
	Table string         `json:"table"`
	Event string         `json:"event"`
	New   map[string]any `json:"new"`
	Old   map[string]any `json:"old"`
}

// Decode parses one notification payload.
func Decode(raw string) (realtime.Change, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var p payload
	if err := dec.Decode(&p); err != nil {
		return realtime.Change{}, fmt.Errorf("dec.Decode -> %w", err)
	}
	if p.Table == "" {
		return realtime.Change{}, errors.New("pgnotify: payload without table")
	}

	c := realtime.Change{Table: p.Table, Event: realtime.Event(p.Event)}
	if p.New != nil {
		c.New = rowstore.Row(p.New)
	}
	if p.Old != nil {
		c.Old = rowstore.Row(p.Old)
	}
	return c, nil
}

// Run listens until ctx is done. Lost connections are re-dialled with
// exponential backoff, and every reconnect after the first fires the
// reconnect hooks so subscribers can resubscribe.
func (s *Stream) Run(ctx context.Context) error {
	connected := false
	for {
		conn, err := s.connect(ctx)
		if err != nil {
			return err
		}
		if connected {
			zap.L().Info("pgnotify: reconnected", zap.String("channel", s.channel))
			s.Reconnected()
		}
		connected = true

		err = s.listen(ctx, conn)
		_ = conn.Close(context.Background())
		if ctx.Err() != nil {
			return nil
		}
		zap.L().Warn("pgnotify: connection lost", zap.String("channel", s.channel), zap.Error(err))
	}
}

func (s *Stream) connect(ctx context.Context) (*pgx.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = s.maxWait
	b.MaxElapsedTime = 0

	return backoff.RetryNotifyWithData(func() (*pgx.Conn, error) {
		conn, err := s.dial.Dial(ctx)
		if err != nil {
			return nil, err
		}
		if _, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
			_ = conn.Close(context.Background())
			return nil, fmt.Errorf("conn.Exec LISTEN -> %w", err)
		}
		return conn, nil
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		zap.L().Warn("pgnotify: dial failed", zap.Duration("retry_in", wait), zap.Error(err))
	})
}

func (s *Stream) listen(ctx context.Context, conn *pgx.Conn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("conn.WaitForNotification -> %w", err)
		}

		c, err := Decode(n.Payload)
		if err != nil {
			zap.L().Warn("pgnotify: dropping payload", zap.Error(err))
			continue
		}
		s.Dispatch(c)
	}
}
