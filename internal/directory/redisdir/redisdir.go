// Package redisdir backs the participant directory with Redis so every server
// process shares the same records. Layout: one hash per room at
// meeting:{id}:participants (field = participant ID, value = JSON record) and
// the meeting meta as JSON at meeting:{id}.
package redisdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/directory"
	"github.com/dkeye/Meet/internal/domain"
)

type Redis struct {
	rdb *redis.Client
}

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, addr string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	log.Info().Str("module", "directory.redis").Str("addr", addr).Msg("connected")
	return &Redis{rdb: rdb}, nil
}

func meetingKey(roomID domain.RoomID) string {
	return "meeting:" + string(roomID)
}

func participantsKey(roomID domain.RoomID) string {
	return "meeting:" + string(roomID) + ":participants"
}

func (r *Redis) UpsertParticipant(ctx context.Context, roomID domain.RoomID, rec domain.Record) error {
	// Read-then-write; concurrent writers to the same participant resolve
	// last-write-wins, which is the documented directory contract.
	prev, err := r.rdb.HGet(ctx, participantsKey(roomID), string(rec.ParticipantID)).Result()
	if err == nil {
		var old domain.Record
		if jerr := json.Unmarshal([]byte(prev), &old); jerr == nil && old.JoinedAt != 0 {
			rec.JoinedAt = old.JoinedAt
		}
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read participant %s: %w", rec.ParticipantID, err)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode participant %s: %w", rec.ParticipantID, err)
	}
	if err := r.rdb.HSet(ctx, participantsKey(roomID), string(rec.ParticipantID), raw).Err(); err != nil {
		return fmt.Errorf("write participant %s: %w", rec.ParticipantID, err)
	}
	return nil
}

func (r *Redis) MarkOffline(ctx context.Context, roomID domain.RoomID, pid domain.ParticipantID) error {
	prev, err := r.rdb.HGet(ctx, participantsKey(roomID), string(pid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read participant %s: %w", pid, err)
	}
	var rec domain.Record
	if err := json.Unmarshal([]byte(prev), &rec); err != nil {
		return fmt.Errorf("decode participant %s: %w", pid, err)
	}
	rec.IsOnline = false
	rec.ConnectionID = ""
	raw, _ := json.Marshal(rec)
	if err := r.rdb.HSet(ctx, participantsKey(roomID), string(pid), raw).Err(); err != nil {
		return fmt.Errorf("write participant %s: %w", pid, err)
	}
	return nil
}

func (r *Redis) ListOnlineParticipants(ctx context.Context, roomID domain.RoomID) ([]domain.Record, error) {
	all, err := r.listAll(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if rec.IsOnline {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Redis) CreateMeeting(ctx context.Context, m domain.Meeting) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode meeting %s: %w", m.ID, err)
	}
	if err := r.rdb.Set(ctx, meetingKey(m.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("write meeting %s: %w", m.ID, err)
	}
	return nil
}

func (r *Redis) GetMeeting(ctx context.Context, roomID domain.RoomID) (domain.Meeting, error) {
	raw, err := r.rdb.Get(ctx, meetingKey(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Meeting{}, directory.ErrMeetingNotFound
	}
	if err != nil {
		return domain.Meeting{}, fmt.Errorf("read meeting %s: %w", roomID, err)
	}
	var m domain.Meeting
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return domain.Meeting{}, fmt.Errorf("decode meeting %s: %w", roomID, err)
	}
	return m, nil
}

func (r *Redis) ListParticipants(ctx context.Context, roomID domain.RoomID) ([]domain.Record, error) {
	return r.listAll(ctx, roomID)
}

func (r *Redis) listAll(ctx context.Context, roomID domain.RoomID) ([]domain.Record, error) {
	fields, err := r.rdb.HGetAll(ctx, participantsKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants of %s: %w", roomID, err)
	}
	out := make([]domain.Record, 0, len(fields))
	for pid, raw := range fields {
		var rec domain.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			log.Warn().Str("module", "directory.redis").Str("room", string(roomID)).Str("participant", pid).Msg("skipping undecodable record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Redis) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.rdb.Close() }
