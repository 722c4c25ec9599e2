package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/thenorthsolution/djs-utils/internal/common/validation"
	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

// Stream event types understood by StreamBridge.
const (
	EventGuildDelete       = "guild_delete"
	EventChannelDelete     = "channel_delete"
	EventMessageDelete     = "message_delete"
	EventMessageDeleteBulk = "message_delete_bulk"
)

// StreamEvent is a resource removal announced by another process, such as
// a gateway shard that owns the bot connection.
type StreamEvent struct {
	Type      string
	GuildID   string
	ChannelID string
	// MessageIDs holds one id for message_delete and any number for
	// message_delete_bulk.
	MessageIDs []string
}

// Values encodes e as stream fields.
func (e StreamEvent) Values() map[string]interface{} {
	values := map[string]interface{}{"type": e.Type}
	if e.GuildID != "" {
		values["guild_id"] = e.GuildID
	}
	if e.ChannelID != "" {
		values["channel_id"] = e.ChannelID
	}
	switch {
	case e.Type == EventMessageDeleteBulk:
		values["message_ids"] = strings.Join(e.MessageIDs, ",")
	case len(e.MessageIDs) > 0:
		values["message_id"] = e.MessageIDs[0]
	}
	return values
}

// Publish appends e to the stream at key.
func Publish(ctx context.Context, rdb goredis.UniversalClient, key string, e StreamEvent) error {
	return rdb.XAdd(ctx, &goredis.XAddArgs{Stream: key, Values: e.Values()}).Err()
}

// StreamBridge consumes removal events from a Redis stream and forwards
// them to a giveaway listener.
type StreamBridge struct {
	rdb      goredis.UniversalClient
	key      string
	group    string
	consumer string
	listener giveaway.Listener
	log      zerolog.Logger
}

func NewStreamBridge(rdb goredis.UniversalClient, key, group string, listener giveaway.Listener, log zerolog.Logger) *StreamBridge {
	return &StreamBridge{
		rdb:      rdb,
		key:      key,
		group:    group,
		consumer: "giveaways-" + uuid.NewString()[:8],
		listener: listener,
		log:      log.With().Str("component", "stream_bridge").Str("stream", key).Logger(),
	}
}

// Run reads the stream until ctx is done.
func (w *StreamBridge) Run(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.key, w.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	w.log.Info().Str("group", w.group).Str("consumer", w.consumer).Msg("Starting stream bridge")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stream bridge")
			return nil
		default:
		}

		streams, err := w.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    w.group,
			Consumer: w.consumer,
			Streams:  []string{w.key, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) || ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Failed to read from stream")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := w.processMessage(ctx, msg.Values); err != nil {
					w.log.Warn().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed stream message")
				}
				if err := w.rdb.XAck(ctx, w.key, w.group, msg.ID).Err(); err != nil {
					w.log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to ack stream message")
				}
			}
		}
	}
}

func (w *StreamBridge) processMessage(ctx context.Context, values map[string]interface{}) error {
	eventType, _ := values["type"].(string)

	field := func(name string) (string, error) {
		v, _ := values[name].(string)
		if !validation.IsValidSnowflake(v) {
			return "", fmt.Errorf("%s: invalid %s %q", eventType, name, v)
		}
		return v, nil
	}

	switch eventType {
	case EventGuildDelete:
		guildID, err := field("guild_id")
		if err != nil {
			return err
		}
		w.listener.GuildDelete(ctx, guildID)

	case EventChannelDelete:
		channelID, err := field("channel_id")
		if err != nil {
			return err
		}
		w.listener.ChannelDelete(ctx, channelID)

	case EventMessageDelete:
		channelID, err := field("channel_id")
		if err != nil {
			return err
		}
		messageID, err := field("message_id")
		if err != nil {
			return err
		}
		w.listener.MessageDelete(ctx, channelID, messageID)

	case EventMessageDeleteBulk:
		channelID, err := field("channel_id")
		if err != nil {
			return err
		}
		raw, _ := values["message_ids"].(string)
		ids := strings.Split(raw, ",")
		for _, id := range ids {
			if !validation.IsValidSnowflake(id) {
				return fmt.Errorf("%s: invalid message id %q", eventType, id)
			}
		}
		w.listener.MessageDeleteBulk(ctx, channelID, ids)

	default:
		return fmt.Errorf("unknown event type %q", eventType)
	}

	w.log.Debug().Str("type", eventType).Msg("Stream event forwarded")
	return nil
}
