package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"solvencia-backend/internal/models"
)

const (
	historyTTL = 24 * time.Hour
	historyCap = 50
)

// HistoryService keeps each session's conversation in a capped Redis list.
type HistoryService struct {
	redis *redis.Client
}

func NewHistoryService(redisClient *redis.Client) *HistoryService {
	return &HistoryService{redis: redisClient}
}

func historyKey(sessionID uuid.UUID) string {
	return "chat_history:" + sessionID.String()
}

func (s *HistoryService) Append(ctx context.Context, sessionID uuid.UUID, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp == 0 {
			m.Timestamp = time.Now().UnixMilli()
		}
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
		values = append(values, string(data))
	}

	key := historyKey(sessionID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -historyCap, -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Recent returns the last n messages, oldest first.
func (s *HistoryService) Recent(ctx context.Context, sessionID uuid.UUID, n int) ([]models.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.load(ctx, sessionID, int64(-n))
}

func (s *HistoryService) All(ctx context.Context, sessionID uuid.UUID) ([]models.Message, error) {
	return s.load(ctx, sessionID, 0)
}

func (s *HistoryService) load(ctx context.Context, sessionID uuid.UUID, start int64) ([]models.Message, error) {
	raw, err := s.redis.LRange(ctx, historyKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return decodeMessages(raw), nil
}

func (s *HistoryService) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return s.redis.Del(ctx, historyKey(sessionID)).Err()
}

// decodeMessages skips entries that do not parse instead of failing the
// whole conversation.
func decodeMessages(raw []string) []models.Message {
	msgs := make([]models.Message, 0, len(raw))
	for _, r := range raw {
		var m models.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			log.Printf("WARNING: dropping malformed history entry: %v", err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}
