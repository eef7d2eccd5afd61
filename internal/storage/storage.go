// Package storage persists report audit logs in Postgres and relays live
// positions through Redis pub/sub. Both backends are optional.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trackbot/backend/internal/models"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PositionsChannel is the Redis pub/sub channel carrying PositionEvents.
const PositionsChannel = "trackbot:positions"

const maxReportLogs = 200

var (
	ErrNoDatabase = errors.New("database not configured")
	ErrNoRedis    = errors.New("redis not configured")
)

type Storage interface {
	SaveReportLog(ctx context.Context, entry *models.ReportLog) error
	RecentReportLogs(ctx context.Context, limit int) ([]models.ReportLog, error)

	PublishPosition(ctx context.Context, ev models.PositionEvent) error
	SubscribePositions(ctx context.Context) (<-chan models.PositionEvent, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

// Migrate creates or updates the report log table.
func (s *Service) Migrate() error {
	if s.DB == nil {
		return ErrNoDatabase
	}
	if err := s.DB.AutoMigrate(&models.ReportLog{}); err != nil {
		return fmt.Errorf("migrate report logs: %w", err)
	}
	return nil
}

func (s *Service) SaveReportLog(ctx context.Context, entry *models.ReportLog) error {
	if s.DB == nil {
		return ErrNoDatabase
	}
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		log.WithError(err).WithField("kind", entry.Kind).Error("Failed to save report log")
		return err
	}
	return nil
}

// RecentReportLogs returns the newest logs first. limit is clamped to [1, 200].
func (s *Service) RecentReportLogs(ctx context.Context, limit int) ([]models.ReportLog, error) {
	if s.DB == nil {
		return nil, ErrNoDatabase
	}
	var logs []models.ReportLog
	err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(ClampLimit(limit)).
		Find(&logs).Error
	return logs, err
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > maxReportLogs:
		return maxReportLogs
	}
	return limit
}

// PublishPosition publishes ev on PositionsChannel.
func (s *Service) PublishPosition(ctx context.Context, ev models.PositionEvent) error {
	if s.Redis == nil {
		return ErrNoRedis
	}
	payload, err := EncodePosition(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, PositionsChannel, payload).Err()
}

// SubscribePositions streams events from PositionsChannel until ctx is done.
// Undecodable payloads are skipped.
func (s *Service) SubscribePositions(ctx context.Context) (<-chan models.PositionEvent, error) {
	if s.Redis == nil {
		return nil, ErrNoRedis
	}

	pubsub := s.Redis.Subscribe(ctx, PositionsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", PositionsChannel, err)
	}

	out := make(chan models.PositionEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := DecodePosition(msg.Payload)
				if err != nil {
					log.WithError(err).Warn("Error unmarshalling Redis position event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func EncodePosition(ev models.PositionEvent) (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode position event: %w", err)
	}
	return string(b), nil
}

func DecodePosition(payload string) (models.PositionEvent, error) {
	var ev models.PositionEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode position event: %w", err)
	}
	return ev, nil
}
