package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"patient-management/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrSlotHeld is returned when another request is booking the same slot.
var ErrSlotHeld = errors.New("slot is being booked by another request")

// RedisSlotHoldKeyPrefix namespaces slot holds.
const RedisSlotHoldKeyPrefix = "appointment:slot:"

// DefaultSlotHoldTTL bounds how long a crashed request can keep a slot held.
const DefaultSlotHoldTTL = 10 * time.Second

// releaseHoldScript deletes the hold only if it still belongs to the caller.
var releaseHoldScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// SlotHoldService serializes bookings of the same slot across server instances while
// the appointment row is written. The database unique index remains the final guard.
type SlotHoldService struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration
}

func NewSlotHoldService(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) *SlotHoldService {
	if ttl <= 0 {
		ttl = DefaultSlotHoldTTL
	}
	return &SlotHoldService{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
	}
}

// Hold claims the slot at clock on date. The returned release func is safe to call
// more than once.
func (s *SlotHoldService) Hold(ctx context.Context, date time.Time, clock string) (release func(), err error) {
	key := SlotHoldKey(date, clock)
	owner := uuid.New().String()

	ok, err := s.redisClient.SetNX(ctx, key, owner, s.ttl).Result()
	if err != nil {
		s.log.Warnf("Failed to hold slot %s: %+v", key, err)
		return nil, fmt.Errorf("hold slot %s: %w", key, err)
	}
	if !ok {
		return nil, ErrSlotHeld
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true

		// The caller's context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseHoldScript.Run(releaseCtx, s.redisClient, []string{key}, owner).Err(); err != nil {
			s.log.Warnf("Failed to release slot %s: %+v", key, err)
		}
	}, nil
}

// SlotHoldKey is the Redis key of a slot hold.
func SlotHoldKey(date time.Time, clock string) string {
	return fmt.Sprintf("%s%s:%s", RedisSlotHoldKeyPrefix, date.Format(entity.DateLayout), clock)
}
