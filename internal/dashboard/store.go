package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
)

const stateKeyPrefix = "fittrack-viewstate||"

// StateStore keeps one view state per user in redis
type StateStore struct {
	redisClient *redis.Client
}

func NewStateStore(redisClient *redis.Client) *StateStore {
	return &StateStore{
		redisClient: redisClient,
	}
}

// Get returns the stored state, or the default one when nothing usable is stored
func (s *StateStore) Get(ctx context.Context, userID string) (_ State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "redis.dashboard.state.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user", userID))

	cmd := s.redisClient.Get(ctx, stateKeyPrefix+userID)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultState(), nil
		}
		return State{}, fmt.Errorf("get view state: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(cmd.Val()), &state); err != nil {
		log.Warnf("view state of %s unreadable, using default: %s", userID, err)
		return DefaultState(), nil
	}
	// stored by an older version with fewer options
	if err := state.Validate(); err != nil {
		log.Warnf("view state of %s rejected, using default: %s", userID, err)
		return DefaultState(), nil
	}

	return state, nil
}

func (s *StateStore) Save(ctx context.Context, userID string, state State) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "redis.dashboard.state.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user", userID))

	stateJson, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal view state: %w", err)
	}

	if err := s.redisClient.Set(ctx, stateKeyPrefix+userID, string(stateJson), 0).Err(); err != nil {
		return fmt.Errorf("save view state: %w", err)
	}
	return nil
}
