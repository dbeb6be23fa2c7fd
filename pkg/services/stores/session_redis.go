package stores

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liut/beeview/pkg/models/aigc"
)

const (
	sessionLifetime  = time.Second * 86400
	historyLifetimeS = time.Second * 86400
	historyMaxLength = 25
)

type redisSessions struct {
	rc RedisClient
}

// NewRedisSessions returns Sessions kept in redis with a one day lifetime.
func NewRedisSessions(rc RedisClient) Sessions {
	return &redisSessions{rc: rc}
}

func (s *redisSessions) Load(ctx context.Context, id string) (*State, error) {
	b, err := s.rc.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(id), nil
	}
	if err != nil {
		return nil, err
	}
	st := NewState(id)
	if err = json.Unmarshal(b, st); err != nil {
		logger().Infow("decode session fail, reset", "id", id, "err", err)
		return NewState(id), nil
	}
	st.ID = id
	return st, nil
}

func (s *redisSessions) Save(ctx context.Context, st *State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, stateKey(st.ID), b, sessionLifetime).Err()
}

func (s *redisSessions) History(id string) History {
	return &redisHistory{id: id, rc: s.rc}
}

func stateKey(id string) string {
	return "sess-" + id
}

type redisHistory struct {
	id string
	rc RedisClient
}

func (s *redisHistory) AddHistory(ctx context.Context, item *aigc.HistoryItem) error {
	key := s.getKey()
	b, err := item.MarshalBinary()
	if err != nil {
		return err
	}
	res := s.rc.RPush(ctx, key, b)
	err = res.Err()
	if err == nil {
		logger().Debugw("add history ok", "item", item)
		count, _ := res.Result()
		if err = s.rc.Expire(ctx, key, historyLifetimeS).Err(); err != nil {
			return err
		}
		if count > historyMaxLength {
			logger().Infow("history length overflow", "count", count)
			err = s.rc.LTrim(ctx, key, -historyMaxLength, -1).Err()
		}
	}
	if err != nil {
		logger().Infow("add history fail", "key", key, "err", err)
	}
	return err
}

func (s *redisHistory) ListHistory(ctx context.Context) (data aigc.HistoryItems, err error) {
	key := s.getKey()
	ss := s.rc.LRange(ctx, key, 0, -1)
	err = ss.ScanSlice(&data)
	return
}

func (s *redisHistory) ClearHistory(ctx context.Context) error {
	return s.rc.Del(ctx, s.getKey()).Err()
}

func (s *redisHistory) getKey() string {
	return "convs-" + s.id
}
