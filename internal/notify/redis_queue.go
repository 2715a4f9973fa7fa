package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultQueue = "notification_queue"

// RedisQueue pushes events for cmd/notifier to forward.
type RedisQueue struct {
	redis *redis.Client
	queue string
}

func NewRedisQueue(rdb *redis.Client, queue string) *RedisQueue {
	return &RedisQueue{redis: rdb, queue: queue}
}

func (q *RedisQueue) Notify(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.redis.RPush(ctx, q.queue, data).Err()
}

// Worker drains the queue into a sink notifier.
type Worker struct {
	redis   *redis.Client
	queue   string
	sink    Notifier
	poll    time.Duration
	timeout time.Duration
}

func NewWorker(rdb *redis.Client, queue string, sink Notifier, timeout time.Duration) *Worker {
	return &Worker{
		redis:   rdb,
		queue:   queue,
		sink:    sink,
		poll:    5 * time.Second,
		timeout: timeout,
	}
}

// Run processes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[NOTIFY] Worker listening on %s", w.queue)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[NOTIFY] Worker error: %v", err)
			time.Sleep(time.Second)
		}
	}
}

// ProcessOne waits up to the poll interval for one event and forwards it.
// It reports whether an event was taken off the queue. Events the sink
// rejects are dropped.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	res, err := w.redis.BLPop(ctx, w.poll, w.queue).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pop %s: %w", w.queue, err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("unexpected BLPOP reply of %d items", len(res))
	}

	var event Event
	if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
		log.Printf("[NOTIFY] Dropping malformed event: %v", err)
		return true, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sink.Notify(sendCtx, event); err != nil {
		log.Printf("[NOTIFY] Dropping %s event for user %s: %v", event.Type, event.UserID, err)
	}
	return true, nil
}
