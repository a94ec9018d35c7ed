package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// ActivityConsumer listens to the activity queue and appends one line per
// event to an activity log file.
type ActivityConsumer struct {
    URL     string
    Queue   string
    LogPath string
    Log     *zap.Logger
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// messages until ctx is cancelled.  Dial and channel failures are logged
// and retried with exponential backoff; malformed messages are rejected
// without requeue so the consumer keeps going.
func (c *ActivityConsumer) Run(ctx context.Context) {
    if c.Queue == "" {
        c.Queue = DefaultActivityQueue
    }
    if c.LogPath == "" {
        c.LogPath = filepath.Join("logs", "activity.log")
    }
    if c.Log == nil {
        c.Log = zap.NewNop()
    }

    backoff := time.Second
    for ctx.Err() == nil {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("activity consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if err != nil && ctx.Err() == nil {
            c.Log.Warn("activity consumer: consume loop ended; reconnecting", zap.Error(err))
            if !sleep(ctx, 2*time.Second) {
                return
            }
        }
    }
}

func (c *ActivityConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("activity consumer: set QoS failed", zap.Error(err))
    }

    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return nil
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handleMessage(d.Body); err != nil {
                c.Log.Error("activity consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *ActivityConsumer) handleMessage(body []byte) error {
    var ev ActivityEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatActivity(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatActivity renders an event as a single human-friendly log line.
func FormatActivity(ev ActivityEvent) string {
    return fmt.Sprintf("[%s] %s | pass_id=%d | subject_id=%s | actor_id=%s | details=%q | event_id=%s\n",
        ev.Timestamp, ev.Action, ev.PassID, ev.SubjectID, ev.ActorID, ev.Details, ev.EventID)
}

// sleep waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
