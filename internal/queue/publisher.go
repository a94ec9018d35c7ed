package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultActivityQueue is the queue pass activity is published to.
const DefaultActivityQueue = "pass.activity"

// Publisher publishes ActivityEvents to a durable RabbitMQ queue.  Each
// call dials its own connection so a broker restart never leaves the
// publisher holding a dead channel.
type Publisher struct {
    URL   string
    Queue string
}

// NewPublisher returns a Publisher for the given broker URL and queue.
func NewPublisher(url, queue string) *Publisher {
    if queue == "" {
        queue = DefaultActivityQueue
    }
    return &Publisher{URL: url, Queue: queue}
}

// Publish sends one event.  Messages are marked as persistent.  Any error
// is returned so the caller can log it; callers must not fail the pass
// operation because of it.
func (p *Publisher) Publish(ctx context.Context, event ActivityEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    event.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    return ch.PublishWithContext(ctx,
        "",      // default exchange
        p.Queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    )
}
