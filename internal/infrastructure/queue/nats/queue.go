package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/resilience"
)

// Queue carries two kinds of traffic: ingestion-completed events published
// by the API and consumed by the gateway, and normalized chat messages
// flowing between the chat adapter and the gateway.
type Queue struct {
	conn            *nats.Conn
	ingestedSubject string
	chatInbound     string
	chatOutbound    string
	executor        *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

type Subjects struct {
	Ingested     string
	ChatInbound  string
	ChatOutbound string
}

func New(url string, subjects Subjects) (*Queue, error) {
	return NewWithOptions(url, subjects, Options{})
}

func NewWithOptions(url string, subjects Subjects, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("corpus-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		ingestedSubject: subjects.Ingested,
		chatInbound:     subjects.ChatInbound,
		chatOutbound:    subjects.ChatOutbound,
		executor:        options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, event domain.IngestedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ingested event: %w", err)
	}
	return q.publish(ctx, "nats.publish_ingested", q.ingestedSubject, payload)
}

// PublishChatReply sends one outbound message for the channel. The channel
// id becomes the final subject token, sanitized for NATS subject syntax.
func (q *Queue) PublishChatReply(ctx context.Context, channelID, text string) error {
	payload, err := json.Marshal(domain.ChatMessage{ChannelID: channelID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal chat reply: %w", err)
	}
	subject := q.chatOutbound + "." + subjectToken(channelID)
	return q.publish(ctx, "nats.publish_reply", subject, payload)
}

// SubscribeDocumentIngested blocks until ctx is done, delivering ingestion
// events to handler via a queue group so one gateway instance handles each.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, domain.IngestedEvent) error) error {
	return q.consume(ctx, q.ingestedSubject, "gateway-ingested", func(handlerCtx context.Context, data []byte) error {
		var event domain.IngestedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("unmarshal ingested event: %w", err)
		}
		return handler(handlerCtx, event)
	})
}

// SubscribeChatMessages blocks until ctx is done, delivering normalized
// inbound channel messages to handler.
func (q *Queue) SubscribeChatMessages(ctx context.Context, handler func(context.Context, domain.ChatMessage) error) error {
	return q.consume(ctx, q.chatInbound, "gateway-chat", func(handlerCtx context.Context, data []byte) error {
		var message domain.ChatMessage
		if err := json.Unmarshal(data, &message); err != nil {
			return fmt.Errorf("unmarshal chat message: %w", err)
		}
		return handler(handlerCtx, message)
	})
}

func (q *Queue) publish(ctx context.Context, operation, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	if q.executor != nil {
		return q.executor.Execute(ctx, operation, call, classifyNATSError)
	}
	return call(ctx)
}

func (q *Queue) consume(ctx context.Context, subject, group string, handle func(context.Context, []byte) error) error {
	sub, err := q.conn.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handle(handlerCtx, msg.Data); err != nil {
			log.Printf("handler error on %s: %v", subject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// subjectToken makes an arbitrary channel id safe as a NATS subject token.
func subjectToken(channelID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, channelID)
}
