package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
	"github.com/quaydocs/corpus-assistant/internal/core/ports"
	"github.com/quaydocs/corpus-assistant/internal/core/usecase"
	"github.com/quaydocs/corpus-assistant/internal/observability/metrics"
)

const gatewayService = "gateway"

const (
	replyNotBound    = "This channel isn't linked to a company yet. Use `!set company <name>` first."
	replyRetry       = "I'm having trouble reaching the document store right now, please try again in a moment."
	replyEmptySet    = "Usage: `!set company <name>`."
	replyUnavailable = "I couldn't save that setting, please try again in a moment."
)

// Gateway bridges the chat transport onto the question and binding services.
// One instance serves every bound channel; handlers run on the transport's
// delivery goroutines.
type Gateway struct {
	transport ports.ChatTransport
	bindings  ports.BindingService
	ask       ports.QuestionService
	tenants   *usecase.TenantDirectory
	metrics   *metrics.GatewayMetrics
	logger    *slog.Logger
}

func NewGateway(
	transport ports.ChatTransport,
	bindings ports.BindingService,
	ask ports.QuestionService,
	tenants *usecase.TenantDirectory,
	gatewayMetrics *metrics.GatewayMetrics,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		transport: transport,
		bindings:  bindings,
		ask:       ask,
		tenants:   tenants,
		metrics:   gatewayMetrics,
		logger:    logger,
	}
}

// Run blocks on both transport subscriptions until ctx is cancelled. The
// first subscription error tears the gateway down.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- g.transport.SubscribeChatMessages(ctx, g.HandleMessage)
	}()
	go func() {
		errCh <- g.transport.SubscribeDocumentIngested(ctx, g.HandleIngested)
	}()

	err := <-errCh
	cancel()
	<-errCh
	return err
}

// HandleMessage dispatches one inbound channel message: binding commands go
// to the binding service, everything else is treated as a question against
// the channel's bound tenant.
func (g *Gateway) HandleMessage(ctx context.Context, msg domain.ChatMessage) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	g.metrics.StartMessage()
	start := time.Now()
	outcome := "answered"
	defer func() {
		g.metrics.FinishMessage(gatewayService, outcome, time.Since(start))
	}()

	if tenant, ok := parseSetCompany(text); ok {
		outcome = g.handleSetCompany(ctx, msg.ChannelID, tenant)
		return nil
	}

	outcome = g.handleQuestion(ctx, msg.ChannelID, text)
	return nil
}

func (g *Gateway) handleSetCompany(ctx context.Context, channelID, tenant string) string {
	if tenant == "" {
		g.reply(ctx, channelID, replyEmptySet+" Available: "+strings.Join(g.tenants.Names(), ", "))
		return "bind_usage"
	}

	err := g.bindings.SetBinding(ctx, channelID, tenant)
	switch {
	case err == nil:
		g.reply(ctx, channelID, fmt.Sprintf("Got it, this channel now searches %s documents.", tenant))
		return "bound"
	case domain.IsKind(err, domain.ErrInvalidTenant):
		g.reply(ctx, channelID, fmt.Sprintf("I don't know %q. Available: %s", tenant, strings.Join(g.tenants.Names(), ", ")))
		return "bind_rejected"
	default:
		g.logger.Error("set binding failed", "channel_id", channelID, "tenant", tenant, "error", err)
		g.reply(ctx, channelID, replyUnavailable)
		return "bind_error"
	}
}

func (g *Gateway) handleQuestion(ctx context.Context, channelID, question string) string {
	tenant, err := g.bindings.ResolveBinding(ctx, channelID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotBound) {
			g.reply(ctx, channelID, replyNotBound)
			return "not_bound"
		}
		g.logger.Error("resolve binding failed", "channel_id", channelID, "error", err)
		g.reply(ctx, channelID, replyRetry)
		return "binding_error"
	}

	answer, err := g.ask.Ask(ctx, tenant, question)
	if err != nil {
		g.logger.Error("ask failed", "channel_id", channelID, "tenant", tenant, "error", err)
		if domain.IsKind(err, domain.ErrStorageUnavailable) || domain.IsKind(err, domain.ErrEmbeddingFailure) {
			g.reply(ctx, channelID, replyRetry)
			return "recoverable_error"
		}
		g.reply(ctx, channelID, "Something went wrong answering that, please try again.")
		return "error"
	}

	g.reply(ctx, channelID, answer.Text)
	if len(answer.Sources) == 0 {
		return "no_context"
	}
	return "answered"
}

// HandleIngested announces a freshly indexed document to every channel bound
// to its tenant.
func (g *Gateway) HandleIngested(ctx context.Context, event domain.IngestedEvent) error {
	channels, err := g.bindings.ChannelsFor(ctx, event.Tenant)
	if err != nil {
		g.logger.Error("list bound channels failed", "tenant", event.Tenant, "error", err)
		return err
	}
	if len(channels) == 0 {
		return nil
	}

	announcement := fmt.Sprintf("New document indexed for %s: %s (%d chunks).",
		event.Tenant, event.FileName, event.ChunkCount)
	for _, channelID := range channels {
		g.reply(ctx, channelID, announcement)
	}
	return nil
}

func (g *Gateway) reply(ctx context.Context, channelID, text string) {
	if err := g.transport.PublishChatReply(ctx, channelID, text); err != nil {
		g.logger.Error("publish reply failed", "channel_id", channelID, "error", err)
	}
}
