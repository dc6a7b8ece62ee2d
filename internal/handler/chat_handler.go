package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/middleware"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/service"
	"github.com/gofiber/fiber/v3"
)

// DoneFrame terminates a successful chat stream.
const DoneFrame = "data: [DONE]\n\n"

// ChatHandler relays chat answers from the model as Server-Sent Events.
type ChatHandler struct {
	models       port.AIFactory
	defaultModel string
	buffer       int
}

// NewChatHandler creates a chat relay. buffer is the number of increments
// held between the model reader and the response writer.
func NewChatHandler(models port.AIFactory, defaultModel string, buffer int) *ChatHandler {
	if defaultModel == "" {
		defaultModel = domain.DefaultModel
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &ChatHandler{models: models, defaultModel: defaultModel, buffer: buffer}
}

// Register sets up chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/chat", h.Status)
	router.Post("/chat", h.Chat)
}

// Status is the chat liveness probe.
func (h *ChatHandler) Status(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Chat API is running. Use POST to send messages.",
	})
}

type chatRequest struct {
	Message     string               `json:"message"`
	History     []domain.ChatMessage `json:"history"`
	RepoContext *domain.RepoContext  `json:"repoContext"`
}

type relayFrame struct {
	content string
	err     error
}

// Chat validates the request and streams `data: {"content": ...}` frames,
// ending with `data: [DONE]`. An upstream failure ends the stream without
// the sentinel.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	apiKey := c.Get("x-api-key")
	if apiKey == "" {
		return fail(c, port.ErrMissingAPIKey)
	}
	var body chatRequest
	if err := c.Bind().JSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
		return fail(c, port.ErrMissingMessage)
	}
	model := strings.Clone(c.Get("x-model", h.defaultModel))

	// The stream outlives the handler call, so it gets its own context.
	ctx, cancel := context.WithCancel(context.Background())
	ai, err := h.models(ctx, apiKey, model)
	if err != nil {
		cancel()
		return fail(c, err)
	}
	seq := service.NewAIService(ai).StreamChat(ctx, body.History, body.Message, body.RepoContext)

	middleware.SetAuditAction(c, domain.AuditActionChat, "")
	setSSEHeaders(c)
	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		frames := make(chan relayFrame, h.buffer)
		go produce(ctx, seq, frames)

		for f := range frames {
			if f.err != nil {
				slog.Error("chat stream failed", "model", model, "error", f.err)
				return
			}
			if err := writeContentFrame(w, f.content); err != nil {
				slog.Warn("chat client gone, cancelling upstream", "model", model, "error", err)
				return
			}
		}
		if _, err := w.WriteString(DoneFrame); err == nil {
			_ = w.Flush()
		}
	})
}

// produce reads increments from seq into out until seq ends, fails, or ctx
// is cancelled. out is closed on return.
func produce(ctx context.Context, seq iter.Seq2[string, error], out chan<- relayFrame) {
	defer close(out)
	for chunk, err := range seq {
		select {
		case out <- relayFrame{content: chunk, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func writeContentFrame(w *bufio.Writer, content string) error {
	data, err := json.Marshal(fiber.Map{"content": content})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
