package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/service"
)

type handler struct {
	svc    *service.Inbox
	logger *zap.Logger
}

func (h *handler) routes(app *fiber.App) {
	app.Get("/status", h.status)
	app.Get("/contacts", h.contacts)
	app.Get("/messages", h.messages)
	app.Post("/send", h.send)
	app.Get("/sync-progress", h.syncProgress)
	app.Post("/pair", h.pair)
	app.Post("/messages/:id/read", h.markRead)
	app.Get("/webhook", h.verifyWebhook)
	app.Post("/webhook", h.receiveWebhook)
}

func (h *handler) status(c *fiber.Ctx) error {
	return c.JSON(h.svc.Status())
}

func (h *handler) contacts(c *fiber.Ctx) error {
	contacts, err := h.svc.Contacts(c.UserContext())
	if err != nil {
		return err
	}
	if contacts == nil {
		contacts = []inbox.Contact{}
	}
	return c.JSON(contacts)
}

func (h *handler) messages(c *fiber.Ctx) error {
	msgs, err := h.svc.Messages(c.UserContext())
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []inbox.Message{}
	}
	return c.JSON(msgs)
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (h *handler) send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	res, err := h.svc.Send(c.UserContext(), req.To, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *handler) syncProgress(c *fiber.Ctx) error {
	p, err := h.svc.SyncProgress()
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *handler) pair(c *fiber.Ctx) error {
	if err := h.svc.Pair(c.UserContext()); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "pairing"})
}

func (h *handler) markRead(c *fiber.Ctx) error {
	if err := h.svc.MarkRead(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *handler) verifyWebhook(c *fiber.Ctx) error {
	wh, ok := h.svc.Webhook()
	if !ok {
		return backend.ErrUnsupported
	}
	challenge, ok := wh.VerifyChallenge(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if !ok {
		h.logger.Warn("webhook verification failed")
		return fiber.NewError(fiber.StatusForbidden, "verification failed")
	}
	h.logger.Info("webhook verified")
	return c.SendString(challenge)
}

func (h *handler) receiveWebhook(c *fiber.Ctx) error {
	wh, ok := h.svc.Webhook()
	if !ok {
		return backend.ErrUnsupported
	}
	// The body buffer is reused by fasthttp after the handler returns.
	body := append([]byte(nil), c.Body()...)
	if err := wh.HandleWebhook(c.UserContext(), body, c.Get("X-Hub-Signature-256")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
