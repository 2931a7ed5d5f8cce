package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/alanyoungcy/fxscalper/internal/bot"
	"github.com/alanyoungcy/fxscalper/internal/domain"
	"github.com/alanyoungcy/fxscalper/internal/server/middleware"
)

// Control actions.
const (
	ActionStart          = "start"
	ActionStop           = "stop"
	ActionUpdateStrategy = "update_strategy"
	ActionSwitchAccount  = "switch_account"
)

// Controller is the write side of the bot. It is implemented by *bot.Bot.
type Controller interface {
	Start() (bool, error)
	Stop() bool
	PatchStrategy(p bot.StrategyPatch) domain.StrategyConfig
	SwitchAccount(key string) error
}

// ControlRequest is the body of POST /api/control.
type ControlRequest struct {
	Action            string `json:"action" validate:"required,oneof=start stop update_strategy switch_account"`
	UseMultiTimeframe *bool  `json:"use_multi_timeframe,omitempty"`
	UseCorrelation    *bool  `json:"use_correlation,omitempty"`
	UseModel          *bool  `json:"use_model,omitempty"`
	Account           string `json:"account,omitempty" validate:"required_if=Action switch_account"`
}

// ControlResponse is the only shape POST /api/control ever answers with.
type ControlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// ControlHandler applies control actions to the bot.
type ControlHandler struct {
	bot      Controller
	audit    domain.AuditStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewControlHandler creates a ControlHandler. audit may be nil.
func NewControlHandler(b Controller, audit domain.AuditStore, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{
		bot:      b,
		audit:    audit,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(slog.String("handler", "control")),
	}
}

// Control decodes, validates and applies one action.
// POST /api/control
func (h *ControlHandler) Control(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ControlResponse{Status: statusError, Message: "invalid JSON body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ControlResponse{Status: statusError, Message: validationMessage(err)})
		return
	}

	code, resp := h.apply(req)
	h.record(r.Context(), req, resp)
	writeJSON(w, code, resp)
}

func (h *ControlHandler) apply(req ControlRequest) (int, ControlResponse) {
	switch req.Action {
	case ActionStart:
		started, err := h.bot.Start()
		if err != nil {
			return http.StatusConflict, ControlResponse{Status: statusError, Message: err.Error()}
		}
		if !started {
			return http.StatusOK, ControlResponse{Status: statusSuccess, Message: "Bot already running"}
		}
		return http.StatusOK, ControlResponse{Status: statusSuccess, Message: "Bot started"}

	case ActionStop:
		if !h.bot.Stop() {
			return http.StatusOK, ControlResponse{Status: statusSuccess, Message: "Bot is not running"}
		}
		return http.StatusOK, ControlResponse{Status: statusSuccess, Message: "Bot stopping"}

	case ActionUpdateStrategy:
		cfg := h.bot.PatchStrategy(bot.StrategyPatch{
			UseMultiTimeframe: req.UseMultiTimeframe,
			UseCorrelation:    req.UseCorrelation,
			UseModel:          req.UseModel,
		})
		return http.StatusOK, ControlResponse{
			Status:  statusSuccess,
			Message: fmt.Sprintf("Strategy updated to version %d", cfg.Version),
		}

	case ActionSwitchAccount:
		if err := h.bot.SwitchAccount(req.Account); err != nil {
			if errors.Is(err, domain.ErrUnknownAccount) {
				return http.StatusBadRequest, ControlResponse{Status: statusError, Message: fmt.Sprintf("Unknown account %q", req.Account)}
			}
			return http.StatusInternalServerError, ControlResponse{Status: statusError, Message: "failed to switch account"}
		}
		return http.StatusOK, ControlResponse{Status: statusSuccess, Message: fmt.Sprintf("Switched to account %s", req.Account)}
	}
	return http.StatusBadRequest, ControlResponse{Status: statusError, Message: "Invalid action"}
}

// record writes the action to the audit log. Audit failures never change
// the response.
func (h *ControlHandler) record(ctx context.Context, req ControlRequest, resp ControlResponse) {
	h.logger.InfoContext(ctx, "control action",
		slog.String("action", req.Action),
		slog.String("status", resp.Status),
		slog.String("message", resp.Message),
	)
	if h.audit == nil {
		return
	}
	detail := map[string]any{
		"status":     resp.Status,
		"message":    resp.Message,
		"request_id": middleware.RequestID(ctx),
	}
	if req.Account != "" {
		detail["account"] = req.Account
	}
	for k, v := range map[string]*bool{
		"use_multi_timeframe": req.UseMultiTimeframe,
		"use_correlation":     req.UseCorrelation,
		"use_model":           req.UseModel,
	} {
		if v != nil {
			detail[k] = *v
		}
	}
	if err := h.audit.Log(context.WithoutCancel(ctx), "control."+req.Action, detail); err != nil {
		h.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "Action" && fe.Tag() == "required":
		return "Missing action"
	case fe.Field() == "Action":
		return "Invalid action"
	case fe.Field() == "Account":
		return "Missing account"
	default:
		return fmt.Sprintf("invalid field %s", fe.Field())
	}
}
