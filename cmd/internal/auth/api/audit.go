package authapi

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

func (h *Handler) auditLoginFailed(ctx context.Context, userID *int64, addr, identifier, reason string) {
	h.insertAudit(ctx, "auth.login.failed", userID, addr, map[string]any{
		"identifier": identifier,
		"reason":     reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID int64, addr, identifier string) {
	h.insertAudit(ctx, "auth.login.success", &userID, addr, map[string]any{
		"identifier": identifier,
	})
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, addr, identifier string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.login.rate_limited", nil, addr, map[string]any{
		"identifier":    identifier,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditPasswordChanged(ctx context.Context, userID int64, addr string) {
	h.insertAudit(ctx, "auth.password.changed", &userID, addr, nil)
}

func (h *Handler) auditRegistered(ctx context.Context, userID int64, addr, identifier string) {
	h.insertAudit(ctx, "auth.register.success", &userID, addr, map[string]any{
		"identifier": identifier,
	})
}

func (h *Handler) insertAudit(ctx context.Context, action string, userID *int64, addr string, meta map[string]any) {
	if h == nil || h.pool == nil || !h.dbEnabled {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO scb.audit_log (
			user_id, action, created_at, ip, meta
		) VALUES ($1, $2, now(), $3, $4::jsonb)
	`, userID, action, trimOrNil(addr), metaVal)
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
