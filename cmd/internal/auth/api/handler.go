// Package authapi exposes the credential HTTP surface: login, registration,
// and password change. Every failed login looks identical to the caller;
// reasons are kept for the audit log only.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"scholarbridge/cmd/identity"
	"scholarbridge/cmd/internal/metrics"
	"scholarbridge/cmd/security/credential"
)

// Handler wires HTTP auth endpoints to the identity store and credential service.
type Handler struct {
	log *slog.Logger
	cfg Config

	dbEnabled bool
	pool      *pgxpool.Pool

	store identity.Store
	creds *credential.Service
	met   *metrics.Collector

	lockout *attemptLedger
	limiter *ipRateLimiter

	// Dummy hash for timing-resistant login checks: verification runs even
	// when the admission number resolves to nobody.
	dummyHash string

	clock func() time.Time
}

// NewHandler constructs an auth Handler. pool may be nil; audit logging is
// then disabled. store and creds must be non-nil.
func NewHandler(log *slog.Logger, pool *pgxpool.Pool, store identity.Store, creds *credential.Service, cfg Config, met *metrics.Collector) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if creds == nil {
		return nil, errors.New("auth: nil credential service")
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		dbEnabled: pool != nil,
		pool:      pool,
		store:     store,
		creds:     creds,
		met:       met,
		lockout:   newAttemptLedger(cfg.LockoutThreshold, cfg.LockoutWindow, cfg.LockoutDuration),
		limiter:   newIPRateLimiter(cfg.RequestRate, cfg.RequestBurst),
		clock:     time.Now,
	}

	if hash, err := creds.Encode(context.Background(), "Dummy-credential-for-timing-1!"); err == nil {
		h.dummyHash = hash
	} else {
		log.Warn("auth.dummy_hash.fail", "err", err)
	}

	return h, nil
}

// Register wires auth routes onto the provided mux, behind the per-address
// request limiter.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	wrap := func(fn http.HandlerFunc) http.Handler {
		return h.limiter.Middleware(h.cfg.TrustProxy, fn)
	}
	mux.Handle("/auth/login", wrap(h.handleLogin))
	mux.Handle("/auth/register", wrap(h.handleRegister))
	mux.Handle("/auth/password", wrap(h.handlePasswordChange))
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	admission := strings.TrimSpace(req.AdmissionNumber)
	if admission == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "admission_number and password are required")
		return
	}

	ctx := r.Context()
	now := h.clock().UTC()
	addr := clientAddr(r, h.cfg.TrustProxy)
	identifier := identity.NormalizeAdmissionNumber(admission)

	if blocked, retryAfter := h.lockout.Blocked(addr, now); blocked {
		h.met.LoginThrottled()
		h.auditLoginRateLimited(ctx, addr, identifier, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	user, err := h.store.LookupByAdmissionNumber(ctx, admission)
	if err != nil {
		// Timing resistance: run the full verify against a dummy hash so a
		// missing account costs the same as a wrong password.
		if h.dummyHash != "" {
			_ = h.creds.Verify(ctx, req.Password, h.dummyHash)
		}
		h.loginRejected(ctx, w, nil, addr, identifier, rejectReason(err), now)
		return
	}

	if !h.creds.Verify(ctx, req.Password, user.PasswordHash) {
		h.loginRejected(ctx, w, &user.ID, addr, identifier, "bad_credential", now)
		return
	}

	h.lockout.Reset(addr)
	h.met.LoginSuccess()
	h.auditLoginSuccess(ctx, user.ID, addr, identifier)

	writeJSON(w, http.StatusOK, loginResponse{User: toUserResponse(user)})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.cfg.RegistrationOpen {
		writeError(w, http.StatusForbidden, "registration_closed", "registration is closed")
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	admission := strings.TrimSpace(req.AdmissionNumber)
	if admission == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "admission_number is required")
		return
	}

	ctx := r.Context()
	addr := clientAddr(r, h.cfg.TrustProxy)

	hash, err := h.creds.Encode(ctx, req.Password)
	if err != nil {
		if isPolicyErr(err) {
			writeError(w, http.StatusBadRequest, "weak_password", err.Error())
			return
		}
		h.log.Error("auth.register.encode.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	user, err := h.store.CreateUser(ctx, identity.CreateUserInput{
		AdmissionNumber: admission,
		DisplayName:     req.DisplayName,
		PasswordHash:    hash,
		Now:             h.clock().UTC(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "already_registered", "admission number already registered")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid registration input")
		default:
			h.log.Error("auth.register.create.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditRegistered(ctx, user.ID, addr, user.AdmissionNorm)
	writeJSON(w, http.StatusCreated, registerResponse{User: toUserResponse(user)})
}

func (h *Handler) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req passwordChangeRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	admission := strings.TrimSpace(req.AdmissionNumber)
	if admission == "" || req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "admission_number, current_password and new_password are required")
		return
	}

	ctx := r.Context()
	now := h.clock().UTC()
	addr := clientAddr(r, h.cfg.TrustProxy)
	identifier := identity.NormalizeAdmissionNumber(admission)

	if blocked, retryAfter := h.lockout.Blocked(addr, now); blocked {
		h.met.LoginThrottled()
		h.auditLoginRateLimited(ctx, addr, identifier, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	user, err := h.store.LookupByAdmissionNumber(ctx, admission)
	if err != nil {
		if h.dummyHash != "" {
			_ = h.creds.Verify(ctx, req.CurrentPassword, h.dummyHash)
		}
		h.loginRejected(ctx, w, nil, addr, identifier, rejectReason(err), now)
		return
	}

	if !h.creds.Verify(ctx, req.CurrentPassword, user.PasswordHash) {
		h.loginRejected(ctx, w, &user.ID, addr, identifier, "bad_credential", now)
		return
	}

	// Re-encode from scratch; the stored hash is replaced wholesale and
	// always lands in the current format.
	hash, err := h.creds.Encode(ctx, req.NewPassword)
	if err != nil {
		if isPolicyErr(err) {
			writeError(w, http.StatusBadRequest, "weak_password", err.Error())
			return
		}
		h.log.Error("auth.password.encode.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if err := h.store.ReplaceCredential(ctx, user.ID, hash, now); err != nil {
		h.log.Error("auth.password.replace.fail", "err", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.lockout.Reset(addr)
	h.auditPasswordChanged(ctx, user.ID, addr)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// ---- helpers ----

// loginRejected is the single uniform failure path: identical status, code,
// and body regardless of the underlying reason.
func (h *Handler) loginRejected(ctx context.Context, w http.ResponseWriter, userID *int64, addr, identifier, reason string, now time.Time) {
	h.lockout.RecordFailure(addr, now)
	h.met.LoginFail()
	h.auditLoginFailed(ctx, userID, addr, identifier, reason)
	writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
}

func rejectReason(err error) string {
	if identity.IsNotFound(err) {
		return "not_found"
	}
	return "lookup_failed"
}

func isPolicyErr(err error) bool {
	return errors.Is(err, credential.ErrPasswordTooShort) ||
		errors.Is(err, credential.ErrPasswordTooLong) ||
		errors.Is(err, credential.ErrWeakPassword)
}
