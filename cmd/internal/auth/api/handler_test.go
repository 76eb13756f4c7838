package authapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"scholarbridge/cmd/identity"
	"scholarbridge/cmd/security/credential"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestHandler(t *testing.T) (*Handler, *identity.InMemoryStore, *credential.Service) {
	t.Helper()

	cfg := credential.DefaultConfig()
	// Cheap parameters keep the suite fast; correctness does not depend on cost.
	cfg.Scrypt.N = 1 << 10
	cfg.BcryptCost = bcrypt.MinCost

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds := credential.NewService(log, cfg, []byte(testSecret), nil)
	store := identity.NewInMemoryStore()

	apiCfg := LoadConfigFromEnv()
	apiCfg.RegistrationOpen = true
	// Generous smoothing so only the lockout logic shapes these tests.
	apiCfg.RequestRate = 1000
	apiCfg.RequestBurst = 1000

	h, err := NewHandler(log, nil, store, creds, apiCfg, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, store, creds
}

func seedUser(t *testing.T, store *identity.InMemoryStore, creds *credential.Service, admission, password string) identity.User {
	t.Helper()
	hash, err := creds.Encode(context.Background(), password)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	u, err := store.CreateUser(context.Background(), identity.CreateUserInput{
		AdmissionNumber: admission,
		PasswordHash:    hash,
		Now:             time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func postJSON(t *testing.T, h *Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:50000"
	w := httptest.NewRecorder()
	mux := http.NewServeMux()
	h.Register(mux)
	mux.ServeHTTP(w, req)
	return w
}

func TestLogin_Success(t *testing.T) {
	h, store, creds := newTestHandler(t)
	seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	w := postJSON(t, h, "/auth/login", `{"admission_number":"ADM-2024-001","password":"Sunshine!2024"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User.AdmissionNumber != "ADM-2024-001" {
		t.Fatalf("admission=%q", resp.User.AdmissionNumber)
	}
}

func TestLogin_UniformFailures(t *testing.T) {
	h, store, creds := newTestHandler(t)
	seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	// Unknown account and wrong password must be indistinguishable.
	unknown := postJSON(t, h, "/auth/login", `{"admission_number":"ADM-9999-999","password":"Sunshine!2024"}`)
	wrongPw := postJSON(t, h, "/auth/login", `{"admission_number":"ADM-2024-001","password":"sunshine!2024"}`)

	for name, w := range map[string]*httptest.ResponseRecorder{"unknown": unknown, "wrong password": wrongPw} {
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status=%d", name, w.Code)
		}
	}
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("failure bodies differ:\n%s\n%s", unknown.Body.String(), wrongPw.Body.String())
	}
}

func TestLogin_CaseSensitivePassword(t *testing.T) {
	h, store, creds := newTestHandler(t)
	seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	w := postJSON(t, h, "/auth/login", `{"admission_number":"ADM-2024-001","password":"SUNSHINE!2024"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("case-flipped password accepted: status=%d", w.Code)
	}
}

func TestLogin_AdmissionNumberCaseInsensitive(t *testing.T) {
	h, store, creds := newTestHandler(t)
	seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	w := postJSON(t, h, "/auth/login", `{"admission_number":"adm-2024-001","password":"Sunshine!2024"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("lowercased admission number rejected: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	h, store, creds := newTestHandler(t)
	seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	for i := 0; i < 5; i++ {
		w := postJSON(t, h, "/auth/login", `{"admission_number":"ADM-2024-001","password":"wrong"}`)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status=%d", i+1, w.Code)
		}
	}

	// Even the correct password is refused while locked.
	w := postJSON(t, h, "/auth/login", `{"admission_number":"ADM-2024-001","password":"Sunshine!2024"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429 while locked", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestLogin_BadRequests(t *testing.T) {
	h, _, _ := newTestHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{broken`},
		{"missing password", `{"admission_number":"ADM-1"}`},
		{"missing admission", `{"password":"x"}`},
		{"unknown field", `{"admission_number":"a","password":"b","extra":1}`},
	}
	for _, tc := range cases {
		w := postJSON(t, h, "/auth/login", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d, want 400", tc.name, w.Code)
		}
	}
}

func TestRegister_ThenLogin(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := postJSON(t, h, "/auth/register", `{"admission_number":"ADM-2025-042","password":"Sunshine!2024"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", w.Code, w.Body.String())
	}

	w = postJSON(t, h, "/auth/login", `{"admission_number":"ADM-2025-042","password":"Sunshine!2024"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login after register status=%d", w.Code)
	}
}

func TestRegister_ConflictAndPolicy(t *testing.T) {
	h, store, creds := newTestHandler(t)
	seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	w := postJSON(t, h, "/auth/register", `{"admission_number":"adm-2024-001","password":"Sunshine!2024"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate admission status=%d, want 409", w.Code)
	}

	w = postJSON(t, h, "/auth/register", `{"admission_number":"ADM-2025-001","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("weak password status=%d, want 400", w.Code)
	}
}

func TestRegister_ClosedByDefault(t *testing.T) {
	h, _, _ := newTestHandler(t)
	h.cfg.RegistrationOpen = false

	w := postJSON(t, h, "/auth/register", `{"admission_number":"ADM-1","password":"Sunshine!2024"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d, want 403", w.Code)
	}
}

func TestPasswordChange_ReencodesCurrentFormat(t *testing.T) {
	h, store, creds := newTestHandler(t)
	u := seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	w := postJSON(t, h, "/auth/password",
		`{"admission_number":"ADM-2024-001","current_password":"Sunshine!2024","new_password":"Moonlight#2025"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	got, err := store.LookupByAdmissionNumber(context.Background(), "ADM-2024-001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.PasswordHash == u.PasswordHash {
		t.Fatalf("stored hash not replaced")
	}
	rec, err := credential.ParseStored(got.PasswordHash)
	if err != nil {
		t.Fatalf("ParseStored: %v", err)
	}
	if rec.Kind != credential.KindLayered {
		t.Fatalf("new hash kind=%v, want layered", rec.Kind)
	}

	// Old password no longer verifies; new one does.
	if creds.Verify(context.Background(), "Sunshine!2024", got.PasswordHash) {
		t.Fatalf("old password still verifies")
	}
	if !creds.Verify(context.Background(), "Moonlight#2025", got.PasswordHash) {
		t.Fatalf("new password does not verify")
	}
}

func TestPasswordChange_WrongCurrentRejected(t *testing.T) {
	h, store, creds := newTestHandler(t)
	seedUser(t, store, creds, "ADM-2024-001", "Sunshine!2024")

	w := postJSON(t, h, "/auth/password",
		`{"admission_number":"ADM-2024-001","current_password":"wrong","new_password":"Moonlight#2025"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
}
