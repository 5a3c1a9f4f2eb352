package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/users-api/internal/api/handler"
	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/core/service"
	"github.com/99minutos/users-api/internal/core/validation"
	"github.com/99minutos/users-api/internal/i18n"
)

type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for i := 1; i <= r.nextID; i++ {
		if u, ok := r.users[fmt.Sprintf("u%d", i)]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *user
	cp.ID = fmt.Sprintf("u%d", r.nextID)
	r.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type memRoleRepo map[int64]string

func (r memRoleRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r[id]
	return ok, nil
}

func (r memRoleRepo) Upsert(ctx context.Context, role domain.Role) error {
	r[role.ID] = role.Name
	return nil
}

func (r memRoleRepo) List(ctx context.Context) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(r))
	for id, name := range r {
		out = append(out, domain.Role{ID: id, Name: name})
	}
	return out, nil
}

func newTestRouter(t *testing.T, secret string) *echo.Echo {
	t.Helper()
	tr, err := i18n.New("en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	svc := service.NewUserService(
		newMemUserRepo(),
		memRoleRepo{1: "admin", 2: "user"},
		service.NewBcryptHasher(bcrypt.MinCost),
		validation.New(),
		zerolog.Nop(),
	)
	return NewRouter(Dependencies{
		Users:      svc,
		Translator: tr,
		Logger:     zerolog.Nop(),
		JWTSecret:  secret,
		AdminRoles: []string{"admin"},
		Checks: map[string]handler.DependencyCheck{
			"mongodb": func(context.Context) error { return nil },
		},
		Registry: prometheus.NewRegistry(),
	})
}

func do(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func userData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v (%s)", err, rec.Body.String())
	}
	return resp.Data
}

const createBody = `{"email":"a@x.com","password":"longpass1","password_confirmation":"longpass1","role":2}`

func TestRouter_UserLifecycle(t *testing.T) {
	e := newTestRouter(t, "")

	rec := do(e, http.MethodPost, "/users", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := userData(t, rec)
	id, _ := created["id"].(string)
	if id == "" || created["status"] != "approved" || created["role"] != float64(2) {
		t.Fatalf("unexpected created user: %+v", created)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password leaked: %s", rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/users/"+id, "")
	if rec.Code != http.StatusOK || userData(t, rec)["email"] != "a@x.com" {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/users/"+id+"/block", "")
	if rec.Code != http.StatusAccepted || userData(t, rec)["status"] != "blocked" {
		t.Fatalf("block: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPatch, "/users/"+id+"/approve", "")
	if rec.Code != http.StatusAccepted || userData(t, rec)["status"] != "approved" {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/users/"+id+"/role", `{"role":"1"}`)
	if rec.Code != http.StatusAccepted || userData(t, rec)["role"] != float64(1) {
		t.Fatalf("set role: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPut, "/users/"+id, `{"status":"pending"}`)
	if rec.Code != http.StatusAccepted || userData(t, rec)["status"] != "pending" {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/users", "")
	var list struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list.Data) != 1 {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodDelete, "/users/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/users/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestRouter_CreateValidationFailure(t *testing.T) {
	e := newTestRouter(t, "")

	body := `{"email":"not-an-email","password":"short","password_confirmation":"other","role":"abc"}`
	rec := do(e, http.MethodPost, "/users", body, "Accept-Language", "es")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp validationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, field := range []string{"email", "password", "role"} {
		if len(resp.Fields[field]) == 0 {
			t.Fatalf("expected messages for %s, got %v", field, resp.Fields)
		}
	}
	if resp.Error != "Los datos proporcionados no son válidos." {
		t.Fatalf("expected spanish summary, got %q", resp.Error)
	}

	rec = do(e, http.MethodGet, "/users", "")
	if strings.TrimSpace(rec.Body.String()) != `{"data":[]}` {
		t.Fatalf("failed create must not store a user: %s", rec.Body.String())
	}
}

func TestRouter_DuplicateEmail(t *testing.T) {
	e := newTestRouter(t, "")

	if rec := do(e, http.MethodPost, "/users", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("first create: %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/users", createBody)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "has already been taken") {
		t.Fatalf("expected unique message, got %s", rec.Body.String())
	}
}

func TestRouter_UnknownUser(t *testing.T) {
	e := newTestRouter(t, "")

	tests := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/users/missing", ""},
		{http.MethodPatch, "/users/missing", `{"status":"blocked"}`},
		{http.MethodDelete, "/users/missing", ""},
		{http.MethodPost, "/users/missing/approve", ""},
		{http.MethodPost, "/users/missing/block", ""},
		{http.MethodPost, "/users/missing/role", `{"role":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(e, tt.method, tt.target, tt.body)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_InvalidPayload(t *testing.T) {
	e := newTestRouter(t, "")

	rec := do(e, http.MethodPost, "/users", `{"email":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRouter_AuthGate(t *testing.T) {
	e := newTestRouter(t, "secret")

	sign := func(role string) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "operator",
			"role": role,
			"exp":  time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return "Bearer " + tok
	}

	if rec := do(e, http.MethodGet, "/users", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/users", "", echo.HeaderAuthorization, sign("user")); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: expected 403, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/users", "", echo.HeaderAuthorization, sign("admin")); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", rec.Code)
	}
}

func TestRouter_Probes(t *testing.T) {
	e := newTestRouter(t, "")

	if rec := do(e, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}

	_ = do(e, http.MethodGet, "/users", "")
	rec := do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "users_api_requests_total") {
		t.Fatalf("expected http request metrics, got %s", rec.Body.String())
	}
}

func TestRouter_LogsRequests(t *testing.T) {
	tr, err := i18n.New("en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	var logs bytes.Buffer
	e := NewRouter(Dependencies{
		Users:      &service.UserService{},
		Translator: tr,
		Logger:     zerolog.New(&logs),
		Registry:   prometheus.NewRegistry(),
	})

	if rec := do(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log entry, got %q: %v", logs.String(), err)
	}
	if entry["uri"] != "/health" || entry["status"] != float64(200) || entry["method"] != http.MethodGet {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}
