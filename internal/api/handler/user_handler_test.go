package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/99minutos/users-api/internal/api/metrics"
	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/core/ports"
	"github.com/99minutos/users-api/internal/i18n"
)

type stubUserService struct {
	listFn    func(ctx context.Context) ([]*domain.User, error)
	createFn  func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	getFn     func(ctx context.Context, id string) (*domain.User, error)
	updateFn  func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn  func(ctx context.Context, id string) error
	approveFn func(ctx context.Context, id string) (*domain.User, error)
	blockFn   func(ctx context.Context, id string) (*domain.User, error)
	setRoleFn func(ctx context.Context, id string, in ports.SetRoleInput) (*domain.User, error)
}

func (s *stubUserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubUserService) Approve(ctx context.Context, id string) (*domain.User, error) {
	return s.approveFn(ctx, id)
}

func (s *stubUserService) Block(ctx context.Context, id string) (*domain.User, error) {
	return s.blockFn(ctx, id)
}

func (s *stubUserService) SetRole(ctx context.Context, id string, in ports.SetRoleInput) (*domain.User, error) {
	return s.setRoleFn(ctx, id, in)
}

func sampleUser() *domain.User {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.User{
		ID:           "65a1b2c3d4e5f60718293a4b",
		Email:        "a@x.com",
		PasswordHash: "$2a$04$hash",
		Status:       domain.StatusApproved,
		RoleID:       2,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

func newTestHandler(t *testing.T, svc ports.UserService) *UserHandler {
	t.Helper()
	tr, err := i18n.New("en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	return NewUserHandler(svc, tr)
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %s", rec.Body.String())
	}
	return data
}

func TestUserHandler_List(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		listFn: func(ctx context.Context) ([]*domain.User, error) {
			return []*domain.User{sampleUser()}, nil
		},
	})
	c, rec := newContext(http.MethodGet, "/users", "")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string][]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp["data"]) != 1 || resp["data"][0]["email"] != "a@x.com" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestUserHandler_List_EmptyIsArray(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		listFn: func(ctx context.Context) ([]*domain.User, error) { return nil, nil },
	})
	c, rec := newContext(http.MethodGet, "/users", "")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":[]}` {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestUserHandler_Create_Success(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			if in.Email != "a@x.com" || in.Password != "longpass1" || in.PasswordConfirmation != "longpass1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Role != "2" {
				t.Fatalf("expected role \"2\", got %q", in.Role)
			}
			return sampleUser(), nil
		},
	})
	body := `{"email":"a@x.com","password":"longpass1","password_confirmation":"longpass1","role":2}`
	c, rec := newContext(http.MethodPost, "/users", body)
	before := testutil.ToFloat64(metrics.UsersCreatedTotal)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(metrics.UsersCreatedTotal) - before; got != 1 {
		t.Fatalf("expected created counter +1, got %v", got)
	}

	data := decodeData(t, rec)
	if data["status"] != "approved" || data["role"] != float64(2) {
		t.Fatalf("unexpected user payload: %+v", data)
	}
	if _, ok := data["password_hash"]; ok {
		t.Fatalf("password hash leaked: %+v", data)
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestUserHandler_Create_RoleAsString(t *testing.T) {
	var got string
	h := newTestHandler(t, &stubUserService{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			got = in.Role
			return sampleUser(), nil
		},
	})
	c, _ := newContext(http.MethodPost, "/users", `{"email":"a@x.com","role":"abc"}`)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got != "abc" {
		t.Fatalf("expected raw role text, got %q", got)
	}
}

func TestUserHandler_Create_InvalidPayload(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			t.Fatalf("service should not be called")
			return nil, nil
		},
	})
	c, _ := newContext(http.MethodPost, "/users", `{"email":`)

	err := h.Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestUserHandler_Create_ValidationErrorPropagates(t *testing.T) {
	verr := &domain.ValidationError{}
	verr.Add("email", domain.RuleUnique, "")
	h := newTestHandler(t, &stubUserService{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			return nil, verr
		},
	})
	c, rec := newContext(http.MethodPost, "/users", `{"email":"a@x.com"}`)

	err := h.Create(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must not write on failure")
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			if id != "missing" {
				t.Fatalf("unexpected id %q", id)
			}
			return nil, domain.ErrUserNotFound
		},
	})
	c, _ := newContext(http.MethodGet, "/users/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.Get(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Update_PartialFields(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			if in.Password == nil || *in.Password != "newpass99" {
				t.Fatalf("expected password, got %+v", in.Password)
			}
			if in.Email != nil || in.Status != nil || in.Role != nil {
				t.Fatalf("absent fields must stay nil: %+v", in)
			}
			return sampleUser(), nil
		},
	})
	c, rec := newContext(http.MethodPatch, "/users/x", `{"password":"newpass99","password_confirmation":"newpass99"}`)
	c.SetParamNames("id")
	c.SetParamValues("x")

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestUserHandler_Update_NullRoleIsAbsent(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			if in.Role != nil {
				t.Fatalf("null role must be treated as absent, got %q", *in.Role)
			}
			return sampleUser(), nil
		},
	})
	c, _ := newContext(http.MethodPut, "/users/x", `{"role":null}`)
	c.SetParamNames("id")
	c.SetParamValues("x")

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	deleted := ""
	h := newTestHandler(t, &stubUserService{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	})
	c, rec := newContext(http.MethodDelete, "/users/x", "")
	c.SetParamNames("id")
	c.SetParamValues("x")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if deleted != "x" {
		t.Fatalf("expected delete of x, got %q", deleted)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Deleted successfully.") {
		t.Fatalf("expected localized message, got %s", rec.Body.String())
	}
}

func TestUserHandler_Delete_Spanish(t *testing.T) {
	h := newTestHandler(t, &stubUserService{
		deleteFn: func(ctx context.Context, id string) error { return nil },
	})
	c, rec := newContext(http.MethodDelete, "/users/x", "")
	c.Request().Header.Set("Accept-Language", "es-MX,es;q=0.9")
	c.SetParamNames("id")
	c.SetParamValues("x")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Eliminado correctamente.") {
		t.Fatalf("expected spanish message, got %s", rec.Body.String())
	}
}

func TestUserHandler_StatusTransitions(t *testing.T) {
	approved := sampleUser()
	blocked := sampleUser()
	blocked.Status = domain.StatusBlocked

	h := newTestHandler(t, &stubUserService{
		approveFn: func(ctx context.Context, id string) (*domain.User, error) { return approved, nil },
		blockFn:   func(ctx context.Context, id string) (*domain.User, error) { return blocked, nil },
	})

	tests := []struct {
		name   string
		call   func(echo.Context) error
		status string
	}{
		{"approve", h.Approve, "approved"},
		{"block", h.Block, "blocked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/users/x/"+tt.name, "")
			c.SetParamNames("id")
			c.SetParamValues("x")

			if err := tt.call(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusAccepted {
				t.Fatalf("expected 202, got %d", rec.Code)
			}
			if data := decodeData(t, rec); data["status"] != tt.status {
				t.Fatalf("expected status %s, got %v", tt.status, data["status"])
			}
		})
	}
}

func TestUserHandler_SetRole(t *testing.T) {
	updated := sampleUser()
	updated.RoleID = 1
	h := newTestHandler(t, &stubUserService{
		setRoleFn: func(ctx context.Context, id string, in ports.SetRoleInput) (*domain.User, error) {
			if in.Role != "1" {
				t.Fatalf("expected role \"1\", got %q", in.Role)
			}
			return updated, nil
		},
	})
	c, rec := newContext(http.MethodPatch, "/users/x/role", `{"role":"1"}`)
	c.SetParamNames("id")
	c.SetParamValues("x")

	if err := h.SetRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if data := decodeData(t, rec); data["role"] != float64(1) {
		t.Fatalf("unexpected role: %v", data["role"])
	}
}
