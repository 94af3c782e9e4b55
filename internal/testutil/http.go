package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/comptoirhq/comptoir/internal/app/system/authn"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/google/uuid"
)

// TestCaller represents caller data for testing HTTP handlers.
type TestCaller struct {
	ID    string
	Name  string
	Email string
	Role  models.Role
}

// AdminCaller returns a TestCaller with the admin role.
func AdminCaller() TestCaller {
	return TestCaller{
		ID:    uuid.NewString(),
		Name:  "Test Admin",
		Email: "admin@test.example",
		Role:  models.RoleAdmin,
	}
}

// CollaborateurCaller returns a TestCaller with the collaborateur role.
func CollaborateurCaller() TestCaller {
	return TestCaller{
		ID:    uuid.NewString(),
		Name:  "Test Collaborateur",
		Email: "collab@test.example",
		Role:  models.RoleCollaborateur,
	}
}

// LectureSeuleCaller returns a TestCaller with the read-only role.
func LectureSeuleCaller() TestCaller {
	return TestCaller{
		ID:    uuid.NewString(),
		Name:  "Test Lecture",
		Email: "lecture@test.example",
		Role:  models.RoleLectureSeule,
	}
}

// UnassignedCaller returns a TestCaller with no role row.
func UnassignedCaller() TestCaller {
	return TestCaller{
		ID:    uuid.NewString(),
		Name:  "Test Unassigned",
		Email: "unassigned@test.example",
		Role:  models.RoleUnassigned,
	}
}

// WithCaller adds a caller to the request context for testing authenticated
// handlers. This bypasses the auth middleware and injects the caller
// directly.
func WithCaller(r *http.Request, c TestCaller) *http.Request {
	return authn.WithTestCaller(r, &authn.Caller{
		ID:        c.ID,
		Email:     c.Email,
		Name:      c.Name,
		Role:      c.Role,
		Confirmed: true,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, target, body)
}

// NewAuthenticatedRequest creates an HTTP request with a caller in context.
func NewAuthenticatedRequest(method, target string, body io.Reader, c TestCaller) *http.Request {
	return WithCaller(httptest.NewRequest(method, target, body), c)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !strings.Contains(body, expected) {
		t.Errorf("response body %q does not contain %q", body, expected)
	}
}
