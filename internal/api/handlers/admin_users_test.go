package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/counselcms/server/internal/validation"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context) ([]users.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]users.User), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, params users.CreateUserParams, actor string) (*users.User, error) {
	args := m.Called(ctx, params, actor)
	user, _ := args.Get(0).(*users.User)
	return user, args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, id, password, actor string) error {
	return m.Called(ctx, id, password, actor).Error(0)
}

func (m *MockUserService) Delete(ctx context.Context, id, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

const (
	adminID = "01J00000000000000000000ADM"
	otherID = "01J00000000000000000000XYZ"
)

func usersMux(h *AdminUsersHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/admin/users", h.ListUsers)
	mux.HandleFunc("POST /api/v1/admin/users", h.CreateUser)
	mux.HandleFunc("PUT /api/v1/admin/users/{id}/password", h.ChangePassword)
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", h.DeleteUser)
	return mux
}

func asAdmin(r *http.Request) *http.Request {
	return withClaims(r, adminID, "root", auth.RoleAdmin)
}

func TestAdminUsers_List(t *testing.T) {
	svc := new(MockUserService)
	svc.On("List", mock.Anything).Return([]users.User{
		{ID: adminID, Username: "root", Role: "admin", PasswordHash: "secret-hash"},
	}, nil)
	mux := usersMux(NewAdminUsersHandler(svc, "test"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, asAdmin(httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "secret-hash")
	list := decodeJSONBody[listResponse[users.User]](t, w)
	require.Len(t, list.Items, 1)
	require.Equal(t, "root", list.Items[0].Username)
	svc.AssertExpectations(t)
}

func TestAdminUsers_Create(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"created", nil, http.StatusCreated},
		{"username taken", users.ErrUsernameTaken, http.StatusConflict},
		{"weak password", validation.NewFieldError("password", "too short"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			params := users.CreateUserParams{Username: "paralegal", Password: "correct horse battery", Role: "editor"}
			var created *users.User
			if tt.serviceErr == nil {
				created = &users.User{ID: otherID, Username: "paralegal", Role: "editor"}
			}
			svc.On("Create", mock.Anything, params, "root").Return(created, tt.serviceErr)
			mux := usersMux(NewAdminUsersHandler(svc, "test"))

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, asAdmin(adminRequest(t, http.MethodPost, "/api/v1/admin/users", params)))
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestAdminUsers_ChangePassword(t *testing.T) {
	svc := new(MockUserService)
	svc.On("ChangePassword", mock.Anything, otherID, "a much longer passphrase", "root").Return(nil)
	mux := usersMux(NewAdminUsersHandler(svc, "test"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, asAdmin(adminRequest(t, http.MethodPut, "/api/v1/admin/users/"+otherID+"/password",
		ChangePasswordRequest{Password: "a much longer passphrase"})))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestAdminUsers_Delete(t *testing.T) {
	t.Run("deletes another user", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Delete", mock.Anything, otherID, "root").Return(nil)
		mux := usersMux(NewAdminUsersHandler(svc, "test"))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, asAdmin(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+otherID, nil)))
		require.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("refuses to delete self", func(t *testing.T) {
		svc := new(MockUserService)
		mux := usersMux(NewAdminUsersHandler(svc, "test"))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, asAdmin(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+adminID, nil)))
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, problem.TypeConflict, decodeJSONBody[problem.ProblemDetails](t, w).Type)
		svc.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("last admin", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Delete", mock.Anything, otherID, "root").Return(users.ErrLastAdmin)
		mux := usersMux(NewAdminUsersHandler(svc, "test"))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, asAdmin(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+otherID, nil)))
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Delete", mock.Anything, otherID, "root").Return(users.ErrUserNotFound)
		mux := usersMux(NewAdminUsersHandler(svc, "test"))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, asAdmin(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+otherID, nil)))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
