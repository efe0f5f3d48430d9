package transport

import (
	"net/http"

	"spice-store/internal/domain"
	"spice-store/internal/middleware"
	"spice-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRequest bootstraps the first super-admin account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
}

// LoginRequest authenticates an admin.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// UpdateProfileRequest changes the caller's own profile.
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=2"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

// ChangePasswordRequest rotates the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// CreateAdminRequest adds a staff account with an explicit role.
type CreateAdminRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=super-admin admin staff"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
}

// SetAdminActiveRequest enables or disables another admin's account.
type SetAdminActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// adminView strips the password hash from API responses.
type adminView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Phone    string    `json:"phone,omitempty"`
	IsActive bool      `json:"isActive"`
}

func newAdminView(admin *domain.Admin) adminView {
	return adminView{
		ID:       admin.ID,
		Name:     admin.Name,
		Email:    admin.Email,
		Role:     admin.Role,
		Phone:    admin.Phone,
		IsActive: admin.IsActive,
	}
}

// AdminHandler handles HTTP requests for admin accounts and authentication.
type AdminHandler struct {
	adminService service.AdminService
	logger       *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, logger: logger}
}

// RegisterAuthRoutes registers the unauthenticated auth routes.
func (h *AdminHandler) RegisterAuthRoutes(r chi.Router) {
	r.Route("/api/admin/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})
}

// RegisterProfileRoutes registers the authenticated self-service routes.
func (h *AdminHandler) RegisterProfileRoutes(r chi.Router) {
	r.Route("/profile", func(r chi.Router) {
		r.Get("/", h.Profile)
		r.Put("/", h.UpdateProfile)
		r.Put("/password", h.ChangePassword)
	})
}

// RegisterManagementRoutes registers the super-admin-only account routes.
func (h *AdminHandler) RegisterManagementRoutes(r chi.Router) {
	r.Route("/admins", func(r chi.Router) {
		r.Get("/", h.ListAdmins)
		r.Post("/", h.CreateAdmin)
		r.Put("/{id}/active", h.SetAdminActive)
	})
}

// Register creates the first super-admin. Once any admin exists the route
// answers 403.
func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	admin, err := h.adminService.Bootstrap(r.Context(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("First admin registered", zap.String("admin_id", admin.ID.String()))
	middleware.RespondWithMessage(w, http.StatusCreated, "admin registered", newAdminView(admin))
}

// Login issues an access and refresh token pair.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	accessToken, refreshToken, admin, err := h.adminService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Admin logged in", zap.String("admin_id", admin.ID.String()))
	middleware.RespondWithMessage(w, http.StatusOK, "login successful", map[string]interface{}{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"admin":        newAdminView(admin),
	})
}

// Refresh mints a new access token.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	accessToken, err := h.adminService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken": accessToken,
	})
}

// Logout revokes a refresh token.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	if err := h.adminService.Logout(r.Context(), req.RefreshToken); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "logged out", nil)
}

// Profile returns the authenticated admin's own account.
func (h *AdminHandler) Profile(w http.ResponseWriter, r *http.Request) {
	adminID, ok := callerID(w, r)
	if !ok {
		return
	}

	admin, err := h.adminService.Get(r.Context(), adminID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newAdminView(admin))
}

// UpdateProfile changes the caller's name and phone.
func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	adminID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	admin, err := h.adminService.UpdateProfile(r.Context(), adminID, req.Name, req.Phone)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "profile updated", newAdminView(admin))
}

// ChangePassword rotates the caller's password after verifying the current
// one.
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	adminID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	if err := h.adminService.ChangePassword(r.Context(), adminID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Admin password changed", zap.String("admin_id", adminID.String()))
	middleware.RespondWithMessage(w, http.StatusOK, "password changed", nil)
}

// ListAdmins returns every account.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.adminService.ListAdmins(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	views := make([]adminView, 0, len(admins))
	for _, admin := range admins {
		views = append(views, newAdminView(admin))
	}
	middleware.RespondWithJSON(w, http.StatusOK, views)
}

// CreateAdmin adds a staff account.
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	admin, err := h.adminService.CreateAdmin(r.Context(), req.Name, req.Email, req.Password, req.Role, req.Phone)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Admin created",
		zap.String("admin_id", admin.ID.String()),
		zap.String("role", admin.Role),
	)
	middleware.RespondWithMessage(w, http.StatusCreated, "admin created", newAdminView(admin))
}

// SetAdminActive enables or disables another account.
func (h *AdminHandler) SetAdminActive(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}

	targetID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req SetAdminActiveRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	if err := h.adminService.SetAdminActive(r.Context(), actorID, targetID, *req.IsActive); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "admin updated", nil)
}

// callerID pulls the authenticated admin id out of the request context.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.GetAdminID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return uuid.Nil, false
	}
	return id, true
}
