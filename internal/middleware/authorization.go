package middleware

import (
	"net/http"

	"spice-store/internal/domain"

	"go.uber.org/zap"
)

// RequireRole ensures the authenticated admin has one of the allowed roles.
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetAdminRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			for _, allowed := range allowedRoles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Admin role not authorized",
				zap.String("role", role),
				zap.Strings("allowed_roles", allowedRoles),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RequireSuperAdmin restricts a route to super-admins.
func RequireSuperAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleSuperAdmin}, logger)
}

// RequireManager restricts a route to super-admins and admins, keeping
// staff accounts read-only on sensitive operations.
func RequireManager(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleSuperAdmin, domain.RoleAdmin}, logger)
}
