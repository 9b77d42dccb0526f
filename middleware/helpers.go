package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

func GetUserIDFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	if !ok {
		return "", errors.New("user claims not found in context or invalid type")
	}
	return claims.Subject, nil
}

func GetUserRoleFromContext(ctx context.Context) (Role, error) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	if !ok {
		return "", errors.New("user claims not found in context or invalid type")
	}

	switch claims.Role {
	case RoleAdmin, RoleOrganizer, RoleReporter:
		return claims.Role, nil
	default:
		return "", errors.New("invalid role value in claim")
	}
}

// writeError повторяет формат ответа об ошибке из handlers.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
