package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/raven-rwho/rem-expenses/internal/log"
)

const (
	msgWrongPassword   = "Falsches Passwort"
	msgBadRequest      = "Ungültige Anfrage"
	msgNotConfigured   = "Server-Konfigurationsfehler: Passwort nicht gesetzt"
	msgUnauthenticated = "Nicht angemeldet"
)

type loginRequest struct {
	Password string `json:"password"`
}

// ServeHTTP handles POST (login), GET (status) and DELETE (logout) on the
// auth endpoint.
func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		g.login(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": g.Valid(tokenFrom(r))})
	case http.MethodDelete:
		g.Logout(tokenFrom(r))
		http.SetCookie(w, g.cookie("", -1))
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (g *Gate) login(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgBadRequest})
		return
	}

	token, err := g.Login(req.Password)
	fields := log.NewFields().WithOperation(log.OpLogin)
	switch {
	case errors.Is(err, ErrNotConfigured):
		logger.ErrorContext(r.Context(), "Login attempted without APP_PASSWORD",
			fields.WithErrorType(log.ErrorTypeConfiguration).ToSlice()...)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgNotConfigured})
		return
	case errors.Is(err, ErrInvalidPassword):
		logger.WarnContext(r.Context(), "Login failed", fields.WithErrorType(log.ErrorTypeAuth).ToSlice()...)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msgWrongPassword})
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Login failed",
			fields.WithErrorType(log.ErrorTypeInternal).WithError(err).ToSlice()...)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	http.SetCookie(w, g.cookie(token, int(g.lifetime.Seconds())))
	logger.InfoContext(r.Context(), "Login succeeded",
		append(fields.ToSlice(), "active_sessions", g.ActiveSessions())...)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (g *Gate) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// Middleware lets authenticated requests and the public paths through.
// Other API requests get 401 JSON; page requests are redirected to loginPath.
func (g *Gate) Middleware(loginPath string, public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path, loginPath, public) || g.Valid(tokenFrom(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msgUnauthenticated})
				return
			}
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
		})
	}
}

// isPublic matches exact paths, and prefixes when the entry ends in "/".
func isPublic(path, loginPath string, public []string) bool {
	if path == loginPath {
		return true
	}
	for _, p := range public {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

func tokenFrom(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
