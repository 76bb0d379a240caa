package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName - cookie с JWT администратора.
const CookieName = "auth_token"

const tokenTTL = 12 * time.Hour

type ctxKey struct{}

// Claims - JWT админской сессии; Subject хранит логин администратора.
type Claims struct {
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// SetLoginCookie выпускает токен для login и кладёт его в cookie.
func SetLoginCookie(w http.ResponseWriter, login, secret string) error {
	expires := time.Now().Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// ClearLoginCookie завершает сессию.
func ClearLoginCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

func parseToken(value, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// WithAuth кладёт логин администратора в контекст, если cookie валидна.
// Анонимные запросы пропускаются дальше как есть.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieName)
			if err == nil {
				if login, err := parseToken(c.Value, secret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, login))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin отвечает 401, если WithAuth не нашёл сессию.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetAdminFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetAdminFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(ctxKey{}).(string)
	return login, ok && login != ""
}
