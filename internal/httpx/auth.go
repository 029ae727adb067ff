package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const ctxKeyUserID ctxKey = iota

// Auth validates the bearer token issued by the identity provider and threads
// the authenticated numeric user id into the request context. Credentials are
// not re-validated anywhere downstream; core operations take the explicit id.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthorized", Error: "missing bearer token"})
				return
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthorized", Error: "invalid token"})
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthorized", Error: "invalid token"})
				return
			}
			uid, err := strconv.ParseInt(sub, 10, 64)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthorized", Error: "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(ctxKeyUserID).(int64)
	return id, ok
}

func mustUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthorized", Error: "missing authenticated user"})
	}
	return id, ok
}
