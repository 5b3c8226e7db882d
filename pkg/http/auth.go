package xhttp

import (
	"strings"

	"github.com/golang-jwt/jwt"
)

// CompanyIDKey is the RequestCtx user value holding the authenticated company.
const CompanyIDKey = "auth_company_id"

// CompanyClaims is the bearer token payload issued by the main application.
type CompanyClaims struct {
	CompanyID string `json:"company_id"`
	jwt.StandardClaims
}

// JWTMiddleware validates HS256 bearer tokens on every path under one of
// protectedPrefixes and stores the company claim on the request context.
// An empty secret disables the check.
func JWTMiddleware(secret string, protectedPrefixes ...string) MiddlewareFunc {
	key := []byte(secret)
	return func(next RequestHandler) RequestHandler {
		if secret == "" {
			return next
		}
		return func(ctx *RequestCtx) {
			if !isProtected(string(ctx.Path()), protectedPrefixes) || shouldSkip(string(ctx.Path())) {
				next(ctx)
				return
			}

			raw := string(ctx.Request.Header.Peek("Authorization"))
			if !strings.HasPrefix(raw, "Bearer ") {
				writeErrorJSON(ctx, StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := ParseCompanyToken(strings.TrimPrefix(raw, "Bearer "), key)
			if err != nil || claims.CompanyID == "" {
				writeErrorJSON(ctx, StatusUnauthorized, "invalid bearer token")
				return
			}

			ctx.SetUserValue(CompanyIDKey, claims.CompanyID)
			next(ctx)
		}
	}
}

// ParseCompanyToken verifies signature and expiry.
func ParseCompanyToken(token string, key []byte) (*CompanyClaims, error) {
	claims := &CompanyClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SignCompanyToken issues a token; used by the CLI and tests.
func SignCompanyToken(companyID string, key []byte, expiresAt int64) (string, error) {
	claims := CompanyClaims{
		CompanyID:      companyID,
		StandardClaims: jwt.StandardClaims{ExpiresAt: expiresAt},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// AuthorizedFor reports whether the request may act on companyID. Requests
// that passed through a disabled middleware carry no claim and are allowed.
func AuthorizedFor(ctx *RequestCtx, companyID string) bool {
	v, ok := ctx.UserValue(CompanyIDKey).(string)
	if !ok {
		return true
	}
	return v == companyID
}

func isProtected(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
