package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/config"
	"app/internal/logging"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

// tokenのclaimsから復元した呼び出し主。
type authIdentity struct {
	userID       int64
	role         string
	tokenVersion int
}

// bearerAuth用のJWT検証ミドルウェア。
// 拒否理由はサーバー側のログにだけ出し、レスポンスは常に同じ401。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	secret := []byte(cfg.JWTSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken, err := bearerToken(c)
			if err != nil {
				logging.From(c).Warn("auth rejected", "reason", err.Error())
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || token == nil || !token.Valid {
				logging.From(c).Warn("auth rejected", "reason", "invalid token")
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logging.From(c).Warn("auth rejected", "reason", "unexpected claims type")
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			ident, err := identityFromClaims(claims)
			if err != nil {
				logging.From(c).Warn("auth rejected", "reason", err.Error())
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, ident.userID)
			c.Set(CtxUserRoleKey, ident.role)
			c.Set(CtxTokenVersionKey, ident.tokenVersion)

			return next(c)
		}
	}
}

// bearerToken はAuthorizationヘッダからtoken部分を抜く。
func bearerToken(c echo.Context) (string, error) {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("not a bearer token")
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", errors.New("empty bearer token")
	}
	return raw, nil
}

// identityFromClaims はsub/role/tvを取り出して検証する。
func identityFromClaims(claims jwt.MapClaims) (authIdentity, error) {
	userID, err := parseUserID(claims["sub"])
	if err != nil || userID <= 0 {
		return authIdentity{}, errors.New("invalid sub claim")
	}

	role, err := parseString(claims["role"])
	if err != nil || role == "" {
		return authIdentity{}, errors.New("invalid role claim")
	}

	tv, err := parseInt(claims["tv"])
	if err != nil || tv < 0 {
		return authIdentity{}, errors.New("invalid tv claim")
	}

	return authIdentity{userID: userID, role: role, tokenVersion: tv}, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
