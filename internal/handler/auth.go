package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/customer"
)

// apiKeyHeader carries the caller's API key.
const apiKeyHeader = "X-API-Key"

const principalKey = "principal"

// Authenticate resolves the API key to a Principal and stores it on the echo
// context. The key is hashed with HMAC-SHA256 and compared in constant time.
func (h *Handler) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(apiKeyHeader)
		if key == "" {
			// Bearer form accepted for API clients that cannot set
			// custom headers.
			if v := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(v, "Bearer ") {
				key = strings.TrimPrefix(v, "Bearer ")
			}
		}
		if key == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing api key")
		}

		ctx := c.Request().Context()

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(key))
		sum := mac.Sum(nil)

		info, err := h.apikeys.FindByHash(ctx, hex.EncodeToString(sum))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
		}

		u, err := h.users.GetByID(ctx, info.UserID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
		}

		p := auth.Principal{UserID: u.ID, Role: u.Role}
		if u.Role == auth.RoleCustomer {
			cust, err := h.customers.GetByUser(ctx, u.ID)
			if err != nil {
				if errors.Is(err, customer.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
				}
				return err
			}
			p.CustomerID = cust.ID
			p.Approved = cust.Approved()
		}

		c.Set(principalKey, p)
		return next(c)
	}
}

// RequireAdmin rejects non-staff principals.
func (h *Handler) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !principal(c).IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "staff only")
		}
		return next(c)
	}
}

// RequireApprovedCustomer rejects staff and unapproved customers from the
// customer area.
func (h *Handler) RequireApprovedCustomer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := principal(c)
		if p.IsAdmin() || p.CustomerID == 0 {
			return echo.NewHTTPError(http.StatusForbidden, "customers only")
		}
		if !p.Approved {
			return echo.NewHTTPError(http.StatusConflict, "account awaiting approval")
		}
		return next(c)
	}
}

func principal(c echo.Context) auth.Principal {
	p, _ := c.Get(principalKey).(auth.Principal)
	return p
}

// currentCustomer loads the acting customer's full record.
func (h *Handler) currentCustomer(c echo.Context) (*customer.Customer, error) {
	return h.customers.Get(c.Request().Context(), principal(c).CustomerID)
}
