package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

// AccountHeader carries the caller identity
const AccountHeader = "X-Account"

const accountKey = "registry.account"

// Account reads the caller from X-Account into the context.
// A malformed header is rejected; a missing one leaves the caller anonymous.
func Account() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(AccountHeader))
		if raw == "" {
			c.Next()
			return
		}
		if err := utils.ValidateAccount(raw); err != nil {
			abort(c, http.StatusBadRequest, "InvalidAccount", err.Error())
			return
		}
		c.Set(accountKey, types.Account(raw))
		c.Next()
	}
}

// RequireAccount rejects anonymous callers
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Caller(c); !ok {
			abort(c, http.StatusUnauthorized, "NotAuthorized", "missing "+AccountHeader+" header")
			return
		}
		c.Next()
	}
}

// Caller returns the account set by Account
func Caller(c *gin.Context) (types.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return "", false
	}
	account, ok := v.(types.Account)
	return account, ok
}
