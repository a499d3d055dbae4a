package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/domain/staking"
	"github.com/dapplets/dapplet-registry/internal/domain/version"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{registry.ErrDuplicateName, http.StatusConflict, "DuplicateName"},
	{registry.ErrModuleDoesNotExist, http.StatusNotFound, "ModuleDoesNotExist"},
	{registry.ErrVersionDoesNotExist, http.StatusNotFound, "VersionDoesNotExist"},
	{registry.ErrNotAuthorized, http.StatusForbidden, "NotAuthorized"},
	{registry.ErrVersionNotBumped, http.StatusConflict, "VersionNotBumped"},
	{registry.ErrRepeatedPointer, http.StatusUnprocessableEntity, "RepeatedPointer"},
	{registry.ErrInconsistentChanges, http.StatusUnprocessableEntity, "InconsistentChanges"},
	{registry.ErrAdminAlreadyExists, http.StatusConflict, "AdminAlreadyExists"},
	{registry.ErrAdminDoesNotExist, http.StatusNotFound, "AdminDoesNotExist"},
	{registry.ErrNotEmpty, http.StatusConflict, "NotEmpty"},
	{registry.ErrInvalidModule, http.StatusBadRequest, "InvalidModule"},
	{registry.ErrMismatchedBatch, http.StatusBadRequest, "MismatchedBatch"},
	{version.ErrDecode, http.StatusBadRequest, "DecodeError"},
	{version.ErrOutOfRange, http.StatusBadRequest, "DecodeError"},
	{staking.ErrNotReadyToBurn, http.StatusConflict, "NotReadyToBurn"},
	{staking.ErrDurationTooShort, http.StatusUnprocessableEntity, "DurationTooShort"},
	{staking.ErrStakingDisabled, http.StatusPreconditionFailed, "StakingDisabled"},
	{staking.ErrInsufficientBond, http.StatusPaymentRequired, "InsufficientBond"},
	{staking.ErrInsufficientFunds, http.StatusPaymentRequired, "InsufficientBond"},
	{staking.ErrInvalidParameters, http.StatusBadRequest, "InvalidParameters"},
	{staking.ErrStakeExists, http.StatusConflict, "StakeExists"},
}

// StatusOf maps a domain error to its HTTP status and code
func StatusOf(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "Internal"
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status, code := StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BadRequest"})
}

// ErrorOf returns the sentinel behind an error code, or nil for codes that
// carry no domain meaning
func ErrorOf(code string) error {
	for _, m := range errorMappings {
		if m.code == code {
			return m.err
		}
	}
	return nil
}
