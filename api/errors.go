// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/engine"
)

const internalErrorMessage = "internal error"

var errThrottled = errors.New("throttled")

// ErrorResponse is the body of every failed request. Code is zero for
// failures that are not settlement failures.
type ErrorResponse struct {
	Code      int32  `json:"code"`
	Message   string `json:"message"`
	Index     int    `json:"index"`
	Asset     string `json:"asset,omitempty"`
	Account   string `json:"account,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusOf maps a settlement failure to an HTTP status.
func statusOf(err error) int {
	var typed *intents.Error
	if !errors.As(err, &typed) {
		if errors.Is(err, engine.ErrEmptyBatch) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
	switch typed.Code {
	case intents.CodeMalformedPayload,
		intents.CodeUnsupportedStandard,
		intents.CodeUnknownAsset,
		intents.CodeInvalidAmount,
		intents.CodeInvalidIntent:
		return http.StatusBadRequest
	case intents.CodeInvalidSignature:
		return http.StatusUnauthorized
	case intents.CodeNonceAlreadyUsed,
		intents.CodePublicKeyExists,
		intents.CodeNftAlreadyDeposited:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func errorResponse(c *gin.Context, status int, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   err.Error(),
		Index:     intents.NoIndex,
		RequestID: c.GetString(requestIDKey),
	}
	var typed *intents.Error
	if errors.As(err, &typed) {
		resp.Code = typed.Code
		resp.Message = typed.Message
		resp.Index = typed.Index
		resp.Asset = typed.Asset
		resp.Account = typed.Account
	}
	if status >= http.StatusInternalServerError {
		resp.Message = internalErrorMessage
	}
	return resp
}

func abortWithError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse(c, status, err))
}

// fail reports err with the status of its failure code.
func fail(c *gin.Context, err error) {
	abortWithError(c, statusOf(err), err)
}
