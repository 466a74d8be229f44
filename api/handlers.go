// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/luxfi/log"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/engine"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/payload"
	"github.com/luxfi/intents/tokenid"
	"github.com/luxfi/intents/verifier"
)

var errNotOwner = errors.New("token subject does not own the account")

type ExecuteRequest struct {
	Signed []payload.MultiPayload `json:"signed"`
}

type DepositRequest struct {
	OwnerID intents.AccountID          `json:"owner_id"`
	Tokens  map[tokenid.TokenID]string `json:"tokens"`
}

type StorageDepositRequest struct {
	AccountID intents.AccountID `json:"account_id"`
	Amount    string            `json:"amount"`
}

type WithdrawRequest struct {
	OwnerID     intents.AccountID `json:"owner_id"`
	Token       tokenid.TokenID   `json:"token"`
	Amount      string            `json:"amount"`
	Destination string            `json:"destination"`
}

type BalanceResponse struct {
	AccountID intents.AccountID `json:"account_id"`
	Token     tokenid.TokenID   `json:"token"`
	Balance   string            `json:"balance"`
}

type SupplyResponse struct {
	Token       tokenid.TokenID `json:"token"`
	TotalSupply string          `json:"total_supply"`
}

type NonceResponse struct {
	AccountID intents.AccountID `json:"account_id"`
	Nonce     intents.Nonce     `json:"nonce"`
	Used      bool              `json:"used"`
}

type PublicKeysResponse struct {
	AccountID  intents.AccountID `json:"account_id"`
	PublicKeys []keys.PublicKey  `json:"public_keys"`
}

type StorageBalanceResponse struct {
	AccountID      intents.AccountID `json:"account_id"`
	StorageBalance string            `json:"storage_balance"`
}

type ContractResponse struct {
	ContractID intents.AccountID `json:"contract_id"`
}

// bindJSON decodes the request body into v. Settlement failures raised while
// decoding, such as an unsupported standard, are reported as is.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var typed *intents.Error
		if !errors.As(err, &typed) {
			err = intents.ErrMalformedPayload.Withf("%s", err)
		}
		fail(c, err)
		return false
	}
	return true
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := amount.Parse(s)
	if err != nil {
		return nil, intents.ErrInvalidAmount.Withf("%s", err)
	}
	return v, nil
}

func accountParam(c *gin.Context) (intents.AccountID, bool) {
	account, err := intents.ParseAccountID(c.Param("account"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return "", false
	}
	return account, true
}

func tokenParam(c *gin.Context) (tokenid.TokenID, bool) {
	token, err := tokenid.Parse(c.Param("token"))
	if err != nil {
		fail(c, err)
		return tokenid.TokenID{}, false
	}
	return token, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) contract(c *gin.Context) {
	c.JSON(http.StatusOK, ContractResponse{ContractID: s.backend.ContractID()})
}

func (s *Server) executeIntents(c *gin.Context) {
	s.runBatch(c, s.backend.ExecuteIntents)
}

func (s *Server) simulateIntents(c *gin.Context) {
	s.runBatch(c, s.backend.SimulateIntents)
}

func (s *Server) runBatch(c *gin.Context, run func(ctx context.Context, batch []payload.Signed) (*engine.Result, error)) {
	var req ExecuteRequest
	if !bindJSON(c, &req) {
		return
	}
	batch := make([]payload.Signed, 0, len(req.Signed))
	for _, signed := range req.Signed {
		if signed.Signed == nil {
			fail(c, intents.ErrMalformedPayload.Withf("null payload"))
			return
		}
		batch = append(batch, signed.Signed)
	}
	result, err := run(c.Request.Context(), batch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) deposit(c *gin.Context) {
	var req DepositRequest
	if !bindJSON(c, &req) {
		return
	}
	amounts := make(map[tokenid.TokenID]*uint256.Int, len(req.Tokens))
	for token, raw := range req.Tokens {
		v, err := amount.Parse(raw)
		if err != nil {
			fail(c, intents.ErrInvalidAmount.WithAsset(token).Withf("%s", err))
			return
		}
		amounts[token] = v
	}
	if err := s.backend.Deposit(c.Request.Context(), req.OwnerID, amounts); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) storageDeposit(c *gin.Context) {
	var req StorageDepositRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := parseAmount(req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	bal, err := s.backend.StorageDeposit(c.Request.Context(), req.AccountID, v)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, StorageBalanceResponse{
		AccountID:      req.AccountID,
		StorageBalance: bal.Dec(),
	})
}

func (s *Server) withdraw(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, errMissingToken)
		return
	}
	var req WithdrawRequest
	if !bindJSON(c, &req) {
		return
	}
	if claims.Subject != string(req.OwnerID) {
		abortWithError(c, http.StatusForbidden, errNotOwner)
		return
	}
	v, err := parseAmount(req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	err = s.backend.Withdraw(c.Request.Context(), verifier.Withdrawal{
		Owner:       req.OwnerID,
		Token:       req.Token,
		Amount:      v,
		Destination: req.Destination,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		AccountID: req.OwnerID,
		Token:     req.Token,
		Balance:   s.balanceOrZero(req.OwnerID, req.Token),
	})
}

// balanceOrZero reads a balance after a write that already succeeded; a
// failed read is logged rather than turned into a failed request.
func (s *Server) balanceOrZero(account intents.AccountID, token tokenid.TokenID) string {
	bal, err := s.backend.BalanceOf(account, token)
	if err != nil {
		s.log.Warn("failed to read balance after withdrawal",
			log.Stringer("account", account),
			log.Stringer("token", token),
			log.Err(err),
		)
		return "0"
	}
	return bal.Dec()
}

func (s *Server) balance(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	bal, err := s.backend.BalanceOf(account, token)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		AccountID: account,
		Token:     token,
		Balance:   bal.Dec(),
	})
}

func (s *Server) totalSupply(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	supply, err := s.backend.TotalSupply(token)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SupplyResponse{
		Token:       token,
		TotalSupply: supply.Dec(),
	})
}

func (s *Server) nonce(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}
	// the catch-all keeps the '/' of standard base64 intact
	nonce, err := intents.NonceFromString(strings.TrimPrefix(c.Param("nonce"), "/"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	used, err := s.backend.IsNonceUsed(account, nonce)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NonceResponse{
		AccountID: account,
		Nonce:     nonce,
		Used:      used,
	})
}

func (s *Server) publicKeys(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}
	pks, err := s.backend.PublicKeys(account)
	if err != nil {
		fail(c, err)
		return
	}
	if pks == nil {
		pks = []keys.PublicKey{}
	}
	c.JSON(http.StatusOK, PublicKeysResponse{
		AccountID:  account,
		PublicKeys: pks,
	})
}

func (s *Server) storageBalance(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}
	bal, err := s.backend.StorageBalance(account)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, StorageBalanceResponse{
		AccountID:      account,
		StorageBalance: bal.Dec(),
	})
}
