package inbound

import (
	"strconv"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
	"github.com/K-Santhoshkumar/GS/internal/otp/usecase"
	"github.com/K-Santhoshkumar/GS/internal/pkg/goerror"
	"github.com/K-Santhoshkumar/GS/internal/pkg/router"
	"github.com/samber/lo"
)

// HTTPEndpoint exposes HTTP handlers for the otp lifecycle.
type HTTPEndpoint struct {
	uc         uc
	exposeCode bool
}

// Generate issues a new code and delivers it.
//
// POST /api/v1/otp/generate. Creates a one-time passcode for the purpose and recipient and delivers it by email, SMS or both.
func (h *HTTPEndpoint) Generate(r *router.Request) (any, error) {
	var req GenerateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Generate(r.Context(), usecase.GenerateInput{
		Purpose:            entity.ParsePurpose(req.Purpose),
		Email:              req.Email,
		Phone:              req.Phone,
		UserID:             req.UserID,
		Length:             req.Length,
		ExpiryMinutes:      req.ExpiryMinutes,
		IPAddress:          r.ClientIP(),
		UserAgent:          r.UserAgent(),
		AdditionalInfo:     req.Metadata,
		InvalidateExisting: req.InvalidateExisting,
	})
	if err != nil {
		return nil, err
	}

	resp := GenerateResponse{
		TransactionID:  out.Transaction.ID,
		DeliveryMethod: out.Transaction.DeliveryMethod.String(),
		Delivered:      out.Delivered,
		ExpiresAt:      out.Transaction.ExpiresAt,
	}
	if h.exposeCode {
		resp.Code = out.Code
	}

	return resp, nil
}

// Verify checks a submitted code.
//
// POST /api/v1/otp/verify. Verifies the code for the purpose and optional recipient. Every failure returns the same response.
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	ok := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Code:          req.Code,
		Purpose:       entity.ParsePurpose(req.Purpose),
		Email:         req.Email,
		Phone:         req.Phone,
		UserID:        req.UserID,
		KeepOnSuccess: req.KeepVerified,
	})
	if !ok {
		return nil, goerror.NewBusiness("Invalid OTP", goerror.CodeUnauthorized)
	}

	return VerifyResponse{Verified: true}, nil
}

// Invalidate voids every live code for a purpose and recipient.
//
// POST /api/v1/otp/invalidate. Moves CREATED and DELIVERED transactions matching the purpose and recipient to INVALIDATED.
// Requires an operator bearer token.
func (h *HTTPEndpoint) Invalidate(r *router.Request) (any, error) {
	var req InvalidateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	n, err := h.uc.InvalidateRequest(r.Context(), usecase.InvalidateRequestInput{
		Purpose: entity.ParsePurpose(req.Purpose),
		Email:   req.Email,
		Phone:   req.Phone,
		UserID:  req.UserID,
	})
	if err != nil {
		return nil, err
	}

	return InvalidateResponse{Invalidated: n}, nil
}

// Deliver resends an existing transaction.
//
// POST /api/v1/otp/transactions/:id/deliver. Delivers an active transaction again, synchronously or through the message broker when async=true.
// Requires an operator bearer token.
func (h *HTTPEndpoint) Deliver(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	async, err := strconv.ParseBool(lo.CoalesceOrEmpty(r.GetQuery("async"), "false"))
	if err != nil {
		return nil, goerror.NewInvalidFormat("Invalid query async")
	}

	out, err := h.uc.DeliverByID(r.Context(), usecase.DeliverByIDInput{ID: id, Async: async})
	if err != nil {
		return nil, err
	}

	return DeliverResponse{Queued: out.Queued, Delivered: out.Delivered}, nil
}

// ListRecent lists the newest transactions with masked codes.
//
// GET /api/v1/otp/transactions. Returns the most recent transactions, newest first. Codes are masked.
// Requires an operator bearer token.
func (h *HTTPEndpoint) ListRecent(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt("limit")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListRecent(r.Context(), usecase.ListRecentInput{Limit: limit})
	if err != nil {
		return nil, err
	}

	return ListRecentResponse(lo.Map(items, func(tx entity.Transaction, _ int) TransactionResponse {
		return toTransactionResponse(tx)
	})), nil
}
