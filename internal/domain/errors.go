package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotSubmittable  = errors.New("quote not submittable")
	ErrNoBridge        = errors.New("funding needs no bridge transfer")
	ErrWalletNotSet    = errors.New("funding wallet not configured")
	ErrMarketNotLoaded = errors.New("market not loaded")
	ErrWSDisconnect    = errors.New("websocket disconnected")
	ErrContextDone     = errors.New("context cancelled")
)
