package service

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/mlevitin/go-account-sync/internal/keys"
	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/models"
)

type authService struct {
	account AccountClient
	log     *logger.Logger
}

// NewAuthService constructs an [AuthService] over the given account client.
func NewAuthService(account AccountClient, log *logger.Logger) AuthService {
	return &authService{account: account, log: log}
}

// SignIn runs the full sign-in flow:
//
//  1. quick-stretch the password and derive authPW from it
//  2. log in with keys requested
//  3. fetch and unwrap the key bundle with the key-fetch token
//  4. unmask wrap_kB with the stretched password into kB
//  5. derive the sync key and client state from kB
//
// The plaintext password never leaves this method; only derived material is
// sent over the wire or kept in the returned session.
func (a *authService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	stretched := keys.QuickStretch(email, password)
	authPW, err := keys.AuthPW(stretched)
	if err != nil {
		return nil, fmt.Errorf("derive authPW: %w", err)
	}

	login, err := a.account.Login(ctx, email, authPW, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginOnServer, err)
	}

	if !login.Verified {
		return nil, ErrUnverifiedAccount
	}

	sessionToken, err := hex.DecodeString(login.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("decode session token: %w", err)
	}

	keyFetchToken, err := hex.DecodeString(login.KeyFetchToken)
	if err != nil {
		return nil, fmt.Errorf("decode key fetch token: %w", err)
	}

	wrapKB, err := a.account.FetchKeys(ctx, keyFetchToken)
	if err != nil {
		return nil, fmt.Errorf("fetch account keys: %w", err)
	}

	kB, err := keys.UnwrapBKey(stretched, wrapKB)
	if err != nil {
		return nil, fmt.Errorf("unwrap kB: %w", err)
	}

	syncKey, err := keys.DeriveSyncKey(kB)
	if err != nil {
		return nil, fmt.Errorf("derive sync key: %w", err)
	}

	a.log.Info().Str("uid", login.UID).Msg("signed in")

	return &models.Session{
		UID:          login.UID,
		Email:        email,
		SessionToken: sessionToken,
		KeyB:         kB,
		SyncKey:      syncKey,
		ClientState:  keys.ComputeClientState(kB),
		Verified:     login.Verified,
	}, nil
}
