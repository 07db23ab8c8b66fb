// Package broker exposes the campus-pay remote as typed operations bound to
// one resolved session.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LakeLink/WE/internal/domain/model"
	"github.com/LakeLink/WE/internal/xfb"
)

const (
	pathDefaultLogin   = "/user/defaultLogin"
	pathCardMoney      = "/card/getCardMoney"
	pathQRCode         = "/card/getQRCode"
	pathQRCodeResult   = "/card/getQRCodeResult"
	pathCardQueryNoPag = "/routeauth/auth/route/user/cardQuerynoPage"

	// The remote keys requests to a client platform tag; the original
	// client identifies as the WeChat H5 frontend.
	platformTag = "WECHAT_H5"

	// BalanceWithheld is a valid remote answer meaning the balance is
	// intentionally unavailable. It must be passed through, not treated as
	// an error.
	BalanceWithheld = "- - -"

	queryDayFormat = "20060102"
)

// API is the operation surface the lifecycle machine and feed watcher
// consume. Implemented by Broker; mocked in tests.
type API interface {
	Session() model.Session
	Balance(ctx context.Context) (string, error)
	IssueQRCode(ctx context.Context) (string, error)
	CheckRedemption(ctx context.Context, code string) (*model.RedemptionResult, error)
	Transactions(ctx context.Context, day time.Time) ([]model.TransactionRecord, error)
}

// Factory creates a freshly authenticated API. The lifecycle machine calls
// it once per refresh cycle instead of mutating a long-lived broker.
type Factory func(ctx context.Context) (API, error)

// Broker binds a Client to one immutable Session.
type Broker struct {
	client   *xfb.Client
	session  model.Session
	deviceID string
	logger   *slog.Logger
}

// New exchanges sessionToken for a user profile via the default-login
// endpoint and resolves the member ID from the profile's id field.
func New(ctx context.Context, client *xfb.Client, sessionToken, deviceID string, logger *slog.Logger) (*Broker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		client:   client,
		deviceID: deviceID,
		logger:   logger.With("component", "broker"),
	}

	env, err := xfb.Post[map[string]any](ctx, client, pathDefaultLogin, map[string]string{
		"deviceId": deviceID,
		"platform": platformTag,
	}, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("default login: %w", err)
	}
	if env.Data == nil {
		return nil, &xfb.DecodeError{Detail: "default login returned no profile"}
	}
	profile := *env.Data
	memberID, ok := profile["id"].(string)
	if !ok || memberID == "" {
		return nil, &xfb.DecodeError{Detail: "profile missing id"}
	}

	b.session = model.Session{
		Token:    sessionToken,
		MemberID: memberID,
		Profile:  profile,
	}
	b.logger.Debug("session resolved", "member_id", memberID)
	return b, nil
}

// Session returns the immutable session this broker was initialized with.
func (b *Broker) Session() model.Session {
	return b.session
}

// Balance returns the raw balance string as provided by the remote,
// including the withheld sentinel.
func (b *Broker) Balance(ctx context.Context) (string, error) {
	env, err := xfb.Post[string](ctx, b.client, pathCardMoney, map[string]string{
		"ymId": b.session.MemberID,
	}, b.session.Token)
	if err != nil {
		return "", fmt.Errorf("get balance: %w", err)
	}
	if env.Data == nil {
		return "", &xfb.DecodeError{Detail: "balance payload missing"}
	}
	if *env.Data == BalanceWithheld {
		b.logger.Info("balance withheld by remote", "member_id", b.session.MemberID)
	}
	return *env.Data, nil
}

// IssueQRCode requests a new opaque payment code string.
func (b *Broker) IssueQRCode(ctx context.Context) (string, error) {
	env, err := xfb.Post[string](ctx, b.client, pathQRCode, nil, b.session.Token)
	if err != nil {
		return "", fmt.Errorf("issue qr code: %w", err)
	}
	if env.Data == nil {
		return "", &xfb.DecodeError{Detail: "qr code payload missing"}
	}
	return *env.Data, nil
}

// CheckRedemption queries the status of a previously issued code. The
// result's SettledAmount stays nil while the code is unredeemed.
func (b *Broker) CheckRedemption(ctx context.Context, code string) (*model.RedemptionResult, error) {
	env, err := xfb.Post[model.RedemptionResult](ctx, b.client, pathQRCodeResult, map[string]string{
		"qrCode":   code,
		"platform": platformTag,
	}, b.session.Token)
	if err != nil {
		return nil, fmt.Errorf("check redemption: %w", err)
	}
	if env.Data == nil {
		return nil, &xfb.DecodeError{Detail: "redemption payload missing"}
	}
	return env.Data, nil
}

// Transactions returns the transaction history for the given calendar day
// in the order the remote produced it.
func (b *Broker) Transactions(ctx context.Context, day time.Time) ([]model.TransactionRecord, error) {
	env, err := xfb.PostPaged[model.TransactionRecord](ctx, b.client, pathCardQueryNoPag, map[string]string{
		"ymId":      b.session.MemberID,
		"queryTime": day.Format(queryDayFormat),
	}, b.session.Token)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return env.Rows, nil
}

// NewFactory returns a Factory that resolves the current session token from
// resolve on every call, so a token rotated by the paired device or the
// credential exchange is picked up on the next cycle.
func NewFactory(client *xfb.Client, deviceID string, logger *slog.Logger, resolve func(ctx context.Context) (string, error)) Factory {
	return func(ctx context.Context) (API, error) {
		token, err := resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve session token: %w", err)
		}
		return New(ctx, client, token, deviceID, logger)
	}
}
