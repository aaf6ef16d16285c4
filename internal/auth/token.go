// Package auth はOAuth認証フロー、セッショントークン管理を提供する。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wedding-letter/letter-api/internal/model"
)

// minSecretLength は署名シークレットの最小バイト数。
// これ未満のシークレットは起動時エラーとする（実行時には回復不能な設定ミス）。
const minSecretLength = 32

// providerUnknown はトークンにproviderクレームが無い場合の既定値。
const providerUnknown = "unknown"

// TokenManager はセッショントークンの発行・検証を行う。
// トークンはHS256署名のJWTで、サーバー側に状態を持たない。
type TokenManager struct {
	secret   []byte
	validity time.Duration

	// now はテストで時計を差し替えるためのフック。
	now func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
// secretが32バイト未満の場合はエラーを返す。
func NewTokenManager(secret string, validity time.Duration) (*TokenManager, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", minSecretLength, len(secret))
	}
	return &TokenManager{
		secret:   []byte(secret),
		validity: validity,
		now:      time.Now,
	}, nil
}

// CreateToken は認証済みアイデンティティから署名付きトークンを生成する。
// 有効期限は発行時刻+validityとなる。副作用は持たない。
func (tm *TokenManager) CreateToken(identity model.Identity) (string, error) {
	now := tm.now()
	claims := jwt.MapClaims{
		"sub":      identity.UserID,
		"name":     identity.Name,
		"email":    identity.Email,
		"provider": identity.Provider,
		"iat":      now.Unix(),
		"exp":      now.Add(tm.validity).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IsValid はトークンの署名と有効期限を検証する。
// 署名不一致、ペイロード不正、期限切れのいずれでもfalseを返す（fail closed）。
// 呼び出し側にエラーを伝播させることはない。
func (tm *TokenManager) IsValid(tokenString string) bool {
	_, err := tm.parse(tokenString)
	return err == nil
}

// ParseIdentity は検証済みトークンからアイデンティティを取り出す。
// providerクレームが無い場合は"unknown"を設定する。
func (tm *TokenManager) ParseIdentity(tokenString string) (*model.Identity, error) {
	claims, err := tm.parse(tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token has no subject claim")
	}

	identity := &model.Identity{
		UserID:   sub,
		Name:     stringClaim(claims, "name"),
		Email:    stringClaim(claims, "email"),
		Provider: stringClaim(claims, "provider"),
	}
	if identity.Provider == "" {
		identity.Provider = providerUnknown
	}

	return identity, nil
}

// parse はトークンを検証し、クレームを返す。
// 署名方式はHS256のみを許可する。
func (tm *TokenManager) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (any, error) {
			return tm.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("unexpected claims type")
	}

	return claims, nil
}

// stringClaim はクレームから文字列値を取り出す。型不一致や欠落は空文字を返す。
func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
