// Package payment проверяет квитанции на покупку буста. Квитанцию подписывает
// платёжный шлюз общим секретом после успешной оплаты.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Luminawater/juketogether/internal/application/clock"
)

const issuer = "juketogether-payments"

var ErrInvalidReceipt = errors.New("invalid boost receipt")

// Receipt - проверенная квитанция. ID уникален для каждой оплаты.
type Receipt struct {
	ID     string
	UserID uuid.UUID
	RoomID string
}

type receiptClaims struct {
	RoomID string `json:"room_id"`
	jwt.RegisteredClaims
}

type ReceiptValidator struct {
	secret []byte
	clock  clock.Clock
}

func NewReceiptValidator(secret []byte, clk clock.Clock) *ReceiptValidator {
	if clk == nil {
		clk = clock.Real()
	}

	return &ReceiptValidator{secret: secret, clock: clk}
}

// Validate принимает только квитанцию, выписанную этому пользователю на эту комнату
func (v *ReceiptValidator) Validate(_ context.Context, raw, roomID string, userID uuid.UUID) (Receipt, error) {
	claims := &receiptClaims{}

	token, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (any, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil || !token.Valid {
		return Receipt{}, ErrInvalidReceipt
	}

	if claims.ID == "" || claims.RoomID != roomID || claims.Subject != userID.String() {
		return Receipt{}, ErrInvalidReceipt
	}

	return Receipt{ID: claims.ID, UserID: userID, RoomID: roomID}, nil
}

// Issue выписывает квитанцию. Вызывается платёжным шлюзом и командой receipt.
func (v *ReceiptValidator) Issue(userID uuid.UUID, roomID string, ttl time.Duration) (string, error) {
	now := v.clock.Now()
	claims := &receiptClaims{
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
