// Package tokens mints the JWT completion receipt the
// signature_tracking tool produces once every required party has
// signed a contract.
package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ReceiptClaims is the claim set embedded in a completion receipt.
type ReceiptClaims struct {
	WorkflowID string   `json:"workflow_id"`
	DocumentID string   `json:"document_id"`
	Signers    []string `json:"signers"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies signature-completion receipts with an
// HMAC secret shared across orchestrator instances.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// IssueCompletionReceipt mints a receipt asserting that every signer
// in signers has completed signing documentID under workflowID.
func (i *Issuer) IssueCompletionReceipt(workflowID, documentID string, signers []string) (string, error) {
	now := time.Now().UTC()
	claims := ReceiptClaims{
		WorkflowID: workflowID,
		DocumentID: documentID,
		Signers:    signers,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(365 * 24 * time.Hour)),
			Subject:   documentID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing completion receipt: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a receipt, returning its claims.
func (i *Issuer) Verify(tokenString string) (*ReceiptClaims, error) {
	claims := &ReceiptClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid completion receipt: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid completion receipt")
	}
	return claims, nil
}
