package ticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/parishworks/ticketing/internal/domain"
)

// Claims are the fields bound into a scannable ticket payload. The
// nonce keeps two tickets with the same name and tier from sharing a
// payload.
type Claims struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Tier  string `json:"tier"`
	Nonce string `json:"nonce"`
}

// Signer issues and checks HMAC-SHA256 signed ticket payloads. The
// secret never leaves the server; devices carry payloads opaquely.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Issue builds a signed payload for a ticket. The payload is
// base64url(claims JSON) + "." + base64url(signature), signed over the
// exact serialized claim bytes.
func (s *Signer) Issue(ticketID, ownerName, tierID string) (string, error) {
	claims := Claims{
		ID:    ticketID,
		Name:  ownerName,
		Tier:  domain.NormalizeTierID(tierID),
		Nonce: uuid.NewString(),
	}

	body, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + s.sign(body), nil
}

// Verify checks a payload's signature and returns its claims. The
// comparison is constant-time; any malformed or tampered payload is
// rejected before it can reach admission state.
func (s *Signer) Verify(payload string) (Claims, error) {
	body, sig, err := splitPayload(payload)
	if err != nil {
		return Claims{}, err
	}

	expected, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Claims{}, domain.ErrMalformedPayload
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return Claims{}, domain.ErrInvalidSignature
	}

	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return Claims{}, domain.ErrMalformedPayload
	}
	if claims.ID == "" {
		return Claims{}, domain.ErrMalformedPayload
	}
	return claims, nil
}

func (s *Signer) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ParseClaims decodes a payload's claims without checking the
// signature. Scanning devices use it to key their offline log; the
// server-side Verify remains the only authoritative check.
func ParseClaims(payload string) (Claims, error) {
	body, _, err := splitPayload(payload)
	if err != nil {
		return Claims{}, err
	}
	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return Claims{}, domain.ErrMalformedPayload
	}
	if claims.ID == "" {
		return Claims{}, domain.ErrMalformedPayload
	}
	return claims, nil
}

func splitPayload(payload string) (body []byte, sig string, err error) {
	encoded, sig, ok := strings.Cut(payload, ".")
	if !ok || encoded == "" || sig == "" {
		return nil, "", domain.ErrMalformedPayload
	}
	body, err = base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", domain.ErrMalformedPayload
	}
	return body, sig, nil
}
