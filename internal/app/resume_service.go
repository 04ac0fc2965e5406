package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// ResumeService issues and verifies signed resume tokens. A token binds an
// identity to its seat in a session for the length of the grace window, so
// a reconnecting client can prove it owns a disconnected seat without any
// wider authentication concern leaking into the engine.
type ResumeService struct {
	secret string
	issuer string
	ttl    time.Duration
}

// ResumeClaims is the verified content of a resume token.
type ResumeClaims struct {
	IdentityID string
	SessionID  string
	Seat       int
}

func NewResumeService(secret, issuer string, ttl time.Duration) *ResumeService {
	return &ResumeService{secret: secret, issuer: issuer, ttl: ttl}
}

// GenerateToken signs a resume token for the identity's current seat.
func (s *ResumeService) GenerateToken(identityID, sessionID string, seat int) (string, error) {
	if s == nil || s.secret == "" {
		return "", fmt.Errorf("resume service is not configured")
	}
	if identityID == "" || sessionID == "" {
		return "", fmt.Errorf("identity and session are required")
	}

	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  identityID,
		"sid":  sessionID,
		"seat": seat,
		"exp":  time.Now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken validates signature, issuer and expiry and returns the bound
// claims.
func (s *ResumeService) VerifyToken(tokenString string) (*ResumeClaims, error) {
	if s == nil || s.secret == "" {
		return nil, fmt.Errorf("resume service is not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid resume token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid resume token claims")
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return nil, fmt.Errorf("resume token issuer mismatch")
	}

	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	seat, _ := claims["seat"].(float64)
	if sub == "" || sid == "" {
		return nil, fmt.Errorf("resume token missing identity or session")
	}
	return &ResumeClaims{IdentityID: sub, SessionID: sid, Seat: int(seat)}, nil
}
