package token

import (
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Claims is the identity envelope carried by a verified token.
type Claims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// Manager issues and verifies short-lived identity tokens.
type Manager interface {
	Issue(email string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (Claims, error)
}

type pasetoV4LocalManager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration

	key paseto.V4SymmetricKey
}

// NewPasetoV4LocalManager builds a Manager based on PASETO v4.local.
//
// The same symmetric key both seals and opens tokens, so every service that
// verifies must share the key. Clock skew is applied during verification via
// ValidAt to tolerate minor clock differences.
func NewPasetoV4LocalManager(cfg Config) (Manager, error) {
	key, err := paseto.V4SymmetricKeyFromHex(cfg.SecretKeyHex)
	if err != nil {
		return nil, ErrConfig
	}
	if cfg.TokenTTL <= 0 || cfg.Issuer == "" {
		return nil, ErrConfig
	}

	return &pasetoV4LocalManager{
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		clockSkew: cfg.ClockSkew,
		key:       key,
	}, nil
}

func (m *pasetoV4LocalManager) Issue(email string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)

	_ = tok.Set("email", email)

	sealed := tok.V4Encrypt(m.key, nil)
	return sealed, exp, nil
}

func (m *pasetoV4LocalManager) Verify(token string, now time.Time) (Claims, error) {
	// Validate slightly in the future to avoid failing "nbf" when clocks
	// differ; this also makes expiration checks slightly stricter.
	validNow := now.Add(m.clockSkew)

	// Fresh parser per call to avoid accumulating rules across verifies.
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(validNow))

	parsed, err := p.ParseV4Local(m.key, token, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	iss, _ := parsed.GetIssuer()
	exp, _ := parsed.GetExpiration()
	iat, _ := parsed.GetIssuedAt()

	email, err := parsed.GetString("email")
	if err != nil || email == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Email:     email,
		IssuedAt:  iat,
		ExpiresAt: exp,
		Issuer:    iss,
	}, nil
}
