package identity

import "context"

const fixedToken = "dev-session"

// FixedProvider resolves every request to one development user.
type FixedProvider struct {
	userID string
}

// NewFixedProvider returns a provider that always answers userID.
func NewFixedProvider(userID string) *FixedProvider {
	return &FixedProvider{userID: userID}
}

func (p *FixedProvider) SignUp(context.Context, string, string) (string, error) {
	return p.userID, nil
}

func (p *FixedProvider) SignIn(context.Context, string, string) (*Session, error) {
	return &Session{UserID: p.userID, AccessToken: fixedToken, RefreshToken: fixedToken}, nil
}

func (p *FixedProvider) SignOut(context.Context, Session) error {
	return nil
}

func (p *FixedProvider) Resolve(context.Context, Session) (string, *Session, error) {
	return p.userID, nil, nil
}
