package redis

import (
	"time"

	"golang.org/x/oauth2"
)

// A credential is a user's OAuth token as stored in Redis.
type credential struct {
	AccessToken  string `redis:"access_token"`
	TokenType    string `redis:"token_type"`
	RefreshToken string `redis:"refresh_token"`
	Expiry       int64  `redis:"expiry"` // unix seconds, 0 when unset
}

func newCredential(tok *oauth2.Token) *credential {
	var expiry int64
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.Unix()
	}
	return &credential{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       expiry,
	}
}

func (c credential) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
	}
	if c.Expiry != 0 {
		tok.Expiry = time.Unix(c.Expiry, 0)
	}
	return tok
}
