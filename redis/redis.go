package redis

import (
	"context"
	"fmt"

	"github.com/GetStream/chat-assistant-backend/chatapp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// Redis stores users' delegated credentials in Redis.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server at url and pings the server to ensure
// the connection is working.
func Connect(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.cli.Close()
}

const credentialPrefix = "credentials"

func credentialKey(user string) string {
	return fmt.Sprintf("%s:%s", credentialPrefix, user)
}

// SaveToken stores the token of user. Tokens without a refresh token expire
// together with their access token.
func (r *Redis) SaveToken(ctx context.Context, user string, tok *oauth2.Token) error {
	key := credentialKey(user)
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, newCredential(tok))
		if tok.RefreshToken == "" && !tok.Expiry.IsZero() {
			pipe.ExpireAt(ctx, key, tok.Expiry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save token: %w", err)
	}
	return nil
}

// Token returns the stored token of user. It returns a
// *chatapp.MissingCredentialError when the user has no token.
func (r *Redis) Token(ctx context.Context, user string) (*oauth2.Token, error) {
	res := r.cli.HGetAll(ctx, credentialKey(user))
	vals, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	// HGETALL on a missing key returns an empty hash, not redis.Nil.
	if len(vals) == 0 {
		return nil, &chatapp.MissingCredentialError{UserID: user}
	}

	var c credential
	if err := res.Scan(&c); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if c.AccessToken == "" && c.RefreshToken == "" {
		return nil, &chatapp.MissingCredentialError{UserID: user}
	}
	return c.Token(), nil
}

// DeleteToken removes the token of user.
func (r *Redis) DeleteToken(ctx context.Context, user string) error {
	if err := r.cli.Del(ctx, credentialKey(user)).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}
