package googlechat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/GetStream/chat-assistant-backend/chatapp"
)

// DefaultChatURL is the base URL of the Google Chat API.
const DefaultChatURL = "https://chat.googleapis.com/v1"

// Client reads messages and memberships of spaces.
type Client struct {
	BaseURL string
	// App is authorized with the app's own credentials.
	App   *http.Client
	Users UserClients
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultChatURL
	}
	return c.BaseURL
}

const pageSize = 1000

type message struct {
	Name       string    `json:"name"`
	Text       string    `json:"text"`
	CreateTime time.Time `json:"createTime"`
}

// ListMessages returns all messages of space visible to user, oldest first.
func (c *Client) ListMessages(ctx context.Context, space, user string) ([]chatapp.Message, error) {
	var out []chatapp.Message
	err := delegated(ctx, c.Users, user, func(cli *http.Client) error {
		pageToken := ""
		for {
			var res struct {
				Messages      []message `json:"messages"`
				NextPageToken string    `json:"nextPageToken"`
			}
			q := url.Values{}
			q.Set("pageSize", fmt.Sprint(pageSize))
			if pageToken != "" {
				q.Set("pageToken", pageToken)
			}
			u := fmt.Sprintf("%s/%s/messages?%s", c.baseURL(), space, q.Encode())
			if err := do(ctx, cli, http.MethodGet, u, nil, &res); err != nil {
				return err
			}

			for _, m := range res.Messages {
				out = append(out, chatapp.Message{ID: m.Name, Text: m.Text, CreatedAt: m.CreateTime})
			}
			if res.NextPageToken == "" {
				return nil
			}
			pageToken = res.NextPageToken
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

// SpaceAdmin returns the first human space manager of space.
func (c *Client) SpaceAdmin(ctx context.Context, space string) (string, bool, error) {
	var res struct {
		Memberships []struct {
			Role   string `json:"role"`
			Member struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"member"`
		} `json:"memberships"`
	}
	q := url.Values{}
	q.Set("filter", `role = "ROLE_MANAGER"`)
	u := fmt.Sprintf("%s/%s/members?%s", c.baseURL(), space, q.Encode())
	if err := do(ctx, c.App, http.MethodGet, u, nil, &res); err != nil {
		return "", false, fmt.Errorf("list members: %w", err)
	}

	for _, m := range res.Memberships {
		if m.Role == "ROLE_MANAGER" && m.Member.Type == "HUMAN" {
			return m.Member.Name, true, nil
		}
	}
	return "", false, nil
}
