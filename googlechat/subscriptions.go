package googlechat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// DefaultEventsURL is the base URL of the Google Workspace Events API.
const DefaultEventsURL = "https://workspaceevents.googleapis.com/v1"

// eventTypes are the space events the app subscribes to.
var eventTypes = []string{
	"google.workspace.chat.message.v1.created",
	"google.workspace.chat.message.v1.updated",
}

// Subscriptions creates and deletes space event subscriptions delivered to a
// Pub/Sub topic.
type Subscriptions struct {
	BaseURL string
	// Topic is the Pub/Sub topic receiving events,
	// projects/PROJECT/topics/TOPIC.
	Topic string
	App   *http.Client
	Users UserClients
}

func (s *Subscriptions) baseURL() string {
	if s.BaseURL == "" {
		return DefaultEventsURL
	}
	return s.BaseURL
}

func targetResource(space string) string {
	return "//chat.googleapis.com/" + space
}

// Create subscribes to the message events of space on behalf of user. An
// existing subscription is not an error.
func (s *Subscriptions) Create(ctx context.Context, space, user string) error {
	type (
		endpoint struct {
			PubsubTopic string `json:"pubsubTopic"`
		}
		payloadOptions struct {
			IncludeResource bool `json:"includeResource"`
		}
		request struct {
			TargetResource       string         `json:"targetResource"`
			EventTypes           []string       `json:"eventTypes"`
			NotificationEndpoint endpoint       `json:"notificationEndpoint"`
			PayloadOptions       payloadOptions `json:"payloadOptions"`
		}
	)

	req := request{
		TargetResource:       targetResource(space),
		EventTypes:           eventTypes,
		NotificationEndpoint: endpoint{PubsubTopic: s.Topic},
		PayloadOptions:       payloadOptions{IncludeResource: true},
	}
	err := delegated(ctx, s.Users, user, func(cli *http.Client) error {
		return do(ctx, cli, http.MethodPost, s.baseURL()+"/subscriptions", req, nil)
	})
	if statusIs(err, http.StatusConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// Delete deletes every subscription targeting space, using the app's own
// credentials.
func (s *Subscriptions) Delete(ctx context.Context, space string) error {
	names, err := s.list(ctx, space)
	if err != nil {
		return err
	}
	for _, name := range names {
		err := do(ctx, s.App, http.MethodDelete, s.baseURL()+"/"+name, nil, nil)
		if err != nil && !statusIs(err, http.StatusNotFound) {
			return fmt.Errorf("delete subscription %s: %w", name, err)
		}
	}
	return nil
}

func (s *Subscriptions) list(ctx context.Context, space string) ([]string, error) {
	filter := fmt.Sprintf(`event_types:%q AND target_resource=%q`, eventTypes[0], targetResource(space))

	var names []string
	pageToken := ""
	for {
		var res struct {
			Subscriptions []struct {
				Name string `json:"name"`
			} `json:"subscriptions"`
			NextPageToken string `json:"nextPageToken"`
		}
		q := url.Values{}
		q.Set("filter", filter)
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		if err := do(ctx, s.App, http.MethodGet, s.baseURL()+"/subscriptions?"+q.Encode(), nil, &res); err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		for _, sub := range res.Subscriptions {
			names = append(names, sub.Name)
		}
		if res.NextPageToken == "" {
			return names, nil
		}
		pageToken = res.NextPageToken
	}
}
