package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client is the Pub/Sub side of the outbox publisher. Messages for one
// aggregate share an ordering key so subscribers see them in commit order.
type Client struct {
	client  *pubsub.Client
	project string
	topics  []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and confirms every configured outbox topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, outbox config.OutboxConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	conn, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     conn,
		project:    project,
		topics:     topicNames(outbox),
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"gcp_project": project, "topics": c.topics}), "pubsub client initialized")
	}
	return c, nil
}

func topicNames(cfg config.OutboxConfig) []string {
	var names []string
	for _, name := range []string{cfg.OrdersTopic, cfg.PaymentsTopic, cfg.AccountsTopic} {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Publish blocks until the server acks the message. After a failure the
// ordering key is resumed so the row's retry is not rejected outright.
func (c *Client) Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error {
	pub, err := c.publisher(topic)
	if err != nil {
		return err
	}
	result := pub.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs, OrderingKey: key})
	if _, err := result.Get(ctx); err != nil {
		if key != "" {
			pub.ResumePublish(key)
		}
		return fmt.Errorf("publish to %s (key %s): %w", topic, key, err)
	}
	return nil
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.client == nil {
		return nil, errNotInitialized
	}
	name, ok := resourceName(c.project, topic)
	if !ok {
		return nil, fmt.Errorf("no pubsub topic for %q", topic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[name]
	if !ok {
		pub = c.client.Publisher(name)
		pub.EnableMessageOrdering = true
		c.publishers[name] = pub
	}
	return pub, nil
}

// Ping fails when any configured topic is missing or unreadable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, topic := range c.topics {
		name, _ := resourceName(c.project, topic)
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %q does not exist", topic)
		case err != nil:
			return fmt.Errorf("checking topic %q: %w", topic, err)
		}
	}
	return nil
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	clear(c.publishers)
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a short topic id under project. Fully qualified
// names pass through.
func resourceName(project, topic string) (string, bool) {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return "", false
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic, true
	case project == "":
		return "", false
	}
	return "projects/" + project + "/topics/" + topic, true
}
