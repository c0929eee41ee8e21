// Package shopify implements the catalog backend against the Shopify Admin
// GraphQL API: paged inventory listing, chunked bulk quantity writes,
// inventory activation, and location resolution.
package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shelfsync/shelfsync/internal/transport"
	"github.com/shelfsync/shelfsync/pkg/errors"
)

// DefaultAPIVersion is the Admin API version requests are pinned to.
const DefaultAPIVersion = "2024-10"

// accessTokenHeader authenticates Admin API requests.
const accessTokenHeader = "X-Shopify-Access-Token"

// Client talks to one shop's Admin GraphQL endpoint.
type Client struct {
	endpoint     string
	http         *transport.Client
	referenceTag string
	pageSize     int
}

// Option configures a Client.
type Option func(*Client)

// WithReferenceTag sets the reference document URI attached to every bulk
// quantity write for audit purposes.
func WithReferenceTag(tag string) Option {
	return func(c *Client) {
		c.referenceTag = tag
	}
}

// WithPageSize overrides the inventory listing page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New creates a Client for the given shop domain and access token.
func New(shopDomain, token, apiVersion string, opts ...Option) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	c := &Client{
		endpoint:     fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, apiVersion),
		http:         transport.New(&transport.HeaderAuth{Header: accessTokenHeader}, token),
		referenceTag: "shelfsync:inventory-correction",
		pageSize:     250,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithEndpoint creates a Client against an explicit endpoint URL. Used
// by tests to point at a local server.
func NewWithEndpoint(endpoint, token string, opts ...Option) *Client {
	c := New("unused.myshopify.com", token, "")
	c.endpoint = endpoint
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// graphqlRequest executes one GraphQL operation and decodes `data` into
// target. Envelope-level errors surface as a GraphQLError (a call-level
// failure distinct from per-row user errors).
func (c *Client) graphqlRequest(ctx context.Context, operation, query string, variables map[string]any, target any) error {
	resp, err := c.http.PostJSON(ctx, c.endpoint, map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return errors.WrapTransport(operation, err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := transport.DecodeResponse(operation, resp, &envelope); err != nil {
		return err
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return errors.NewGraphQLError(operation, messages)
	}

	if target == nil {
		return nil
	}
	if len(envelope.Data) == 0 {
		return errors.NewProtocolError(operation, "data", "response carries neither data nor errors")
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return errors.NewProtocolError(operation, "data", "malformed data payload: "+err.Error())
	}
	return nil
}

// inventoryItemGIDPrefix is the namespace of inventory item identifiers.
const inventoryItemGIDPrefix = "gid://shopify/InventoryItem/"

// validItemGID reports whether id is a well-formed inventory item
// identifier: the InventoryItem namespace with a numeric tail.
func validItemGID(id string) bool {
	tail, ok := strings.CutPrefix(id, inventoryItemGIDPrefix)
	if !ok || tail == "" {
		return false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
