package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"roastery/internal/auth"
	"roastery/internal/catalog"
)

// HTTPError carries the status of a non-2xx backend response.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend request failed: %d %s", e.Status, http.StatusText(e.Status))
}

// GraphQLError is a non-transport failure reported in the response body.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "graphql error"
	}
	return "graphql error: " + e.Messages[0]
}

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// User mirrors the profile record the external user service owns.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	PhotoURL  string `json:"photoUrl"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Client talks to the external GraphQL services: plain POSTs with a
// query/variables body and the x-action / x-resourceid header convention.
type Client struct {
	coffeeEndpoint string
	userEndpoint   string
	httpc          *http.Client
	tokens         TokenSource
	log            zerolog.Logger
}

func NewClient(coffeeEndpoint, userEndpoint string, tokens TokenSource, log zerolog.Logger) *Client {
	return &Client{
		coffeeEndpoint: coffeeEndpoint,
		userEndpoint:   userEndpoint,
		httpc:          &http.Client{Timeout: 30 * time.Second},
		tokens:         tokens,
		log:            log,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do posts one registered operation and decodes its data payload into out.
// resourceID scopes record-level mutations via x-resourceid.
func (c *Client) do(ctx context.Context, endpoint string, op Operation, variables map[string]any, resourceID string, out any) error {
	body, err := json.Marshal(gqlRequest{Query: op.Query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-action", op.Name)
	if resourceID != "" {
		req.Header.Set("x-resourceid", resourceID)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		switch {
		case errors.Is(err, auth.ErrNoToken):
			// No identity configured; call the backend anonymously.
		case err != nil:
			return fmt.Errorf("fetch token for %s: %w", op.Name, err)
		case token != "":
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode}
	}

	var envelope gqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", op.Name, err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return &GraphQLError{Messages: messages}
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", op.Name, err)
		}
	}
	return nil
}

func (c *Client) ListCoffees(ctx context.Context) (catalog.Page, error) {
	var data struct {
		ListCoffees catalog.Page `json:"listCoffees"`
	}
	if err := c.do(ctx, c.coffeeEndpoint, opListCoffees, nil, "", &data); err != nil {
		return catalog.Page{}, err
	}
	return data.ListCoffees, nil
}

func (c *Client) ListCoffeesByUser(ctx context.Context, userID string, limit int, nextToken string) (catalog.Page, error) {
	if userID == "" {
		return catalog.Page{}, fmt.Errorf("userId is required")
	}
	if limit <= 0 {
		limit = 10
	}
	var data struct {
		ListCoffeesByUserID catalog.Page `json:"listCoffeesByUserId"`
	}
	vars := map[string]any{"userId": userID, "limit": limit, "nextToken": nextToken}
	if err := c.do(ctx, c.coffeeEndpoint, opListCoffeesByUser, vars, "", &data); err != nil {
		return catalog.Page{}, err
	}
	return data.ListCoffeesByUserID, nil
}

func (c *Client) ListCoffeesByRating(ctx context.Context, limit int, minRating float64, nextToken string) (catalog.Page, error) {
	if limit <= 0 {
		limit = 10
	}
	var data struct {
		ListCoffeeByRating catalog.Page `json:"listCoffeeByRating"`
	}
	vars := map[string]any{"limit": limit, "minRating": minRating, "nextToken": nextToken}
	if err := c.do(ctx, c.coffeeEndpoint, opListCoffeesByRating, vars, "", &data); err != nil {
		return catalog.Page{}, err
	}
	return data.ListCoffeeByRating, nil
}

func (c *Client) CreateCoffee(ctx context.Context, listing catalog.Listing) (catalog.Listing, error) {
	var data struct {
		CreateCoffee catalog.Listing `json:"createCoffee"`
	}
	vars := map[string]any{"coffee": toCoffeeInput(listing)}
	if err := c.do(ctx, c.coffeeEndpoint, opCreateCoffee, vars, "", &data); err != nil {
		return catalog.Listing{}, err
	}
	return data.CreateCoffee, nil
}

func (c *Client) UpdateCoffee(ctx context.Context, listing catalog.Listing) (catalog.Listing, error) {
	if listing.ID == "" {
		return catalog.Listing{}, fmt.Errorf("listing id is required for update")
	}
	var data struct {
		UpdateCoffee catalog.Listing `json:"updateCoffee"`
	}
	input := toCoffeeInput(listing)
	input["id"] = listing.ID
	vars := map[string]any{"coffee": input}
	if err := c.do(ctx, c.coffeeEndpoint, opUpdateCoffee, vars, listing.ID, &data); err != nil {
		return catalog.Listing{}, err
	}
	return data.UpdateCoffee, nil
}

// ListAllCategories returns whatever the backend has; an empty catalog is
// returned empty, not padded with placeholder rows.
func (c *Client) ListAllCategories(ctx context.Context) ([]catalog.Category, error) {
	var data struct {
		ListAllCategories []catalog.Category `json:"listAllCategories"`
	}
	if err := c.do(ctx, c.coffeeEndpoint, opListAllCategories, nil, "", &data); err != nil {
		return nil, err
	}
	return data.ListAllCategories, nil
}

func (c *Client) ListCategoriesByName(ctx context.Context, name string) ([]catalog.Category, error) {
	var data struct {
		ListCategoriesByName []catalog.Category `json:"listCategoriesByName"`
	}
	vars := map[string]any{"categoryName": name}
	if err := c.do(ctx, c.coffeeEndpoint, opListCategoriesByName, vars, "", &data); err != nil {
		return nil, err
	}
	return data.ListCategoriesByName, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, fmt.Errorf("userId is required")
	}
	var data struct {
		GetUserByID User `json:"getUserById"`
	}
	vars := map[string]any{"userId": userID}
	if err := c.do(ctx, c.userEndpoint, opGetUserByID, vars, "", &data); err != nil {
		return User{}, err
	}
	return data.GetUserByID, nil
}

func (c *Client) UpdateUser(ctx context.Context, user User) (User, error) {
	if user.ID == "" {
		return User{}, fmt.Errorf("user id is required")
	}
	var data struct {
		UpdateUser User `json:"updateUser"`
	}
	vars := map[string]any{"user": user}
	if err := c.do(ctx, c.userEndpoint, opUpdateUser, vars, user.ID, &data); err != nil {
		return User{}, err
	}
	return data.UpdateUser, nil
}

// toCoffeeInput strips server-assigned fields from the draft before it is
// sent as a mutation input.
func toCoffeeInput(listing catalog.Listing) map[string]any {
	categories := make([]map[string]any, 0, len(listing.Categories))
	for _, cat := range listing.Categories {
		categories = append(categories, map[string]any{
			"id":          cat.ID,
			"icon":        cat.Icon,
			"description": cat.Description,
			"name":        cat.Name,
		})
	}
	medias := make([]map[string]any, 0, len(listing.Medias))
	for _, m := range listing.Medias {
		medias = append(medias, map[string]any{
			"id":        m.ID,
			"mediaUrl":  m.MediaURL,
			"mediaType": m.MediaType,
		})
	}
	return map[string]any{
		"name":          listing.Name,
		"description":   listing.Description,
		"origin":        listing.Origin,
		"roastLevel":    listing.RoastLevel,
		"price":         listing.Price,
		"currency":      listing.Currency,
		"weight":        listing.Weight,
		"weightUnit":    listing.WeightUnit,
		"isAvailable":   listing.IsAvailable,
		"stockQuantity": listing.StockQuantity,
		"categories":    categories,
		"seller": map[string]any{
			"id":       listing.Seller.ID,
			"name":     listing.Seller.Name,
			"photoUrl": listing.Seller.PhotoURL,
		},
		"medias": medias,
	}
}
