package shopify

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/push"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

const listInventoryQuery = `
query inventoryItems($first: Int!, $after: String) {
	inventoryItems(first: $first, after: $after) {
		pageInfo { hasNextPage endCursor }
		nodes { id sku }
	}
}`

// ListInventoryPage fetches one page of inventory items. Records with a
// missing SKU or a malformed item identifier come back with empty fields
// and are skipped by the index builder.
func (c *Client) ListInventoryPage(ctx context.Context, cursor string) (*catalog.Page, error) {
	variables := map[string]any{"first": c.pageSize}
	if cursor != "" {
		variables["after"] = cursor
	}

	var data struct {
		InventoryItems struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				ID  string `json:"id"`
				SKU string `json:"sku"`
			} `json:"nodes"`
		} `json:"inventoryItems"`
	}
	if err := c.graphqlRequest(ctx, "list inventory", listInventoryQuery, variables, &data); err != nil {
		return nil, err
	}

	page := &catalog.Page{
		HasNext: data.InventoryItems.PageInfo.HasNextPage,
		Cursor:  data.InventoryItems.PageInfo.EndCursor,
	}
	if page.HasNext && page.Cursor == "" {
		return nil, errors.NewProtocolError("list inventory", "endCursor", "page claims more results but carries no cursor")
	}

	for _, node := range data.InventoryItems.Nodes {
		rec := catalog.Record{SKU: node.SKU}
		if validItemGID(node.ID) {
			rec.ItemID = node.ID
		} else {
			logging.Ctx(ctx).Debug().Str("id", node.ID).Msg("Skipping record with unparsable item identifier")
		}
		page.Records = append(page.Records, rec)
	}

	return page, nil
}

const setQuantitiesMutation = `
mutation inventorySetQuantities($input: InventorySetQuantitiesInput!) {
	inventorySetQuantities(input: $input) {
		userErrors { field message }
	}
}`

// SetQuantities issues one bulk "set available quantity" call. The write
// names the quantity field being set, tags the mutation with an audit
// reason and reference document, and ignores the compare-quantity check so
// the update is an unconditional overwrite.
func (c *Client) SetQuantities(ctx context.Context, locationID string, items []reconcile.WorkItem) ([]push.RowFailure, error) {
	quantities := make([]map[string]any, 0, len(items))
	for _, item := range items {
		quantities = append(quantities, map[string]any{
			"inventoryItemId": item.ItemID,
			"locationId":      locationID,
			"quantity":        int(math.Round(item.Quantity)),
		})
	}

	variables := map[string]any{
		"input": map[string]any{
			"name":                  "available",
			"reason":                "correction",
			"referenceDocumentUri":  c.referenceTag,
			"ignoreCompareQuantity": true,
			"quantities":            quantities,
		},
	}

	var data struct {
		InventorySetQuantities struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"inventorySetQuantities"`
	}
	if err := c.graphqlRequest(ctx, "set quantities", setQuantitiesMutation, variables, &data); err != nil {
		return nil, err
	}

	failures := make([]push.RowFailure, 0, len(data.InventorySetQuantities.UserErrors))
	for _, ue := range data.InventorySetQuantities.UserErrors {
		index, ok := ue.quantityIndex()
		if !ok {
			// An error that names no row rejects the whole call.
			return nil, errors.NewProtocolError("set quantities", strings.Join(ue.Field, "."), ue.Message)
		}
		failures = append(failures, push.RowFailure{Index: index, Message: ue.Message})
	}
	return failures, nil
}

// userError is one entry of a mutation's userErrors list. For quantity
// writes the field path looks like ["input", "quantities", "2", ...]; the
// numeric segment is the row index within the call.
type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// quantityIndex extracts the row index from the error's field path.
func (e userError) quantityIndex() (int, bool) {
	for i, segment := range e.Field {
		if segment != "quantities" || i+1 >= len(e.Field) {
			continue
		}
		if index, err := strconv.Atoi(e.Field[i+1]); err == nil {
			return index, true
		}
	}
	return 0, false
}

const activateMutation = `
mutation inventoryActivate($inventoryItemId: ID!, $locationId: ID!) {
	inventoryActivate(inventoryItemId: $inventoryItemId, locationId: $locationId) {
		inventoryLevel { id }
		userErrors { field message }
	}
}`

// ActivateItem provisions an inventory item at a location. An
// already-active conflict surfaces as errors.ErrAlreadyExists so the
// recovery pass can treat it as success.
func (c *Client) ActivateItem(ctx context.Context, itemID, locationID string) error {
	var data struct {
		InventoryActivate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"inventoryActivate"`
	}
	err := c.graphqlRequest(ctx, "activate item", activateMutation, map[string]any{
		"inventoryItemId": itemID,
		"locationId":      locationID,
	}, &data)
	if err != nil {
		return err
	}

	for _, ue := range data.InventoryActivate.UserErrors {
		if strings.Contains(strings.ToLower(ue.Message), "already active") {
			return errors.ErrAlreadyExists
		}
		return errors.NewProtocolError("activate item", strings.Join(ue.Field, "."), ue.Message)
	}
	return nil
}

const locationsQuery = `
query locations($first: Int!, $query: String) {
	locations(first: $first, query: $query) {
		nodes { id name }
	}
}`

// ResolveLocation maps a human-readable location name to its identifier.
// The name must match exactly; no match returns errors.ErrNotFound.
func (c *Client) ResolveLocation(ctx context.Context, name string) (string, error) {
	var data struct {
		Locations struct {
			Nodes []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"locations"`
	}
	err := c.graphqlRequest(ctx, "resolve location", locationsQuery, map[string]any{
		"first": 50,
		"query": "name:" + strconv.Quote(name),
	}, &data)
	if err != nil {
		return "", err
	}

	for _, node := range data.Locations.Nodes {
		if node.Name == name {
			return node.ID, nil
		}
	}
	return "", errors.NewNotFoundError("location", name)
}
