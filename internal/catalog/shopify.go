package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ShopifyGateway implements Gateway against the Shopify Admin GraphQL API.
type ShopifyGateway struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

// NewShopifyGateway creates a gateway for one store. shopDomain is the
// myshopify-style domain, apiVersion the Admin API version path segment.
func NewShopifyGateway(shopDomain, accessToken, apiVersion string, timeout time.Duration) (*ShopifyGateway, error) {
	if shopDomain == "" || accessToken == "" {
		return nil, fmt.Errorf("shop domain and access token are required")
	}
	if apiVersion == "" {
		apiVersion = "2024-10"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ShopifyGateway{
		endpoint:    fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, apiVersion),
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

const productLookupQuery = `
query productsBySku($query: String!) {
  products(first: 100, query: $query) {
    edges {
      node {
        id
        title
        featuredImage { url }
        variants(first: 100) {
          edges {
            node {
              id
              sku
              price
              inventoryQuantity
              inventoryItem {
                id
                unitCost { amount }
                inventoryLevels(first: 20) {
                  edges {
                    node {
                      location { id }
                      quantities(names: ["available"]) { name quantity }
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// LookupProductsBySKU runs the product search query and flattens the
// edge/node envelope into Product values.
func (g *ShopifyGateway) LookupProductsBySKU(ctx context.Context, query string) (*ProductLookupResult, error) {
	var resp struct {
		Products struct {
			Edges []struct {
				Node struct {
					ID            string `json:"id"`
					Title         string `json:"title"`
					FeaturedImage *struct {
						URL string `json:"url"`
					} `json:"featuredImage"`
					Variants struct {
						Edges []struct {
							Node struct {
								ID                string          `json:"id"`
								SKU               string          `json:"sku"`
								Price             json.Number     `json:"price"`
								InventoryQuantity int             `json:"inventoryQuantity"`
								InventoryItem     shopifyInvItem  `json:"inventoryItem"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}

	err := g.do(ctx, productLookupQuery, map[string]any{"query": query}, &resp)
	if err != nil {
		return nil, err
	}

	result := &ProductLookupResult{}
	for _, pe := range resp.Products.Edges {
		product := Product{
			ID:    pe.Node.ID,
			Title: pe.Node.Title,
		}
		if pe.Node.FeaturedImage != nil {
			product.ImageURL = pe.Node.FeaturedImage.URL
		}

		for _, ve := range pe.Node.Variants.Edges {
			node := ve.Node
			variant := Variant{
				ID:              node.ID,
				SKU:             node.SKU,
				Price:           parseAmount(string(node.Price)),
				InventoryItemID: node.InventoryItem.ID,
				Available:       node.InventoryQuantity,
			}
			if node.InventoryItem.UnitCost != nil {
				cost := parseAmount(node.InventoryItem.UnitCost.Amount)
				variant.UnitCost = &cost
			}
			for _, le := range node.InventoryItem.InventoryLevels.Edges {
				for _, q := range le.Node.Quantities {
					if q.Name == "available" {
						if variant.LocationAvailable == nil {
							variant.LocationAvailable = make(map[string]int)
						}
						variant.LocationAvailable[le.Node.Location.ID] = q.Quantity
					}
				}
			}
			product.Variants = append(product.Variants, variant)
		}

		result.Products = append(result.Products, product)
	}

	return result, nil
}

type shopifyInvItem struct {
	ID       string `json:"id"`
	UnitCost *struct {
		Amount string `json:"amount"`
	} `json:"unitCost"`
	InventoryLevels struct {
		Edges []struct {
			Node struct {
				Location struct {
					ID string `json:"id"`
				} `json:"location"`
				Quantities []struct {
					Name     string `json:"name"`
					Quantity int    `json:"quantity"`
				} `json:"quantities"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"inventoryLevels"`
}

const locationsQuery = `
query storeLocations {
  locations(first: 50) {
    edges { node { id name isActive } }
  }
}`

// LookupLocations lists the store's stock locations.
func (g *ShopifyGateway) LookupLocations(ctx context.Context) ([]Location, error) {
	var resp struct {
		Locations struct {
			Edges []struct {
				Node Location `json:"node"`
			} `json:"edges"`
		} `json:"locations"`
	}

	if err := g.do(ctx, locationsQuery, nil, &resp); err != nil {
		return nil, err
	}

	locations := make([]Location, 0, len(resp.Locations.Edges))
	for _, e := range resp.Locations.Edges {
		locations = append(locations, e.Node)
	}
	return locations, nil
}

const inventoryAdjustMutation = `
mutation adjustInventory($input: InventoryAdjustQuantitiesInput!) {
  inventoryAdjustQuantities(input: $input) {
    inventoryAdjustmentGroup { changes { delta } }
    userErrors { field message }
  }
}`

// AdjustInventory applies signed deltas in one all-or-nothing call.
func (g *ShopifyGateway) AdjustInventory(ctx context.Context, changes []InventoryChange, reason, stateName string) (*InventoryAdjustResult, error) {
	wireChanges := make([]map[string]any, 0, len(changes))
	for _, c := range changes {
		wireChanges = append(wireChanges, map[string]any{
			"inventoryItemId": c.InventoryItemID,
			"locationId":      c.LocationID,
			"delta":           c.Delta,
		})
	}

	var resp struct {
		InventoryAdjustQuantities struct {
			InventoryAdjustmentGroup *struct {
				Changes []struct {
					Delta int `json:"delta"`
				} `json:"changes"`
			} `json:"inventoryAdjustmentGroup"`
			UserErrors []FieldError `json:"userErrors"`
		} `json:"inventoryAdjustQuantities"`
	}

	input := map[string]any{
		"reason":  reason,
		"name":    stateName,
		"changes": wireChanges,
	}
	if err := g.do(ctx, inventoryAdjustMutation, map[string]any{"input": input}, &resp); err != nil {
		return nil, err
	}

	result := &InventoryAdjustResult{FieldErrors: resp.InventoryAdjustQuantities.UserErrors}
	if group := resp.InventoryAdjustQuantities.InventoryAdjustmentGroup; group != nil {
		result.Applied = len(group.Changes)
	}
	return result, nil
}

const variantsBulkUpdateMutation = `
mutation variantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants { id }
    userErrors { field message }
  }
}`

// BulkUpdateVariants writes price and optionally cost for one parent's variants.
func (g *ShopifyGateway) BulkUpdateVariants(ctx context.Context, parentID string, variants []VariantWrite) (*VariantWriteResult, error) {
	wireVariants := make([]map[string]any, 0, len(variants))
	for _, v := range variants {
		wire := map[string]any{
			"id":    v.VariantID,
			"price": strconv.FormatFloat(v.Price, 'f', 2, 64),
		}
		if v.Cost != nil {
			wire["inventoryItem"] = map[string]any{
				"cost": strconv.FormatFloat(*v.Cost, 'f', 2, 64),
			}
		}
		wireVariants = append(wireVariants, wire)
	}

	var resp struct {
		ProductVariantsBulkUpdate struct {
			ProductVariants []struct {
				ID string `json:"id"`
			} `json:"productVariants"`
			UserErrors []FieldError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}

	vars := map[string]any{"productId": parentID, "variants": wireVariants}
	if err := g.do(ctx, variantsBulkUpdateMutation, vars, &resp); err != nil {
		return nil, err
	}

	result := &VariantWriteResult{FieldErrors: resp.ProductVariantsBulkUpdate.UserErrors}
	for _, v := range resp.ProductVariantsBulkUpdate.ProductVariants {
		result.UpdatedVariantIDs = append(result.UpdatedVariantIDs, v.ID)
	}
	return result, nil
}

const inventoryItemUpdateMutation = `
mutation inventoryItemCost($id: ID!, $input: InventoryItemInput!) {
  inventoryItemUpdate(id: $id, input: $input) {
    inventoryItem { id }
    userErrors { field message }
  }
}`

// UpdateInventoryItemCost writes a single inventory item's unit cost.
func (g *ShopifyGateway) UpdateInventoryItemCost(ctx context.Context, inventoryItemID string, cost float64) (*InventoryItemUpdateResult, error) {
	var resp struct {
		InventoryItemUpdate struct {
			UserErrors []FieldError `json:"userErrors"`
		} `json:"inventoryItemUpdate"`
	}

	vars := map[string]any{
		"id":    inventoryItemID,
		"input": map[string]any{"cost": strconv.FormatFloat(cost, 'f', 2, 64)},
	}
	if err := g.do(ctx, inventoryItemUpdateMutation, vars, &resp); err != nil {
		return nil, err
	}

	return &InventoryItemUpdateResult{FieldErrors: resp.InventoryItemUpdate.UserErrors}, nil
}

// do executes one GraphQL request and unmarshals the data payload into out.
// Top-level GraphQL errors are transport-level failures: the platform
// rejected the document itself, not individual fields.
func (g *ShopifyGateway) do(ctx context.Context, query string, variables map[string]any, out any) error {
	payload := map[string]any{"query": query}
	if variables != nil {
		payload["variables"] = variables
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", g.accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin API error (status %d): %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return fmt.Errorf("admin API rejected request: %s", envelope.Errors[0].Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}

	return nil
}

func parseAmount(s string) float64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return value
}
