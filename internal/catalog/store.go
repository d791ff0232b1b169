// Package catalog provides the SQL-backed product store: base products,
// materialized variants, visible sibling lookups and price tiers.
package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitrineshop/storefront/internal/models"
	"github.com/vitrineshop/storefront/internal/requestcache"
)

// ErrTypeNotFound is a configuration error: the product references a type
// the registry does not know. Rendering the product aborts.
var ErrTypeNotFound = errors.New("catalog: product type not found")

// ErrProductNotFound is returned when no product row matches.
var ErrProductNotFound = errors.New("catalog: product not found")

const productColumns = "id, pid, type_id, sku, name, alias, description, price, fallback, " +
	"inherit, attributes, published, start, stop, protected, guests, `groups`"

// Store loads products from MySQL and resolves their types through the
// registry built at startup.
type Store struct {
	DB    *sql.DB
	Types *models.TypeRegistry
}

// FindProduct loads a product by ID. Variant rows are materialized against
// their parent so the returned record always carries the effective values.
func (s *Store) FindProduct(id int64) (*models.Product, error) {
	p, err := s.findRow(id)
	if err != nil {
		return nil, err
	}

	if !p.IsVariant() {
		return s.withType(p)
	}

	parent, err := s.findRow(p.PID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, fmt.Errorf("parent record of product variant %d not found", id)
		}
		return nil, err
	}
	parent, err = s.withType(parent)
	if err != nil {
		return nil, err
	}

	return models.MaterializeVariant(parent, p, parent.Type)
}

// VisibleSiblings returns the variant rows of a product's variant group the
// viewer is currently allowed to see. For a variant the group is its
// parent's, so option selectors stay complete after a variant switch. The
// publish window is evaluated against the snapshot taken here; concurrently
// published or expired siblings are tolerated.
func (s *Store) VisibleSiblings(p *models.Product, viewer models.Viewer) ([]models.VariantRow, error) {
	groupID := p.ID
	switch {
	case p.IsVariant():
		groupID = p.PID
	case !p.HasVariants():
		return nil, nil
	}

	now := time.Now()
	rows, err := s.DB.Query(`
		SELECT `+productColumns+`
		FROM products
		WHERE pid = ? AND published = 1
		  AND (start IS NULL OR start < ?)
		  AND (stop IS NULL OR stop > ?)`,
		groupID, now, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var siblings []models.VariantRow
	var ids []int64
	for rows.Next() {
		v, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		// Guest-only and protected flags are checked in code, like the
		// group intersection, so the query stays index-friendly.
		if !v.IsVisibleTo(viewer, now) {
			continue
		}
		siblings = append(siblings, models.VariantRow{ID: v.ID, Values: v.Values})
		ids = append(ids, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// With advanced pricing, only variants that actually have a price tier
	// are purchasable.
	if p.Type != nil && p.Type.HasAdvancedPrices && len(ids) > 0 {
		priced, err := s.pricedProductIDs(ids)
		if err != nil {
			return nil, err
		}
		var kept []models.VariantRow
		for _, row := range siblings {
			if priced[row.ID] {
				kept = append(kept, row)
			}
		}
		siblings = kept
	}

	return siblings, nil
}

// pricedProductIDs returns which of the given products have at least one
// price tier.
func (s *Store) pricedProductIDs(ids []int64) (map[int64]bool, error) {
	query := `SELECT DISTINCT product_id FROM price_tiers WHERE product_id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	priced := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		priced[id] = true
	}
	return priced, rows.Err()
}

// DefaultVariantID returns the fallback-flagged variant of a base product,
// 0 when none is designated.
func (s *Store) DefaultVariantID(pid int64) (int64, error) {
	var id int64
	err := s.DB.QueryRow(`SELECT id FROM products WHERE pid = ? AND fallback = 1 LIMIT 1`, pid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// PriceTier is one advanced-pricing step: the unit price from MinQuantity
// pieces upwards.
type PriceTier struct {
	MinQuantity int             `json:"minQuantity"`
	Price       decimal.Decimal `json:"price"`
}

// PriceTiers returns the advanced price tiers of a product, lowest minimum
// first.
func (s *Store) PriceTiers(productID int64) ([]PriceTier, error) {
	rows, err := s.DB.Query(`
		SELECT min_quantity, price FROM price_tiers
		WHERE product_id = ? ORDER BY min_quantity ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []PriceTier
	for rows.Next() {
		var t PriceTier
		if err := rows.Scan(&t.MinQuantity, &t.Price); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// MinimumQuantity derives the smallest purchasable quantity from price
// tiers. Without tiers (or without advanced pricing) it is 1.
func MinimumQuantity(tiers []PriceTier) int {
	if len(tiers) == 0 {
		return 1
	}
	lowest := tiers[0].MinQuantity
	for _, t := range tiers[1:] {
		if t.MinQuantity < lowest {
			lowest = t.MinQuantity
		}
	}
	if lowest < 1 {
		return 1
	}
	return lowest
}

// List returns the base products visible to the viewer, matching the cached
// filter, sorting and limit configuration. The publish window is filtered in
// SQL; protected and guest-only rules need the viewer's groups and are
// checked in code, like in VisibleSiblings.
func (s *Store) List(viewer models.Viewer, filters map[string]requestcache.Filter, sortings requestcache.SortingList, limit requestcache.Limit) ([]*models.Product, error) {
	now := time.Now()
	query, args := listQuery(now, filters, sortings, limit)

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		if p, err = s.withType(p); err != nil {
			return nil, err
		}
		if !p.IsVisibleTo(viewer, now) {
			continue
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// listQuery assembles the listing statement: base products inside their
// publish window, restricted by the cached filters.
func listQuery(now time.Time, filters map[string]requestcache.Filter, sortings requestcache.SortingList, limit requestcache.Limit) (string, []interface{}) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE pid = 0 AND published = 1
		  AND (start IS NULL OR start < ?)
		  AND (stop IS NULL OR stop > ?)`
	args := []interface{}{now, now}

	if where, whereArgs := requestcache.BuildWhere(filters, resolveListColumn); where != "" {
		query += " AND " + where
		args = append(args, whereArgs...)
	}

	orderBy := ""
	for _, sorting := range sortings {
		column, ok := resolveListColumn(sorting.Name)
		if !ok {
			continue
		}
		if orderBy != "" {
			orderBy += ", "
		}
		orderBy += column + " " + sorting.Sort.SQLDirection()
	}
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	query += limit.SQLClause()

	return query, args
}

// resolveListColumn whitelists the attributes a cached filter or sorting
// may touch. Anything else would allow SQL injection through the column
// name, so unknown attributes are dropped.
func resolveListColumn(attribute string) (string, bool) {
	switch attribute {
	case "name", "alias", "sku", "description", "price":
		return attribute, true
	case "":
		return "", false
	default:
		// Free-form attributes live in the JSON column.
		return "JSON_UNQUOTE(JSON_EXTRACT(attributes, '$." + sanitizeJSONPath(attribute) + "'))", true
	}
}

func sanitizeJSONPath(attribute string) string {
	out := make([]rune, 0, len(attribute))
	for _, r := range attribute {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
	}
	return string(out)
}

func (s *Store) withType(p *models.Product) (*models.Product, error) {
	pt, ok := s.Types.Get(p.TypeID)
	if !ok {
		return nil, fmt.Errorf("%w: product %d references type %d", ErrTypeNotFound, p.ID, p.TypeID)
	}
	p.Type = pt
	return p, nil
}

func (s *Store) findRow(id int64) (*models.Product, error) {
	row := s.DB.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p          models.Product
		inherit    []byte
		attributes []byte
		groups     []byte
	)

	err := row.Scan(
		&p.ID, &p.PID, &p.TypeID, &p.SKU, &p.Name, &p.Alias, &p.Description,
		&p.Price, &p.Fallback, &inherit, &attributes, &p.Published,
		&p.Start, &p.Stop, &p.Protected, &p.Guests, &groups,
	)
	if err != nil {
		return nil, err
	}

	if len(inherit) > 0 {
		json.Unmarshal(inherit, &p.Inherit)
	}
	if len(attributes) > 0 {
		json.Unmarshal(attributes, &p.Values)
	}
	if p.Values == nil {
		p.Values = map[string]string{}
	}
	if len(groups) > 0 {
		json.Unmarshal(groups, &p.Groups)
	}

	return &p, nil
}
