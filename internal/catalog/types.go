package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vitrineshop/storefront/internal/models"
)

// LoadTypes reads all product types and attribute definitions and resolves
// them into a registry. This runs once at startup; attributes are looked up
// from the registry afterwards, never from storage.
func LoadTypes(db *sql.DB) (*models.TypeRegistry, error) {
	defs, err := loadAttributes(db)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, name, attributes, variant_attributes,
		       has_advanced_prices, show_price_tiers, force_variant_options
		FROM product_types`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*models.ProductType
	for rows.Next() {
		var (
			id                                        int64
			name                                      string
			attrsJSON, variantAttrsJSON               []byte
			advancedPrices, priceTiers, forceVariants bool
		)
		if err := rows.Scan(&id, &name, &attrsJSON, &variantAttrsJSON, &advancedPrices, &priceTiers, &forceVariants); err != nil {
			return nil, err
		}

		var attrs, variantAttrs []string
		if len(attrsJSON) > 0 {
			if err := json.Unmarshal(attrsJSON, &attrs); err != nil {
				return nil, fmt.Errorf("product type %d: bad attributes: %w", id, err)
			}
		}
		if len(variantAttrsJSON) > 0 {
			if err := json.Unmarshal(variantAttrsJSON, &variantAttrs); err != nil {
				return nil, fmt.Errorf("product type %d: bad variant attributes: %w", id, err)
			}
		}

		pt, err := models.NewProductType(id, name, attrs, variantAttrs, defs)
		if err != nil {
			return nil, err
		}
		pt.HasAdvancedPrices = advancedPrices
		pt.ShowPriceTiers = priceTiers
		pt.ForceVariantOptions = forceVariants
		types = append(types, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return models.NewTypeRegistry(types...), nil
}

func loadAttributes(db *sql.DB) ([]*models.Attribute, error) {
	rows, err := db.Query(`
		SELECT name, label, widget, mandatory, variant_option,
		       customer_defined, can_have_prices, ajax_option, rgxp, options
		FROM attributes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.Attribute
	for rows.Next() {
		var (
			attr        models.Attribute
			optionsJSON []byte
		)
		if err := rows.Scan(
			&attr.Name, &attr.Label, &attr.Widget, &attr.Mandatory,
			&attr.VariantOption, &attr.CustomerDefined, &attr.CanHavePrices,
			&attr.AjaxOption, &attr.Rgxp, &optionsJSON,
		); err != nil {
			return nil, err
		}
		if len(optionsJSON) > 0 {
			if err := json.Unmarshal(optionsJSON, &attr.Options); err != nil {
				return nil, fmt.Errorf("attribute %q: bad options: %w", attr.Name, err)
			}
		}
		defs = append(defs, &attr)
	}
	return defs, rows.Err()
}
