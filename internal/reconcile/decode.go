package reconcile

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
)

// Raw feed rows are dictionaries whose key spelling differs per endpoint and
// per export. Each field lists its aliases in priority order; the first alias
// present with a non-nil value wins.
type fieldAliases struct {
	field   string
	aliases []string
}

var (
	keyAliases = []fieldAliases{
		{"supplier_article", []string{"supplierArticle", "supplier_article", "article", "vendorCode", "sa_name"}},
		{"nm_id", []string{"nmId", "nm_id", "nmID", "nm"}},
	}
	remainsAliases = withKey(
		fieldAliases{"warehouse", []string{"warehouseName", "warehouse_name", "warehouse"}},
		fieldAliases{"quantity", []string{"quantity", "qty", "stock"}},
		fieldAliases{"warehouses", []string{"warehouses"}},
	)
	orderAliases = withKey(
		fieldAliases{"warehouse", []string{"warehouseName", "warehouse_name", "warehouse"}},
		fieldAliases{"type", []string{"warehouseType", "warehouse_type", "type", "fulfillment_type"}},
		fieldAliases{"cancelled", []string{"isCancel", "is_cancel", "cancelled", "canceled"}},
		fieldAliases{"order_id", []string{"srid", "order_id", "orderId", "id"}},
		fieldAliases{"quantity", []string{"quantity", "qty"}},
		fieldAliases{"date", []string{"date", "lastChangeDate", "last_change_date", "order_date"}},
	)
	totalsAliases = withKey(
		fieldAliases{"stock", []string{"stock", "total_stock", "quantity", "quantityFull", "stocks"}},
		fieldAliases{"orders", []string{"orders", "ordersCount", "orders_count", "total_orders"}},
	)
)

var keySanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "")

func normalizeKeyName(name string) string {
	return keySanitizer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

func withKey(fields ...fieldAliases) []fieldAliases {
	out := make([]fieldAliases, 0, len(keyAliases)+len(fields))
	out = append(out, keyAliases...)
	return append(out, fields...)
}

// Intermediate row shapes decoded by mapstructure.
type rawRemains struct {
	SupplierArticle string        `mapstructure:"supplier_article"`
	NmID            int64         `mapstructure:"nm_id"`
	Warehouse       *string       `mapstructure:"warehouse"`
	Quantity        *int          `mapstructure:"quantity"`
	Warehouses      []interface{} `mapstructure:"warehouses"`
}

type rawOrder struct {
	SupplierArticle string    `mapstructure:"supplier_article"`
	NmID            int64     `mapstructure:"nm_id"`
	Warehouse       *string   `mapstructure:"warehouse"`
	Type            string    `mapstructure:"type"`
	Cancelled       bool      `mapstructure:"cancelled"`
	OrderID         string    `mapstructure:"order_id"`
	Quantity        int       `mapstructure:"quantity"`
	Date            time.Time `mapstructure:"date"`
}

type rawTotals struct {
	SupplierArticle string `mapstructure:"supplier_article"`
	NmID            int64  `mapstructure:"nm_id"`
	Stock           *int   `mapstructure:"stock"`
	Orders          *int   `mapstructure:"orders"`
}

// Decoder turns dictionary-shaped feed rows into typed records. Malformed
// rows are logged and counted, never fatal.
type Decoder struct {
	log zerolog.Logger
}

func NewDecoder(log *zerolog.Logger) *Decoder {
	return &Decoder{log: loggerOrDefault(log).With().Str("component", "decoder").Logger()}
}

// DecodeRemains decodes raw remains rows with the default logger.
func DecodeRemains(raw interface{}) ([]domain.RemainsRecord, int, error) {
	return NewDecoder(nil).Remains(raw)
}

// DecodeOrders decodes raw order rows with the default logger.
func DecodeOrders(raw interface{}) ([]domain.OrderRecord, int, error) {
	return NewDecoder(nil).Orders(raw)
}

// DecodeTotals decodes raw totals rows with the default logger.
func DecodeTotals(raw interface{}) ([]domain.TotalsRecord, int, error) {
	return NewDecoder(nil).Totals(raw)
}

// Remains decodes the detailed remains feed. A row may carry a nested
// "warehouses" list, which expands into one record per entry.
func (d *Decoder) Remains(raw interface{}) ([]domain.RemainsRecord, int, error) {
	rows, err := toRows("remains", raw)
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.RemainsRecord, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		if row == nil {
			skipped++
			d.log.Warn().Int("row", i).Msg("remains row is not an object, skipped")
			continue
		}
		var r rawRemains
		if err := decodeRow(canonicalRow(row, remainsAliases), &r); err != nil {
			skipped++
			d.log.Warn().Err(err).Int("row", i).Msg("malformed remains row, skipped")
			continue
		}
		key := domain.ProductKey{SupplierArticle: strings.TrimSpace(r.SupplierArticle), NmID: r.NmID}
		if !validKey(key) {
			skipped++
			d.log.Warn().Int("row", i).Msg("remains row missing product key, skipped")
			continue
		}

		if len(r.Warehouses) > 0 {
			for j, w := range r.Warehouses {
				m, ok := w.(map[string]interface{})
				if !ok {
					skipped++
					d.log.Warn().Int("row", i).Int("entry", j).Msg("warehouse entry is not an object, skipped")
					continue
				}
				var nested rawRemains
				if err := decodeRow(canonicalRow(m, remainsAliases), &nested); err != nil || nested.Warehouse == nil || nested.Quantity == nil {
					skipped++
					d.log.Warn().Err(err).Int("row", i).Int("entry", j).Msg("malformed warehouse entry, skipped")
					continue
				}
				out = append(out, domain.RemainsRecord{Key: key, Warehouse: *nested.Warehouse, Quantity: *nested.Quantity})
			}
			continue
		}

		if r.Warehouse == nil || r.Quantity == nil {
			skipped++
			d.log.Warn().Int("row", i).Str("product", key.String()).Msg("remains row missing warehouse or quantity, skipped")
			continue
		}
		out = append(out, domain.RemainsRecord{Key: key, Warehouse: *r.Warehouse, Quantity: *r.Quantity})
	}
	return out, skipped, nil
}

// Orders decodes the orders feed.
func (d *Decoder) Orders(raw interface{}) ([]domain.OrderRecord, int, error) {
	rows, err := toRows("orders", raw)
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.OrderRecord, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		if row == nil {
			skipped++
			d.log.Warn().Int("row", i).Msg("order row is not an object, skipped")
			continue
		}
		var r rawOrder
		if err := decodeRow(canonicalRow(row, orderAliases), &r); err != nil {
			skipped++
			d.log.Warn().Err(err).Int("row", i).Msg("malformed order row, skipped")
			continue
		}
		key := domain.ProductKey{SupplierArticle: strings.TrimSpace(r.SupplierArticle), NmID: r.NmID}
		if !validKey(key) || r.Warehouse == nil {
			skipped++
			d.log.Warn().Int("row", i).Str("order_id", r.OrderID).Msg("order row missing product key or warehouse, skipped")
			continue
		}
		typ, _ := domain.ParseFulfillmentType(r.Type)
		out = append(out, domain.OrderRecord{
			Key:       key,
			Warehouse: *r.Warehouse,
			Type:      typ,
			Cancelled: r.Cancelled,
			OrderID:   strings.TrimSpace(r.OrderID),
			Quantity:  r.Quantity,
			Date:      r.Date,
		})
	}
	return out, skipped, nil
}

// Totals decodes the aggregate-only feed.
func (d *Decoder) Totals(raw interface{}) ([]domain.TotalsRecord, int, error) {
	rows, err := toRows("totals", raw)
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.TotalsRecord, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		if row == nil {
			skipped++
			d.log.Warn().Int("row", i).Msg("totals row is not an object, skipped")
			continue
		}
		var r rawTotals
		if err := decodeRow(canonicalRow(row, totalsAliases), &r); err != nil {
			skipped++
			d.log.Warn().Err(err).Int("row", i).Msg("malformed totals row, skipped")
			continue
		}
		key := domain.ProductKey{SupplierArticle: strings.TrimSpace(r.SupplierArticle), NmID: r.NmID}
		if !validKey(key) || r.Stock == nil {
			skipped++
			d.log.Warn().Int("row", i).Msg("totals row missing product key or stock, skipped")
			continue
		}
		out = append(out, domain.TotalsRecord{Key: key, Stock: *r.Stock, Orders: r.Orders})
	}
	return out, skipped, nil
}

// toRows accepts nil (no rows), []map[string]interface{} or []interface{}.
// Non-object elements come back as nil rows so callers can count them.
func toRows(feed string, raw interface{}) ([]map[string]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []map[string]interface{}:
		return v, nil
	case []interface{}:
		rows := make([]map[string]interface{}, len(v))
		for i, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				rows[i] = m
			}
		}
		return rows, nil
	default:
		return nil, newCalculationError(feed, fmt.Sprintf("expected a sequence of records, got %T", raw), nil)
	}
}

func canonicalRow(row map[string]interface{}, fields []fieldAliases) map[string]interface{} {
	// Keys that normalize to the same spelling resolve to the lexically
	// smallest raw key with a non-nil value.
	raw := make([]string, 0, len(row))
	for k := range row {
		raw = append(raw, k)
	}
	sort.Strings(raw)
	normalized := make(map[string]interface{}, len(row))
	for _, k := range raw {
		v := row[k]
		if v == nil {
			continue
		}
		n := normalizeKeyName(k)
		if _, taken := normalized[n]; !taken {
			normalized[n] = v
		}
	}

	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		for _, a := range f.aliases {
			if v, ok := row[a]; ok && v != nil {
				out[f.field] = v
				break
			}
			if v, ok := normalized[normalizeKeyName(a)]; ok {
				out[f.field] = v
				break
			}
		}
	}
	return out
}

func decodeRow(row map[string]interface{}, target interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(feedTimeHook),
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(row)
}

var feedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
}

var timeType = reflect.TypeOf(time.Time{})

func feedTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, nil
		}
		for _, layout := range feedTimeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unrecognised date %q", v)
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	}
	return data, nil
}
