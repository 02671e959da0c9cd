package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawInventoryRecord is the untrusted record shape arriving from the
// inventory snapshot blob. Upstream mixes snake_case and camelCase key
// conventions, no two records are guaranteed to share a key set, and
// numeric fields may arrive as strings. Decoding is lenient: unknown keys
// are ignored and malformed values degrade to the zero value.
type RawInventoryRecord struct {
	SKUKey            string
	ID                string
	Item              string
	Name              string
	Thickness         string
	Size              string
	Material          string
	Maker             string
	FinalPrice        *float64
	UnitPrice         *float64
	LocationStock     map[string]int
	Location          string
	SecondaryLocation string
	PrimaryQty        *int
	SecondaryQty      *int
	LegacyQty         *int
	StockStatus       string
	MarkingWaitQty    *int
}

// UnmarshalJSON decodes a raw record from either naming convention.
// The first key present wins within each alias group.
func (r *RawInventoryRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.SKUKey = rawString(fields, "sku_key", "skuKey")
	r.ID = rawString(fields, "id")
	r.Item = rawString(fields, "item", "item_name", "itemName")
	r.Name = rawString(fields, "name")
	r.Thickness = rawString(fields, "thickness")
	r.Size = rawString(fields, "size")
	r.Material = rawString(fields, "material")
	r.Maker = rawString(fields, "maker")
	r.FinalPrice = rawNumber(fields, "final_price", "finalPrice")
	r.UnitPrice = rawNumber(fields, "unit_price", "unitPrice", "price")
	r.LocationStock = rawIntMap(fields, "location_stock", "locationStock")
	r.Location = rawString(fields, "location")
	r.SecondaryLocation = rawString(fields, "location1")
	r.PrimaryQty = rawInt(fields, "ready_qty", "readyQty")
	r.SecondaryQty = rawInt(fields, "sh_qty", "shQty")
	r.LegacyQty = rawInt(fields, "stock", "qty", "quantity")
	r.StockStatus = rawString(fields, "stock_status", "stockStatus")
	r.MarkingWaitQty = rawInt(fields, "marking_wait_qty", "markingWaitQty")
	return nil
}

// DecodeInventorySnapshot parses a snapshot payload, accepting either a bare
// JSON array or an {"items": [...]} wrapper. The two shapes are equivalent.
func DecodeInventorySnapshot(data []byte) ([]RawInventoryRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Items []RawInventoryRecord `json:"items"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
			return nil, err
		}
		return wrapper.Items, nil
	}
	var records []RawInventoryRecord
	if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func rawString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err == nil {
			return strings.TrimSpace(value)
		}
		var number float64
		if err := json.Unmarshal(raw, &number); err == nil {
			return strconv.FormatFloat(number, 'f', -1, 64)
		}
	}
	return ""
}

func rawNumber(fields map[string]json.RawMessage, keys ...string) *float64 {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if value, ok := coerceNumber(raw); ok {
			return &value
		}
	}
	return nil
}

func rawInt(fields map[string]json.RawMessage, keys ...string) *int {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if value, ok := coerceNumber(raw); ok {
			n := int(value)
			return &n
		}
	}
	return nil
}

func rawIntMap(fields map[string]json.RawMessage, keys ...string) map[string]int {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		result := make(map[string]int, len(entries))
		for location, qty := range entries {
			name := strings.TrimSpace(location)
			if name == "" {
				continue
			}
			value, ok := coerceNumber(qty)
			if !ok {
				value = 0
			}
			result[name] = int(value)
		}
		return result
	}
	return nil
}

// coerceNumber accepts JSON numbers and numeric strings.
func coerceNumber(raw json.RawMessage) (float64, bool) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
