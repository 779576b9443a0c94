// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type rawListing struct {
	VIN             string          `json:"VIN"`
	Model           string          `json:"Model"`
	TrimName        string          `json:"TrimName"`
	Paint           rawCode         `json:"PAINT"`
	Interior        rawCode         `json:"INTERIOR"`
	Price           decimal.Decimal `json:"Price"`
	Year            rawInt          `json:"Year"`
	MetroName       string          `json:"MetroName"`
	TotalRange      rawInt          `json:"TotalRange"`
	InventoryStatus string          `json:"InventoryStatus"`
	ETA             rawString       `json:"ETA"`
	OptionCodeList  rawStrings      `json:"OptionCodeList"`
}

// rawCode accepts `{"Code":"X"}`, `["X", ...]` or `"X"`.
type rawCode string

func (v *rawCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			Code string `json:"Code"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*v = rawCode(obj.Code)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		if len(list) > 0 {
			*v = rawCode(list[0])
		}
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = rawCode(s)
	}
	return nil
}

// rawInt accepts json numbers and numeric strings.
type rawInt int

func (v *rawInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if len(s) == 0 || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("could not parse %q as a number: %w", s, err)
	}
	*v = rawInt(f)
	return nil
}

// rawString accepts any json scalar and keeps its text.
type rawString string

func (v *rawString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = rawString(s)
		return nil
	}
	*v = rawString(data)
	return nil
}

// rawStrings accepts a json string array or a comma separated string.
type rawStrings []string

func (v *rawStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); len(f) != 0 {
			*v = append(*v, f)
		}
	}
	return nil
}

func (r *rawListing) listing() *Listing {
	eta := string(r.ETA)
	return &Listing{
		VIN:          r.VIN,
		Model:        r.Model,
		Trim:         r.TrimName,
		PaintCode:    string(r.Paint),
		InteriorCode: string(r.Interior),
		Price:        r.Price,
		Year:         int(r.Year),
		Location:     r.MetroName,
		Range:        int(r.TotalRange),
		Availability: ParseAvailability(r.InventoryStatus),
		DeliveryETA:  parseETA(eta),
		RawETA:       eta,
		OptionCodes:  []string(r.OptionCodeList),
	}
}

// ParseResponse decodes an inventory api response body into listings. The
// results field is either a plain array or an object holding exact and
// approximate matches, of which only the exact matches are used.
func ParseResponse(data []byte) ([]*Listing, error) {
	var resp struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ParseError{Err: err}
	}
	results := bytes.TrimSpace(resp.Results)
	if len(results) == 0 || bytes.Equal(results, []byte("null")) {
		return nil, nil
	}

	var raws []*rawListing
	switch results[0] {
	case '[':
		if err := json.Unmarshal(results, &raws); err != nil {
			return nil, &ParseError{Err: err}
		}
	case '{':
		var split struct {
			Exact []*rawListing `json:"exact"`
		}
		if err := json.Unmarshal(results, &split); err != nil {
			return nil, &ParseError{Err: err}
		}
		raws = split.Exact
	default:
		return nil, &ParseError{Err: fmt.Errorf("unexpected results value %.32q", results)}
	}

	listings := make([]*Listing, 0, len(raws))
	for _, raw := range raws {
		if raw == nil || len(raw.VIN) == 0 {
			continue
		}
		listings = append(listings, raw.listing())
	}
	return listings, nil
}
