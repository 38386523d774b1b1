package events

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const msgZipcodeFilter = "Zip code filter must be numeric"

// Filter narrows a query over unclaimed events. Empty fields impose no
// constraint; string fields match as case-sensitive substrings.
type Filter struct {
	Title       string
	Description string
	Address     string

	// Zipcode is the five digit form of the requested integer zipcode.
	Zipcode string
	// NoMatch is set when the requested zipcode can never equal a stored one.
	NoMatch bool
}

// ParseFilter reads title, description, address and zipcode from query
// parameters. A zipcode that is not an integer is a client error.
func ParseFilter(query url.Values) (Filter, error) {
	f := Filter{
		Title:       query.Get("title"),
		Description: query.Get("description"),
		Address:     query.Get("address"),
	}

	raw := strings.TrimSpace(query.Get("zipcode"))
	if raw == "" {
		return f, nil
	}
	zipcode, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		// numeric, but far longer than any zipcode
		f.NoMatch = true
		return f, nil
	}
	if err != nil {
		return Filter{}, invalid(msgZipcodeFilter)
	}
	if zipcode < 0 || zipcode > 99999 {
		f.NoMatch = true
		return f, nil
	}
	f.Zipcode = fmt.Sprintf("%05d", zipcode)
	return f, nil
}

// Contains lists the substring constraints that are present, keyed by column.
func (f Filter) Contains() map[string]string {
	out := make(map[string]string, 3)
	if f.Title != "" {
		out["title"] = f.Title
	}
	if f.Description != "" {
		out["description"] = f.Description
	}
	if f.Address != "" {
		out["address"] = f.Address
	}
	return out
}
