// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package breach models breach records returned by the lookup proxy and
// classifies them into severity tiers for display.
package breach

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// PlaceholderLogo is the generic logo the proxy returns for breaches without
// a brand image.
const PlaceholderLogo = "https://logos.haveibeenpwned.com/List.png"

// DataClassPasswords is the data class that marks a password breach.
const DataClassPasswords = "Passwords"

// Breach is one data-breach event as returned by the lookup proxy.
type Breach struct { //nolint:govet // fieldalignment: field order follows the API
	Name               string   `json:"Name"`
	Title              string   `json:"Title"`
	Domain             string   `json:"Domain"`
	BreachDate         string   `json:"BreachDate"`
	AddedDate          string   `json:"AddedDate"`
	ModifiedDate       string   `json:"ModifiedDate"`
	PwnCount           int64    `json:"PwnCount"`
	Description        string   `json:"Description"`
	LogoPath           string   `json:"LogoPath"`
	DataClasses        []string `json:"DataClasses"`
	IsVerified         bool     `json:"IsVerified"`
	IsFabricated       bool     `json:"IsFabricated"`
	IsSensitive        bool     `json:"IsSensitive"`
	IsRetired          bool     `json:"IsRetired"`
	IsSpamList         bool     `json:"IsSpamList"`
	IsMalware          bool     `json:"IsMalware"`
	IsSubscriptionFree bool     `json:"IsSubscriptionFree"`
	IsStealerLog       bool     `json:"IsStealerLog"`
}

// HasDataClass reports whether name is among the compromised data classes.
func (b Breach) HasDataClass(name string) bool {
	return slices.Contains(b.DataClasses, name)
}

// DistinctDataClasses returns the number of distinct compromised data classes.
func (b Breach) DistinctDataClasses() int {
	return len(lo.Uniq(b.DataClasses))
}

// HasLogo reports whether the breach carries a brand logo.
func (b Breach) HasLogo() bool {
	return b.LogoPath != "" && b.LogoPath != PlaceholderLogo
}

// Date parses BreachDate. ok is false when the date is missing or malformed.
func (b Breach) Date() (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, b.BreachDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Website returns the https URL of the breached domain, or "" without one.
func (b Breach) Website() string {
	domain := strings.TrimSpace(b.Domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	host, _, _ := strings.Cut(domain, "/")
	if host == "" {
		return ""
	}
	return "https://" + host
}

// SortByDate returns a copy of breaches ordered newest first. Breaches with
// an unparsable date go last, keeping their relative order.
func SortByDate(breaches []Breach) []Breach {
	sorted := slices.Clone(breaches)
	slices.SortStableFunc(sorted, func(a, b Breach) int {
		ta, okA := a.Date()
		tb, okB := b.Date()
		switch {
		case okA && okB:
			return tb.Compare(ta)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// Find returns the breach with the given name.
func Find(breaches []Breach, name string) (Breach, bool) {
	return lo.Find(breaches, func(b Breach) bool {
		return strings.EqualFold(b.Name, name)
	})
}
