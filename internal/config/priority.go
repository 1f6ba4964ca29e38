package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// priorityPrices maps a task priority to its limit price in dollars per
// GPU-hour.
var priorityPrices = map[string]float64{
	"critical": 14.99,
	"high":     12.29,
	"standard": 4.24,
	"low":      2.00,
}

// DefaultPriority is used when a task does not set one.
const DefaultPriority = "standard"

// Priorities returns the valid priority names in ascending price order.
func Priorities() []string {
	names := make([]string, 0, len(priorityPrices))
	for name := range priorityPrices {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return priorityPrices[names[i]] < priorityPrices[names[j]]
	})
	return names
}

// ValidPriority reports whether name is a recognized priority level.
// Matching is case-insensitive.
func ValidPriority(name string) bool {
	_, ok := priorityPrices[strings.ToLower(name)]
	return ok
}

// PriorityPriceCents returns the limit price in cents for a priority level.
func PriorityPriceCents(priority string) (int, error) {
	price, ok := priorityPrices[strings.ToLower(priority)]
	if !ok {
		return 0, fmt.Errorf("invalid or unsupported priority level: %s", priority)
	}
	return DollarsToCents(price), nil
}

// DollarsToCents converts a dollar amount to whole cents, rounding to the
// nearest cent.
func DollarsToCents(dollars float64) int {
	return int(math.Round(dollars * 100))
}
