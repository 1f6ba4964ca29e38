package ui

import (
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/foundrycloud/flow/internal/platform/foundry"
)

const (
	// maxRows bounds how many entries each table shows.
	maxRows = 5

	missingValue = "N/A"
)

// RenderBids renders the project's bids as a table.
func RenderBids(bids []foundry.Bid) string {
	if len(bids) == 0 {
		return emptyStyle.Render("No bids found.")
	}

	t := newTable("Name", "Type", "Quantity", "Created", "Status")
	for _, b := range truncate(bids) {
		quantity := missingValue
		if b.InstanceQuantity > 0 {
			quantity = strconv.Itoa(b.InstanceQuantity)
		}
		t.Row(
			orMissing(b.Name),
			orMissing(b.InstanceTypeID),
			quantity,
			orMissing(b.CreatedAt),
			orMissing(b.Status),
		)
	}
	return titleStyle.Render("Current Bids") + "\n" + t.Render()
}

// RenderInstances renders instances as a table, newest first.
func RenderInstances(instances []foundry.Instance) string {
	if len(instances) == 0 {
		return emptyStyle.Render("No instances found.")
	}

	sorted := make([]foundry.Instance, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool {
		return startDate(sorted[i]).After(startDate(sorted[j]))
	})

	t := newTable("Name", "Type", "Status", "Created", "IP Address", "Category")
	for _, inst := range truncate(sorted) {
		created := missingValue
		if inst.StartDate != nil {
			created = inst.StartDate.Format("2006-01-02 15:04:05")
		}
		ip := inst.IPAddress
		if ip == "" {
			ip = "..."
		}
		t.Row(
			orMissing(inst.Name),
			orMissing(inst.InstanceTypeID),
			orMissing(inst.InstanceStatus),
			created,
			ip,
			orMissing(inst.Category),
		)
	}
	return titleStyle.Render("Current Instances") + "\n" + t.Render()
}

// RenderStatus renders the bid and instance tables together.
func RenderStatus(bids []foundry.Bid, instances []foundry.Instance) string {
	return RenderBids(bids) + "\n\n" + RenderInstances(instances)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == len(headers)-1:
				return accentCellStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...)
}

func truncate[T any](items []T) []T {
	if len(items) > maxRows {
		return items[:maxRows]
	}
	return items
}

func orMissing(v string) string {
	if v == "" {
		return missingValue
	}
	return v
}

func startDate(inst foundry.Instance) time.Time {
	if inst.StartDate == nil {
		return time.Time{}
	}
	return *inst.StartDate
}
