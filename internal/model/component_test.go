package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassifyWear_Screw(t *testing.T) {
	nominal := d("100.00")

	cases := []struct {
		name     string
		measured string
		expected ComponentStatus
	}{
		{"no deviation", "100.00", ComponentStatusOptimal},
		{"just below warning", "100.39", ComponentStatusOptimal},
		{"warning lower bound", "100.40", ComponentStatusWarning},
		{"mid warning band", "100.45", ComponentStatusWarning},
		{"nitriding lower bound", "100.50", ComponentStatusNeedsNitriding},
		{"nitriding upper bound", "100.60", ComponentStatusNeedsNitriding},
		{"regeneration band", "100.61", ComponentStatusNeedsRegeneration},
		{"regeneration upper bound", "101.00", ComponentStatusNeedsRegeneration},
		{"past regeneration", "101.20", ComponentStatusCritical},
		{"undersize counts as deviation", "98.80", ComponentStatusCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyWear(ComponentTypeScrew, nominal, d(tc.measured)))
		})
	}
}

func TestClassifyWear_Barrel(t *testing.T) {
	nominal := d("120.00")

	cases := []struct {
		name     string
		measured string
		expected ComponentStatus
	}{
		{"no deviation", "120.00", ComponentStatusOptimal},
		{"just below to-order", "120.69", ComponentStatusOptimal},
		{"to-order lower bound", "120.70", ComponentStatusToOrder},
		{"to-order mid band", "120.75", ComponentStatusToOrder},
		{"to-order upper bound", "120.80", ComponentStatusToOrder},
		{"past to-order", "120.81", ComponentStatusCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyWear(ComponentTypeBarrel, nominal, d(tc.measured)))
		})
	}
}

func TestWorkOrderHelpers(t *testing.T) {
	wo := WorkOrder{Status: WorkOrderStatusClosed}
	assert.True(t, wo.IsTerminal())

	wo.Status = WorkOrderStatusInProgress
	assert.False(t, wo.IsTerminal())

	wo.LaborLogs = []LaborLog{{Hours: 2.5}, {Hours: 4}}
	assert.InDelta(t, 6.5, wo.TotalLaborHours(), 0.001)

	wo.Checklist = []ChecklistItem{{Completed: true}, {Completed: false}}
	assert.False(t, wo.ChecklistComplete())

	wo.Checklist[1].Completed = true
	assert.True(t, wo.ChecklistComplete())

	// No checklist means nothing blocks completion
	wo.Checklist = nil
	assert.True(t, wo.ChecklistComplete())
}
