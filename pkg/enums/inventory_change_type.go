package enums

import "fmt"

// InventoryChangeType classifies an inventory ledger entry.
type InventoryChangeType string

const (
	InventoryChangeTypeManual     InventoryChangeType = "manual"
	InventoryChangeTypeOrder      InventoryChangeType = "order"
	InventoryChangeTypeReturn     InventoryChangeType = "return"
	InventoryChangeTypeAdjustment InventoryChangeType = "adjustment"
	InventoryChangeTypeSync       InventoryChangeType = "sync"
)

var validInventoryChangeTypes = []InventoryChangeType{
	InventoryChangeTypeManual,
	InventoryChangeTypeOrder,
	InventoryChangeTypeReturn,
	InventoryChangeTypeAdjustment,
	InventoryChangeTypeSync,
}

// String implements fmt.Stringer.
func (i InventoryChangeType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryChangeType.
func (i InventoryChangeType) IsValid() bool {
	for _, candidate := range validInventoryChangeTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryChangeType converts raw input into a InventoryChangeType.
func ParseInventoryChangeType(value string) (InventoryChangeType, error) {
	for _, candidate := range validInventoryChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory change type %q", value)
}
