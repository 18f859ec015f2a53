package models

type HealthItemName string

const (
	StorageHealthItemName  HealthItemName = "storage"
	WorkflowHealthItemName HealthItemName = "workflow"
)

type HealthItemStatus struct {
	Name   HealthItemName
	Status bool
}

type HealthStatus struct {
	Statuses []HealthItemStatus
}

func (l HealthStatus) IsHealthy() bool {
	for _, status := range l.Statuses {
		if !status.Status {
			return false
		}
	}
	return true
}

func (l HealthStatus) ItemStatus(name HealthItemName) bool {
	for _, status := range l.Statuses {
		if status.Name == name {
			return status.Status
		}
	}
	return false
}
