package mq

// Routing keys published on the paytrack.events exchange.
const (
	ProjectCreated       = "project.created"
	ProjectUpdated       = "project.updated"
	ProjectDeleted       = "project.deleted"
	ProjectStatusChanged = "project.status_changed"

	PaymentCreated = "payment.created"
	PaymentPaid    = "payment.paid"
	PaymentDeleted = "payment.deleted"
	PaymentOverdue = "payment.overdue"

	TaskChanged   = "task.changed"
	ClientChanged = "client.changed"
)

// Change-feed collections.
const (
	CollectionProjects = "projects"
	CollectionPayments = "payments"
	CollectionTasks    = "tasks"
	CollectionClients  = "clients"
)

// CollectionOf maps a routing key to the collection it changes.
func CollectionOf(routingKey string) string {
	switch routingKey {
	case ProjectCreated, ProjectUpdated, ProjectDeleted, ProjectStatusChanged:
		return CollectionProjects
	case PaymentCreated, PaymentPaid, PaymentDeleted, PaymentOverdue:
		return CollectionPayments
	case TaskChanged:
		return CollectionTasks
	case ClientChanged:
		return CollectionClients
	}
	return ""
}
