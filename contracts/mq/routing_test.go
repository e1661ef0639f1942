package mq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionOf(t *testing.T) {
	assert.Equal(t, CollectionProjects, CollectionOf(ProjectStatusChanged))
	assert.Equal(t, CollectionPayments, CollectionOf(PaymentOverdue))
	assert.Equal(t, CollectionTasks, CollectionOf(TaskChanged))
	assert.Equal(t, CollectionClients, CollectionOf(ClientChanged))
	assert.Equal(t, "", CollectionOf("mail.received"))
}
