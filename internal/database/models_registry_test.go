package database

import (
	"testing"

	"isintu/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_CoversDomainTables(t *testing.T) {
	var hasPostLike, hasNotification bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.PostLike:
			hasPostLike = true
		case *models.Notification:
			hasNotification = true
		}
	}
	assert.True(t, hasPostLike, "PersistentModels should include PostLike")
	assert.True(t, hasNotification, "PersistentModels should include Notification")
	assert.Len(t, PersistentModels(), 7)
}
