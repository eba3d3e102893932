package models_test

import (
	"github.com/subtrackd/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestConnectInvalidPath() {
	err := models.Connect("/this/path/does/not/exist/gorm.db")
	assert.NotNil(suite.T(), err)
}

func (suite *TestSuiteStandard) TestConnectSeedsOnce() {
	// SetupTest already connected, a reconnect must not duplicate the
	// seeded categories
	sqlDB, err := models.DB.DB()
	require.Nil(suite.T(), err)
	sqlDB.Close()

	require.Nil(suite.T(), models.Connect(suite.dbPath))

	var count int64
	require.Nil(suite.T(), models.DB.Model(&models.Category{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(5), count)
}
