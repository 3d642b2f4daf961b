package database

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm/schema"

	"career-counselor/internal/model"
)

func TestMessageContentColumnHoldsLongReplies(t *testing.T) {
	s, err := schema.Parse(&model.Message{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	field := s.LookUpField("Content")
	require.NotNil(t, field)

	assert.Equal(t, "mediumtext", mysql.New(mysql.Config{}).DataTypeOf(field))
	assert.Equal(t, "text", postgres.New(postgres.Config{}).DataTypeOf(field))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), "oracle", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}
