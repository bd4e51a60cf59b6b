package dblog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		in   int
		want gormlogger.LogLevel
	}{
		{0, gormlogger.Silent},
		{1, gormlogger.Silent},
		{2, gormlogger.Error},
		{3, gormlogger.Warn},
		{4, gormlogger.Info},
		{9, gormlogger.Silent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.in), "level %d", tt.in)
	}
}

func TestLogModeCopies(t *testing.T) {
	base := New(1)
	derived := base.LogMode(gormlogger.Info)

	assert.Equal(t, gormlogger.Silent, base.LogLevel)
	assert.Equal(t, gormlogger.Info, derived.(*GormLogger).LogLevel)
}
