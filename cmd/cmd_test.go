package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRootCommandHasSubcommands 测试根命令注册了全部子命令
func TestRootCommandHasSubcommands(t *testing.T) {
	root := GetRootCmd()
	require.NotNil(t, root)
	assert.Equal(t, "contract-generator", root.Use)

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["server"])
	assert.True(t, names["migrate"])
	assert.True(t, names["cleanup"])
}

// TestCleanupCommandFlags 测试清理命令的标志默认值
func TestCleanupCommandFlags(t *testing.T) {
	days, err := cleanupCmd.Flags().GetInt("days")
	require.NoError(t, err)
	assert.Equal(t, 30, days)
}
