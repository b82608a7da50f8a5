package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootRejectsArguments(t *testing.T) {
	rootCmd.SetArgs([]string{"vless://uuid@example.com:443"})
	defer rootCmd.SetArgs([]string{})

	err := Execute(context.Background())
	assert.Error(t, err)
}

func TestRootInterruptIsNotAnError(t *testing.T) {
	rootCmd.SetArgs([]string{})
	defer rootCmd.SetArgs([]string{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, Execute(ctx))
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "xray-ip-diag", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.False(t, rootCmd.HasSubCommands())
}
