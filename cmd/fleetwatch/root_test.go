// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper clears the global Viper instance so state from one test cannot
// bleed into the next.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestRootCommand_Help(t *testing.T) {
	resetViper(t)
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "fleetwatch")
	assert.Contains(t, buf.String(), "start")
	assert.Contains(t, buf.String(), "sweep")
	assert.Contains(t, buf.String(), "status")
	assert.Contains(t, buf.String(), "version")
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	resetViper(t)
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "--config")
	assert.Contains(t, buf.String(), "--verbose")
}

func TestVersionCommand(t *testing.T) {
	resetViper(t)
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "fleetwatch")
}

func TestStartCommand_RequiresConfig(t *testing.T) {
	resetViper(t)
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"start", "--config", "/nonexistent/path.yaml"})

	err := root.Execute()
	assert.Error(t, err)
}

func TestSweepCommand_Help(t *testing.T) {
	resetViper(t)
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"sweep", "--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sweep")
}
