package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJob(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadJob(t *testing.T) {
	path := writeJob(t, `
title: Morning notes
body: |
  First paragraph.

  Second paragraph.
tags: [daily, notes]
`)

	job, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "Morning notes", job.Title)
	assert.Contains(t, job.Body, "Second paragraph.")
	assert.Equal(t, []string{"daily", "notes"}, job.Tags)
}

func TestLoadJobRequiresTitleAndBody(t *testing.T) {
	_, err := LoadJob(writeJob(t, "body: text"))
	assert.ErrorContains(t, err, "title is required")

	_, err = LoadJob(writeJob(t, "title: only a title"))
	assert.ErrorContains(t, err, "body is required")
}

func TestLoadJobMissingFile(t *testing.T) {
	_, err := LoadJob(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
