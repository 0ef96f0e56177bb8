package main

import (
	"encoding/json"
	"strings"
	"testing"

	"postcouncil/internal/campaign"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressModel(t *testing.T) {
	var m tea.Model = newProgressModel()
	assert.Contains(t, m.View(), "0/0 units")

	m, cmd := m.Update(unitDoneMsg{done: 1, total: 4})
	assert.Nil(t, cmd)
	m, _ = m.Update(unitDoneMsg{done: 2, total: 4, failed: true})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, maxBarWidth, m.(progressModel).bar.Width)

	view := m.View()
	assert.Contains(t, view, "2/4 units")
	assert.Contains(t, view, "(1 failed)")
	assert.Contains(t, view, "50%")

	m, cmd = m.Update(activationDoneMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, strings.HasSuffix(m.View(), "\n"))
}

func TestActivateWithProgress(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out, err := env.run(nil, "activate", "--campaign", "spring-launch", "--progress", "--json")
	require.NoError(t, err)

	var summary campaign.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.PostsTriggered)
	assert.Equal(t, "manual", summary.Trigger)
}
