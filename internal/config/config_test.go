package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duty_roster_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const validConfig = `
databaseURL: postgres://localhost:5432/dutyroster
assignmentTypes:
  - id: evening
    category: Evening
    requiresSenior: true
    slotsPerDay: 1
    priority: 1
  - id: remote
    category: Remote
    slotsPerDay: 1
    priority: 2
    compTimeHours: 8
    compTimeRRule: "FREQ=WEEKLY;BYDAY=SA,SU"
    rules:
      - kind: preferredList
        priority: 0
        workerIds: [w1, w2]
`

func TestLoadFromPath_Valid(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, DefaultHorizonDays, cfg.HorizonDays)
	require.Len(t, cfg.AssignmentTypes, 2)
	assert.True(t, cfg.AssignmentTypes[0].RequiresSenior)
	assert.Equal(t, 8, cfg.AssignmentTypes[1].CompTimeHours)
	require.Len(t, cfg.AssignmentTypes[1].Rules, 1)
	assert.Equal(t, []string{"w1", "w2"}, cfg.AssignmentTypes[1].Rules[0].WorkerIDs)
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownCategory(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, `
databaseURL: postgres://localhost:5432/dutyroster
assignmentTypes:
  - id: night
    category: Night
    slotsPerDay: 1
`))
	assert.Error(t, err)
}

func TestValidate_RejectsBadRRule(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, `
databaseURL: postgres://localhost:5432/dutyroster
assignmentTypes:
  - id: remote
    category: Remote
    slotsPerDay: 1
    compTimeHours: 8
    compTimeRRule: "EVERY=WEEKEND"
`))
	assert.Error(t, err)
}

func TestValidate_RejectsPermanentWithoutWorker(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, `
databaseURL: postgres://localhost:5432/dutyroster
assignmentTypes:
  - id: remote
    category: Remote
    slotsPerDay: 1
    rules:
      - kind: permanent
        priority: 0
`))
	assert.Error(t, err)
}

func TestValidate_RejectsDuplicateTypeIDs(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, `
databaseURL: postgres://localhost:5432/dutyroster
assignmentTypes:
  - id: remote
    category: Remote
    slotsPerDay: 1
  - id: remote
    category: Remote
    slotsPerDay: 1
`))
	assert.Error(t, err)
}

func TestValidate_RejectsInvertedEffectiveWindow(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, `
databaseURL: postgres://localhost:5432/dutyroster
assignmentTypes:
  - id: remote
    category: Remote
    slotsPerDay: 1
    rules:
      - kind: generalPool
        effectiveFrom: "2024-06-30"
        effectiveTo: "2024-06-01"
`))
	assert.Error(t, err)
}
