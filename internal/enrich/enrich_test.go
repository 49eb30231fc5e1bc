package enrich

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akiyascout/server/internal/database"
	"akiyascout/server/internal/models"
	"akiyascout/server/internal/queue"
)

func setupHooks(t *testing.T) (*database.Database, *Hooks, *queue.TaskQueue) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	// Workers are not started: tasks stay queued for inspection.
	tasks := queue.NewTaskQueue(16, logger)
	hooks := NewHooks(db, tasks, NewTranslator(""), nil, NewImageStore(""), logger)
	return db, hooks, tasks
}

func TestPropertyCreatedPersistsScore(t *testing.T) {
	db, hooks, _ := setupHooks(t)

	prop := &models.Property{
		AddressJa:       "東京都新宿区1-2-3",
		PrefectureCode:  "13",
		PriceJPY:        900_000,
		LandAreaSqm:     f64(100),
		RebuildPossible: boolp(true),
		Status:          models.StatusActive,
	}
	require.NoError(t, db.GetDB().Create(prop).Error)

	hooks.PropertyCreated(db.GetDB(), prop)

	var score models.PropertyScore
	require.NoError(t, db.GetDB().First(&score, "property_id = ?", prop.ID).Error)
	assert.Equal(t, float64(95), score.ValueScore)
	assert.Equal(t, float64(80), score.RebuildScore)
	assert.Greater(t, score.CompositeScore, 0.0)
}

func TestPropertyCreatedSkipsUnavailableHooks(t *testing.T) {
	db, hooks, tasks := setupHooks(t)

	prop := &models.Property{
		AddressJa:     "東京都新宿区1-2-3",
		DescriptionJa: "古民家です",
		Status:        models.StatusActive,
	}
	require.NoError(t, db.GetDB().Create(prop).Error)

	// No translator key, no geocoder, no image dir: nothing to enqueue.
	hooks.PropertyCreated(db.GetDB(), prop)
	assert.Equal(t, 0, tasks.Len())
}

func TestHandleTaskSkipsInvisibleProperty(t *testing.T) {
	_, hooks, _ := setupHooks(t)

	// A property id whose batch has not committed yet resolves to nothing;
	// the task is dropped without error.
	err := hooks.handleTask(queue.Task{Kind: queue.TaskGeocode, PropertyID: 424242})
	assert.NoError(t, err)
}

func TestTranslatorAvailability(t *testing.T) {
	assert.False(t, NewTranslator("").IsAvailable())
	assert.True(t, NewTranslator("key").IsAvailable())
}

func TestImageStoreAvailability(t *testing.T) {
	assert.False(t, NewImageStore("").IsAvailable())
	assert.True(t, NewImageStore(t.TempDir()).IsAvailable())
}
