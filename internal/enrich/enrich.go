package enrich

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"akiyascout/server/config"
	"akiyascout/server/internal/database"
	"akiyascout/server/internal/geocoding"
	"akiyascout/server/internal/models"
	"akiyascout/server/internal/queue"
)

// Hooks attaches optional value-add data to newly created properties. The
// scoring stub runs inline inside the record's transaction scope; the slow
// hooks (translation, geocoding, image transfer) are enqueued and run
// out-of-band. No hook failure ever affects the ingestion outcome.
type Hooks struct {
	db         *database.Database
	tasks      *queue.TaskQueue
	translator *Translator
	geocoder   *geocoding.Geocoder
	images     *ImageStore
	logger     *logrus.Logger
}

func NewHooks(
	db *database.Database,
	tasks *queue.TaskQueue,
	translator *Translator,
	geocoder *geocoding.Geocoder,
	images *ImageStore,
	logger *logrus.Logger,
) *Hooks {
	h := &Hooks{
		db:         db,
		tasks:      tasks,
		translator: translator,
		geocoder:   geocoder,
		images:     images,
		logger:     logger,
	}
	tasks.Subscribe(h.handleTask)
	return h
}

// Start launches the out-of-band enrichment workers.
func (h *Hooks) Start(workers int) {
	h.tasks.Start(workers)
}

func (h *Hooks) Stop() {
	h.tasks.Close()
}

// PropertyCreated fires every hook for a newly created property. tx is the
// record's transaction scope; the score write uses its own savepoint so a
// failure there cannot roll back the property itself.
func (h *Hooks) PropertyCreated(tx *gorm.DB, prop *models.Property) {
	score := ComputeScore(prop)
	err := tx.Transaction(func(inner *gorm.DB) error {
		return inner.Save(&score).Error
	})
	if err != nil {
		h.logger.WithError(err).WithField("property_id", prop.ID).
			Error("Scoring hook failed")
	}

	if h.translator != nil && h.translator.IsAvailable() && prop.DescriptionJa != "" {
		h.enqueue(queue.TaskTranslate, prop.ID)
	}
	if h.geocoder != nil && prop.Latitude == nil && prop.AddressJa != "" {
		h.enqueue(queue.TaskGeocode, prop.ID)
	}
	if h.images != nil && h.images.IsAvailable() {
		h.enqueue(queue.TaskImageTransfer, prop.ID)
	}
}

func (h *Hooks) enqueue(kind string, propertyID int64) {
	if err := h.tasks.Push(queue.Task{Kind: kind, PropertyID: propertyID}); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"kind":        kind,
			"property_id": propertyID,
		}).Warn("Dropped enrichment task")
	}
}

// handleTask runs one out-of-band enrichment task. The property may not be
// visible yet if its batch has not committed; that is treated as a skip, not
// an error. The task is not retried, so the enrichment is lost. Enrichment is
// best-effort and never blocks ingestion.
func (h *Hooks) handleTask(task queue.Task) error {
	prop, err := h.db.GetProperty(task.PropertyID)
	if err != nil {
		return err
	}
	if prop == nil {
		h.logger.WithField("property_id", task.PropertyID).
			Debug("Property not visible yet, skipping enrichment task")
		return nil
	}

	switch task.Kind {
	case queue.TaskTranslate:
		return h.translate(prop)
	case queue.TaskGeocode:
		return h.geocode(prop)
	case queue.TaskImageTransfer:
		return h.transferImages(prop)
	default:
		h.logger.WithField("kind", task.Kind).Warn("Unknown enrichment task kind")
		return nil
	}
}

func (h *Hooks) translate(prop *models.Property) error {
	if prop.DescriptionJa == "" || prop.DescriptionEn != "" {
		return nil
	}
	translated, err := h.translator.Translate(prop.DescriptionJa)
	if err != nil {
		return err
	}
	return h.db.GetDB().Model(prop).Update("description_en", translated).Error
}

func (h *Hooks) geocode(prop *models.Property) error {
	if prop.Latitude != nil || prop.AddressJa == "" || prop.AddressJa == "Unknown" {
		return nil
	}
	lat, lng, err := h.geocoder.GeocodeAddress(prop.AddressJa)
	if err != nil {
		return err
	}

	region := config.GetPrefectureByCode(prop.PrefectureCode)
	if !geocoding.PlausibleFor(lat, lng, region) {
		h.logger.WithFields(logrus.Fields{
			"property_id": prop.ID,
			"prefecture":  prop.PrefectureCode,
			"latitude":    lat,
			"longitude":   lng,
		}).Warn("Discarding implausible geocoding result")
		return nil
	}

	return h.db.GetDB().Model(prop).Updates(map[string]interface{}{
		"latitude":  lat,
		"longitude": lng,
	}).Error
}

func (h *Hooks) transferImages(prop *models.Property) error {
	var images []models.PropertyImage
	err := h.db.GetDB().
		Where("property_id = ? AND storage_path LIKE ?", prop.ID, "http%").
		Find(&images).Error
	if err != nil {
		return err
	}

	for i, img := range images {
		path, err := h.images.Transfer(img.StoragePath, prop.ID, i)
		if err != nil {
			// Keep the remote URL; the image stays reachable either way
			h.logger.WithError(err).WithFields(logrus.Fields{
				"property_id": prop.ID,
				"url":         truncate(img.StoragePath, 120),
			}).Warn("Image transfer failed")
			continue
		}
		if err := h.db.GetDB().Model(&img).Update("storage_path", path).Error; err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
