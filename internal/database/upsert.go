package database

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"akiyascout/server/internal/models"
)

// UpsertFromRaw persists one region-resolved raw listing inside tx, which is
// expected to be a savepoint scope owned by the caller. (source, listing id)
// is the dedup key: a hit updates the existing canonical listing in place,
// a miss creates a listing and, unless an existing property matches the
// normalized address exactly, a property row.
//
// Returns whether a new property was created and the affected property id.
func UpsertFromRaw(tx *gorm.DB, raw *models.RawListing, prefectureCode string, now time.Time) (bool, int64, error) {
	var rawJSON string
	if raw.Raw != nil {
		if data, err := json.Marshal(raw.Raw); err == nil {
			rawJSON = string(data)
		}
	}

	var existing models.Listing
	err := tx.Where("source_id = ? AND source_listing_id = ?",
		raw.Source, raw.SourceListingID).First(&existing).Error
	if err == nil {
		// Last write wins on mutable fields; the key itself never changes.
		existing.RawJSON = rawJSON
		existing.LastSeenAt = now
		existing.Status = models.StatusActive
		if raw.SourceURL != "" {
			existing.SourceURL = raw.SourceURL
		}
		if err := tx.Save(&existing).Error; err != nil {
			return false, 0, err
		}

		var prop models.Property
		if err := tx.First(&prop, "id = ?", existing.PropertyID).Error; err == nil {
			applyRawToProperty(&prop, raw, prefectureCode, now)
			if err := tx.Save(&prop).Error; err != nil {
				return false, 0, err
			}
		}
		return false, existing.PropertyID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, 0, err
	}

	// Same-address reuse is the only cross-source match performed here;
	// fuzzy matching is a downstream concern.
	prop, err := findPropertyByAddress(tx, raw.Address)
	if err != nil {
		return false, 0, err
	}

	createdProperty := false
	if prop == nil {
		prop = &models.Property{
			AddressJa: raw.Address,
			Status:    models.StatusActive,
		}
		if prop.AddressJa == "" {
			prop.AddressJa = "Unknown"
		}
		createdProperty = true
	}
	applyRawToProperty(prop, raw, prefectureCode, now)
	if err := tx.Save(prop).Error; err != nil {
		return false, 0, err
	}

	listing := models.Listing{
		PropertyID:      prop.ID,
		SourceID:        raw.Source,
		SourceListingID: raw.SourceListingID,
		SourceURL:       raw.SourceURL,
		RawJSON:         rawJSON,
		Status:          models.StatusActive,
		FirstSeenAt:     now,
		LastSeenAt:      now,
	}
	if err := tx.Create(&listing).Error; err != nil {
		return false, 0, err
	}

	if createdProperty {
		for i, url := range raw.ImageURLs {
			img := models.PropertyImage{
				PropertyID:  prop.ID,
				StoragePath: url,
				SortOrder:   i,
			}
			if err := tx.Create(&img).Error; err != nil {
				return false, 0, err
			}
		}
	}

	return createdProperty, prop.ID, nil
}

func findPropertyByAddress(tx *gorm.DB, address string) (*models.Property, error) {
	if address == "" || address == "Unknown" {
		return nil, nil
	}
	var prop models.Property
	err := tx.Where("address_ja = ?", address).First(&prop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prop, nil
}

func applyRawToProperty(prop *models.Property, raw *models.RawListing, prefectureCode string, now time.Time) {
	if raw.Price != nil {
		prop.PriceJPY = *raw.Price
	}
	if raw.Address != "" {
		prop.AddressJa = raw.Address
	}
	if prefectureCode != "" {
		prop.PrefectureCode = prefectureCode
	}
	if raw.Municipality != "" {
		prop.MunicipalityCode = raw.Municipality
	}
	if raw.LandAreaSqm != nil {
		prop.LandAreaSqm = raw.LandAreaSqm
	}
	if raw.BuildingAreaSqm != nil {
		prop.BuildingAreaSqm = raw.BuildingAreaSqm
	}
	if raw.FloorPlan != "" {
		prop.FloorPlan = raw.FloorPlan
	}
	if raw.YearBuilt != nil {
		prop.YearBuilt = raw.YearBuilt
	}
	if raw.Structure != "" {
		prop.Structure = raw.Structure
	}
	if raw.Floors != nil {
		prop.Floors = raw.Floors
	}
	if raw.RoadWidthM != nil {
		prop.RoadWidthM = raw.RoadWidthM
	}
	if raw.RebuildPossible != nil {
		prop.RebuildPossible = raw.RebuildPossible
	}
	if raw.UseZone != "" {
		prop.UseZone = raw.UseZone
	}
	if raw.Latitude != nil && raw.Longitude != nil {
		prop.Latitude = raw.Latitude
		prop.Longitude = raw.Longitude
	}
	if desc, ok := raw.Raw["description"].(string); ok && desc != "" {
		prop.DescriptionJa = desc
	}

	// Derived field degrades to unknown when inputs are absent or zero
	if prop.PriceJPY > 0 && prop.LandAreaSqm != nil && *prop.LandAreaSqm > 0 {
		ppsm := float64(prop.PriceJPY) / *prop.LandAreaSqm
		prop.PricePerSqm = &ppsm
	}

	prop.Status = models.StatusActive
	prop.UpdatedAt = now
}
