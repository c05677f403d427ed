package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"gorm.io/gorm"
)

// LoadCollectionHistory reads the current snapshot and the vehicle
// registry into an indexed history.
func LoadCollectionHistory(ctx context.Context) (*CollectionHistory, error) {
	db := config.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var records []CollectionRecord
	if err := db.WithContext(ctx).Order("vehicle_id, collection_date").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load collection records: %w", err)
	}

	var registered []string
	if err := db.WithContext(ctx).Model(&Vehicle{}).Order("vehicle_id").Pluck("vehicle_id", &registered).Error; err != nil {
		return nil, fmt.Errorf("load vehicle registry: %w", err)
	}

	return NewCollectionHistory(records, registered)
}

// ReplaceCollectionSnapshot swaps the full record set in one transaction
// and registers any vehicle ids not yet in the registry. The snapshot is
// replace-only: no incremental update, no deletion tracking.
func ReplaceCollectionSnapshot(ctx context.Context, records []CollectionRecord) error {
	// Validate before touching the table so a bad batch never leaves an
	// empty snapshot behind.
	if _, err := NewCollectionHistory(records, nil); err != nil {
		return err
	}

	db := config.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CollectionRecord{}).Error; err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
		if len(records) > 0 {
			// Strip ids so the insert never collides with the cleared rows.
			for i := range records {
				records[i].Id = 0
			}
			if err := tx.CreateInBatches(records, 500).Error; err != nil {
				return fmt.Errorf("insert snapshot: %w", err)
			}
		}

		seen := map[string]bool{}
		for _, r := range records {
			if seen[r.VehicleId] {
				continue
			}
			seen[r.VehicleId] = true
			if err := tx.Where(Vehicle{VehicleId: r.VehicleId}).
				FirstOrCreate(&Vehicle{VehicleId: r.VehicleId}).Error; err != nil {
				return fmt.Errorf("register vehicle %s: %w", r.VehicleId, err)
			}
		}
		return nil
	})
}
