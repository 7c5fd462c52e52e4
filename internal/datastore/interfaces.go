// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trippieshadow66/Spotection/internal/conf"
)

// ErrNoDetections is returned by LatestDetection when a lot has no recorded
// cycles yet. Distinct from a valid zero-stall record.
var ErrNoDetections = errors.New("no detection results for lot")

// ErrLotNotFound is returned when a lot id does not exist in the registry.
var ErrLotNotFound = errors.New("lot not found")

// Interface abstracts the underlying database implementation and defines
// the operations used by the supervisor, the detect loops and the admin CLI.
type Interface interface {
	Open() error
	Close() error

	// detection history
	SaveDetection(result *DetectionResult) error
	LatestDetection(lotID uint) (DetectionResult, error)

	// lot registry
	CreateLot(lot *Lot) error
	GetLot(lotID uint) (Lot, error)
	GetAllLots() ([]Lot, error)
	UpdateLot(lot *Lot) error
	DeleteLot(lotID uint) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore based on the provided configuration.
func New(settings *conf.Settings) Interface {
	return &SQLiteStore{Settings: settings}
}

// SaveDetection inserts one per-cycle detection row. Each write is a single
// atomic insert; rows for different lots never block each other.
func (ds *DataStore) SaveDetection(result *DetectionResult) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	if err := ds.DB.Create(result).Error; err != nil {
		return fmt.Errorf("saving detection result for lot %d: %w", result.LotID, err)
	}
	return nil
}

// LatestDetection returns the most recent detection row for the lot, or
// ErrNoDetections when none has been recorded.
func (ds *DataStore) LatestDetection(lotID uint) (DetectionResult, error) {
	var result DetectionResult
	err := ds.DB.Where("lot_id = ?", lotID).Order("id DESC").First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DetectionResult{}, fmt.Errorf("%w: %d", ErrNoDetections, lotID)
		}
		return DetectionResult{}, fmt.Errorf("getting latest detection for lot %d: %w", lotID, err)
	}
	return result, nil
}

// CreateLot inserts a new lot into the registry.
func (ds *DataStore) CreateLot(lot *Lot) error {
	if err := ds.DB.Create(lot).Error; err != nil {
		return fmt.Errorf("creating lot %q: %w", lot.Name, err)
	}
	return nil
}

// GetLot retrieves a lot by its id.
func (ds *DataStore) GetLot(lotID uint) (Lot, error) {
	var lot Lot
	if err := ds.DB.First(&lot, lotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Lot{}, fmt.Errorf("%w: %d", ErrLotNotFound, lotID)
		}
		return Lot{}, fmt.Errorf("getting lot %d: %w", lotID, err)
	}
	return lot, nil
}

// GetAllLots returns every registered lot ordered by id.
func (ds *DataStore) GetAllLots() ([]Lot, error) {
	var lots []Lot
	if err := ds.DB.Order("id ASC").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	return lots, nil
}

// UpdateLot saves changes to an existing lot row.
func (ds *DataStore) UpdateLot(lot *Lot) error {
	if err := ds.DB.Save(lot).Error; err != nil {
		return fmt.Errorf("updating lot %d: %w", lot.ID, err)
	}
	return nil
}

// DeleteLot removes a lot and purges its detection history in one
// transaction.
func (ds *DataStore) DeleteLot(lotID uint) error {
	tx := ds.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("starting transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("lot_id = ?", lotID).Delete(&DetectionResult{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("purging detection history for lot %d: %w", lotID, err)
	}
	if err := tx.Delete(&Lot{}, lotID).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting lot %d: %w", lotID, err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// performAutoMigration runs GORM auto-migration for the application tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Lot{}, &DetectionResult{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}
	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
