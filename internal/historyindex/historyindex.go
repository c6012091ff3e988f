// Package historyindex mirrors pushed and discarded undo actions, plus
// Layer 1 processing records, into a local SQLite database so callers can
// query which actions used a given model without scanning the JSON action
// log linearly. The JSON files under history/ remain authoritative; the index
// is rebuilt from them whenever it is missing or its row count diverges
// from the log's length.
package historyindex

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nuevaaudio/nueva-engine/internal/nerrors"
	"github.com/nuevaaudio/nueva-engine/internal/undo"
)

// ActionRow is one indexed undo action.
type ActionRow struct {
	ID          string `gorm:"primaryKey"`
	ActionType  string `gorm:"index"`
	Description string
	Timestamp   time.Time `gorm:"index"`
	Discarded   bool      `gorm:"index"`
}

// Layer1Row indexes one point in time a project's Layer 1 was marked
// processed, so "what did model X touch" queries don't need to parse
// project.json snapshots.
type Layer1Row struct {
	ID        uint `gorm:"primaryKey"`
	ActionID  string `gorm:"index"`
	Model     string `gorm:"index"`
	Prompt    string
	Timestamp time.Time `gorm:"index"`
}

// Index wraps the SQLite connection backing one project's history index.
type Index struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the index database at dbPath and
// ensures its schema is current.
func Open(dbPath string) (*Index, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nerrors.New(nerrors.KindGeneric, err).Context("path", dbPath).Build()
	}
	if err := db.AutoMigrate(&ActionRow{}, &Layer1Row{}); err != nil {
		return nil, nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return &Index{db: db}, nil
}

// Close releases the underlying SQLite connection.
func (ix *Index) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return sqlDB.Close()
}

// RowCount reports how many action rows are currently indexed, including
// rows marked discarded, for the staleness check against the JSON action
// log's length.
func (ix *Index) RowCount() (int64, error) {
	var count int64
	if err := ix.db.Model(&ActionRow{}).Count(&count).Error; err != nil {
		return 0, nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return count, nil
}

// NeedsRebuild reports whether the index's row count diverges from the
// authoritative JSON action log's length.
func (ix *Index) NeedsRebuild(actionLogLen int) (bool, error) {
	count, err := ix.RowCount()
	if err != nil {
		return false, err
	}
	return count != int64(actionLogLen), nil
}

// Rebuild truncates the index and reinserts every action from the
// authoritative action log, flagging discarded IDs.
func (ix *Index) Rebuild(actions []undo.Action, discardedIDs []string) error {
	discarded := make(map[string]bool, len(discardedIDs))
	for _, id := range discardedIDs {
		discarded[id] = true
	}

	return ix.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM action_rows").Error; err != nil {
			return err
		}
		for _, a := range actions {
			row := ActionRow{
				ID:          a.ID,
				ActionType:  string(a.Type),
				Description: a.Description,
				Timestamp:   a.Timestamp,
				Discarded:   discarded[a.ID],
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordLayer1 indexes one Layer 1 processing event alongside the action
// that recorded it, so "what has model X touched" can be answered with a
// single indexed query instead of a linear JSON scan.
func (ix *Index) RecordLayer1(actionID, model, prompt string, at time.Time) error {
	row := Layer1Row{ActionID: actionID, Model: model, Prompt: prompt, Timestamp: at}
	if err := ix.db.Create(&row).Error; err != nil {
		return nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return nil
}

// ActionsForModel returns every indexed action associated with Layer 1
// processing by the given model.
func (ix *Index) ActionsForModel(model string) ([]ActionRow, error) {
	var layer1Rows []Layer1Row
	if err := ix.db.Where("model = ?", model).Find(&layer1Rows).Error; err != nil {
		return nil, nerrors.New(nerrors.KindGeneric, err).Build()
	}
	ids := make([]string, len(layer1Rows))
	for i, r := range layer1Rows {
		ids[i] = r.ActionID
	}

	var rows []ActionRow
	if len(ids) == 0 {
		return rows, nil
	}
	if err := ix.db.Where("id IN ?", ids).Order("timestamp").Find(&rows).Error; err != nil {
		return nil, nerrors.New(nerrors.KindGeneric, err).Build()
	}
	return rows, nil
}
