package store

import (
	"errors"
	"fmt"

	"github.com/pathakanu/myAlarm/internal/model"
	"gorm.io/gorm"
)

// ErrSlotOutOfRange is returned when a link slot index is outside [0, MaxLinkSlots).
var ErrSlotOutOfRange = errors.New("link slot index out of range")

// StorageError reports a failed read or write against the database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Store persists pending alarms, link slots and history rows.
// Every method commits on its own.
type Store struct {
	db *gorm.DB
}

// New wraps an open GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Init ensures the alarm tables exist. Safe to call repeatedly.
func (s *Store) Init() error {
	return wrap("init", s.db.AutoMigrate(model.All()...))
}

// InsertAlarm appends a pending alarm and returns its generated id.
func (s *Store) InsertAlarm(fireTime, note string) (uint, error) {
	alarm := &model.Alarm{Time: fireTime, Note: note}
	if err := s.db.Create(alarm).Error; err != nil {
		return 0, wrap("insert alarm", err)
	}
	return alarm.ID, nil
}

// GetAlarm fetches a pending alarm. A missing id reports found=false without error.
func (s *Store) GetAlarm(id uint) (model.Alarm, bool, error) {
	var alarms []model.Alarm
	if err := s.db.Where("id = ?", id).Limit(1).Find(&alarms).Error; err != nil {
		return model.Alarm{}, false, wrap("get alarm", err)
	}
	if len(alarms) == 0 {
		return model.Alarm{}, false, nil
	}
	return alarms[0], true, nil
}

// ListAlarms returns pending alarms by fire time, ties by id.
func (s *Store) ListAlarms() ([]model.Alarm, error) {
	var alarms []model.Alarm
	if err := s.db.Order("time ASC, id ASC").Find(&alarms).Error; err != nil {
		return nil, wrap("list alarms", err)
	}
	return alarms, nil
}

// ListDue returns pending alarms whose time is at or before now, by fire time then id.
func (s *Store) ListDue(now string) ([]model.Alarm, error) {
	var alarms []model.Alarm
	if err := s.db.Where("time <= ?", now).
		Order("time ASC, id ASC").
		Find(&alarms).Error; err != nil {
		return nil, wrap("list due", err)
	}
	return alarms, nil
}

// DeleteAlarm removes a pending alarm. Deleting a missing id is a no-op.
func (s *Store) DeleteAlarm(id uint) error {
	return wrap("delete alarm", s.db.Delete(&model.Alarm{}, id).Error)
}

// InsertAlarmWithLinks appends a pending alarm and replaces the link slots in
// one transaction. Nothing is written when either step fails.
func (s *Store) InsertAlarmWithLinks(fireTime, note string, slots []model.LinkSlot) (uint, error) {
	if err := checkSlots(slots); err != nil {
		return 0, err
	}

	alarm := &model.Alarm{Time: fireTime, Note: note}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(alarm).Error; err != nil {
			return err
		}
		return replaceLinks(tx, slots)
	})
	if err != nil {
		return 0, wrap("insert alarm", err)
	}
	return alarm.ID, nil
}

// ReplaceLinks clears every link row and stores the slots that carry a url.
func (s *Store) ReplaceLinks(slots []model.LinkSlot) error {
	if err := checkSlots(slots); err != nil {
		return err
	}
	return wrap("replace links", s.db.Transaction(func(tx *gorm.DB) error {
		return replaceLinks(tx, slots)
	}))
}

func checkSlots(slots []model.LinkSlot) error {
	for _, slot := range slots {
		if slot.Idx < 0 || slot.Idx >= model.MaxLinkSlots {
			return fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot.Idx)
		}
	}
	return nil
}

func replaceLinks(tx *gorm.DB, slots []model.LinkSlot) error {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.LinkSlot{}).Error; err != nil {
		return err
	}
	for _, slot := range slots {
		if slot.URL == "" {
			continue
		}
		row := model.LinkSlot{Idx: slot.Idx, Title: slot.Title, URL: slot.URL}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListLinks returns the saved link slots by slot index.
func (s *Store) ListLinks() ([]model.LinkSlot, error) {
	var links []model.LinkSlot
	if err := s.db.Order("idx ASC").Find(&links).Error; err != nil {
		return nil, wrap("list links", err)
	}
	return links, nil
}

// AppendHistory writes an immutable history row.
func (s *Store) AppendHistory(fireTime, note string) error {
	entry := &model.HistoryEntry{Time: fireTime, Note: note}
	return wrap("append history", s.db.Create(entry).Error)
}

// ListHistory returns history rows, most recent fire time first.
func (s *Store) ListHistory() ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	if err := s.db.Order("time DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, wrap("list history", err)
	}
	return entries, nil
}

// ArchiveAlarm moves a pending alarm into history in a single transaction.
// It reports archived=false when the alarm is no longer pending, in which case
// nothing is written.
func (s *Store) ArchiveAlarm(alarm model.Alarm) (bool, error) {
	archived := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Alarm{}, alarm.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(&model.HistoryEntry{Time: alarm.Time, Note: alarm.Note}).Error; err != nil {
			return err
		}
		archived = true
		return nil
	})
	if err != nil {
		return false, wrap("archive alarm", err)
	}
	return archived, nil
}
