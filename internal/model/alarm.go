package model

import "time"

// TimeLayout is the stored form of alarm times. Lexical order equals
// chronological order.
const TimeLayout = "2006-01-02 15:04:05"

// MaxLinkSlots is the number of fixed link annotation slots.
const MaxLinkSlots = 5

// Alarm is a pending one-off alarm.
type Alarm struct {
	ID   uint   `gorm:"primaryKey"`
	Time string `gorm:"column:time;type:text;not null;index"`
	Note string `gorm:"column:note;type:text"`
}

// TableName returns the table name for GORM.
func (Alarm) TableName() string {
	return "alarms"
}

// FireTime parses the stored time in loc.
func (a Alarm) FireTime(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, a.Time, loc)
}

// LinkSlot is one of the global title/url annotations attached to due alarms.
type LinkSlot struct {
	ID    uint   `gorm:"primaryKey"`
	Idx   int    `gorm:"column:idx;not null;uniqueIndex"`
	Title string `gorm:"column:title;type:text"`
	URL   string `gorm:"column:url;type:text"`
}

// TableName returns the table name for GORM.
func (LinkSlot) TableName() string {
	return "alarm_links"
}

// HistoryEntry records an alarm that fired or was removed.
type HistoryEntry struct {
	ID   uint   `gorm:"primaryKey"`
	Time string `gorm:"column:time;type:text;not null;index"`
	Note string `gorm:"column:note;type:text"`
}

// TableName returns the table name for GORM.
func (HistoryEntry) TableName() string {
	return "alarm_history"
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{&Alarm{}, &LinkSlot{}, &HistoryEntry{}}
}

// Link is the title/url content of one slot as entered by the user.
type Link struct {
	Title string
	URL   string
}
