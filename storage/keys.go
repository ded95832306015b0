package storage

import (
	"fmt"
	"time"
)

// PlanKey is the object key of an adventure plan document.
func PlanKey(settingID, planID string) string {
	return fmt.Sprintf("settings/%s/%s.json", settingID, planID)
}

// PlanBackupKey is the object key of a timestamped plan backup.
func PlanBackupKey(settingID, planID string, at time.Time) string {
	return fmt.Sprintf("settings/%s/backups/%s-%d.json", settingID, planID, at.UnixMilli())
}

// SettingKey is the object key of a setting's world data document.
func SettingKey(settingID string) string {
	return fmt.Sprintf("settings/%s/setting-data.json", settingID)
}

// SettingBackupKey is the object key of a timestamped setting backup.
func SettingBackupKey(settingID string, at time.Time) string {
	return fmt.Sprintf("settings/%s/backups/setting-data-%d.json", settingID, at.UnixMilli())
}

// CharacterKey is the object key of a user's character template.
func CharacterKey(userID, slug string) string {
	return fmt.Sprintf("characters/%s/%s.json", userID, slug)
}
