package entity

import "time"

// SystemSetting is a key/value pair editable by administrators
type SystemSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
