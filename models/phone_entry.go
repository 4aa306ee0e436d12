// File: medichat/models/phone_entry.go
package models

import "time"

// PhoneEntry is a cached number-check result. Positive results live longer
// than negative ones: numbers rarely gain or lose an account, but a negative
// result may simply mean the patient had not registered yet.
type PhoneEntry struct {
	Phone      string    `json:"phone"`
	HasAccount bool      `json:"hasAccount"`
	CheckedBy  string    `json:"checkedBy"`
	CheckCount int       `json:"checkCount"`
	CheckedAt  time.Time `json:"checkedAt"`
}
