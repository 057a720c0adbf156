package db

import "time"

// ShareRecord is a row in media_shares.
type ShareRecord struct {
	ID            string    `json:"id"`
	HostID        string    `json:"host_id"`
	Platform      string    `json:"platform"`
	MediaType     string    `json:"media_type"`
	Path          string    `json:"path"`
	SizeBytes     int64     `json:"size_bytes"`
	Caption       string    `json:"caption"`
	AttachmentURL string    `json:"attachment_url"`
	HasSticker    bool      `json:"has_sticker"`
	Created       time.Time `json:"created"`
}

// VerificationRecord is a row in phone_verifications.
type VerificationRecord struct {
	PhoneID     string    `json:"phone_id"`
	VerifyID    string    `json:"verify_id"`
	HostID      string    `json:"host_id"`
	PhoneNumber string    `json:"phone_number"`
	Region      string    `json:"region"`
	Created     time.Time `json:"created"`
}
