package entity

import "time"

// ImportRecord marks a CUFE as successfully imported. Created once, never mutated.
type ImportRecord struct {
	ID         int64     `json:"id"`
	CUFE       string    `json:"cufe"`
	SessionID  string    `json:"sessionId"`
	ImportedAt time.Time `json:"importedAt"`
}

// DuplicateInfo is the result of a prior-import lookup
type DuplicateInfo struct {
	IsImported     bool       `json:"isImported"`
	ImportRecordID int64      `json:"importRecordId,omitempty"`
	SessionID      string     `json:"sessionId,omitempty"`
	ImportedAt     *time.Time `json:"importedAt,omitempty"`
}

// StoreMatch is a read-only projection of a known merchant
type StoreMatch struct {
	StoreID    string `json:"storeId"`
	StoreName  string `json:"storeName"`
	IsVerified bool   `json:"isVerified"`
}

// Store is a merchant directory entry keyed by tax ID
type Store struct {
	ID         string    `json:"id"`
	TaxID      string    `json:"taxId"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}
