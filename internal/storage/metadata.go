package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MetadataFileName is the name metadata payloads are stored under.
const MetadataFileName = "metadata.json"

// MetadataRecord describes a minted travel proof. Its Image always points at a
// payload that was uploaded first.
type MetadataRecord struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	Location    string             `json:"location"`
	Date        string             `json:"date"`
	Category    string             `json:"category"`
	Attributes  MetadataAttributes `json:"attributes"`
}

// MetadataAttributes carries the verification data.
type MetadataAttributes struct {
	VerificationScore int   `json:"verificationScore"`
	Timestamp         int64 `json:"timestamp"` // unix milliseconds
}

// MetadataFields are the form values a record is built from.
type MetadataFields struct {
	Name              string
	Description       string
	Location          string
	Date              string
	Category          string
	VerificationScore int
}

// NewMetadataRecord builds a record whose image references a completed upload.
func NewMetadataRecord(image UploadResult, fields MetadataFields, now time.Time) (MetadataRecord, error) {
	if image.URL == "" {
		return MetadataRecord{}, &ValidationError{
			Kind:    KindInvalidMetadata,
			Message: "metadata requires a completed image upload",
		}
	}

	record := MetadataRecord{
		Name:        fields.Name,
		Description: fields.Description,
		Image:       image.URL,
		Location:    fields.Location,
		Date:        fields.Date,
		Category:    fields.Category,
		Attributes: MetadataAttributes{
			VerificationScore: fields.VerificationScore,
			Timestamp:         now.UnixMilli(),
		},
	}
	if err := record.Validate(); err != nil {
		return MetadataRecord{}, err
	}
	return record, nil
}

// Validate checks the record before it is uploaded.
func (r MetadataRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Kind: KindInvalidMetadata, Message: "metadata name is required"}
	}
	if strings.TrimSpace(r.Image) == "" {
		return &ValidationError{Kind: KindInvalidMetadata, Message: "metadata image is required"}
	}
	if s := r.Attributes.VerificationScore; s < 0 || s > 100 {
		return &ValidationError{
			Kind:    KindInvalidMetadata,
			Message: fmt.Sprintf("verification score must be between 0 and 100, got %d", s),
		}
	}
	return nil
}

// Encode returns the canonical JSON form: two-space indented, field order as declared.
func (r MetadataRecord) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// UploadRequest wraps the encoded record as a metadata.json file.
func (r MetadataRecord) UploadRequest() (UploadRequest, error) {
	if err := r.Validate(); err != nil {
		return UploadRequest{}, err
	}
	payload, err := r.Encode()
	if err != nil {
		return UploadRequest{}, fmt.Errorf("encode metadata: %w", err)
	}
	return UploadRequest{
		Payload:     payload,
		FileName:    MetadataFileName,
		ContentType: "application/json",
	}, nil
}

// PinName is the label hash-pinning backends attach to the record.
func (r MetadataRecord) PinName() string {
	return r.Name + "-metadata"
}
