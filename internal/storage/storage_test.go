package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terraproof/service/internal/transport"
)

func TestValidateFile(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")

	require.NoError(t, ValidateFile(UploadRequest{Payload: png, ContentType: "image/png"}, true))
	require.NoError(t, ValidateFile(UploadRequest{Payload: []byte("{}"), ContentType: "application/json"}, false))

	err := ValidateFile(UploadRequest{ContentType: "image/png"}, true)
	requireKind(t, err, KindEmptyPayload)

	err = ValidateFile(UploadRequest{Payload: []byte("text"), ContentType: "text/plain"}, true)
	requireKind(t, err, KindContentType)

	err = ValidateFile(UploadRequest{Payload: bytes.Repeat([]byte{1}, MaxUploadBytes+1), ContentType: "image/png"}, true)
	requireKind(t, err, KindTooLarge)
	require.Contains(t, err.Error(), "max 10MB")
}

func TestValidateSizeBoundary(t *testing.T) {
	require.NoError(t, ValidateSize(MaxUploadBytes))
	require.Error(t, ValidateSize(MaxUploadBytes+1))
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.Equal(t, "image/jpeg", DetectContentType("image/jpeg", png))
	require.Equal(t, "image/png", DetectContentType("", png))
	require.Equal(t, "image/png", DetectContentType("application/octet-stream", png))
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend(" Walrus ")
	require.NoError(t, err)
	require.Equal(t, BackendWalrus, b)

	_, err = ParseBackend("s3")
	var configErr *ConfigurationError
	require.True(t, errors.As(err, &configErr))
}

func TestNewMetadataRecordReferencesImage(t *testing.T) {
	image := UploadResult{ID: "bafy", URL: "https://gateway.example/ipfs/bafy", Size: 10, Backend: BackendIPFS}
	now := time.UnixMilli(1700000000123)

	record, err := NewMetadataRecord(image, MetadataFields{
		Name:              "Bali Beach",
		Description:       "Sunset",
		Location:          "Bali",
		Date:              "2024-05-01",
		Category:          "beach",
		VerificationScore: 92,
	}, now)
	require.NoError(t, err)
	require.Equal(t, image.URL, record.Image)
	require.EqualValues(t, 1700000000123, record.Attributes.Timestamp)
	require.Equal(t, "Bali Beach-metadata", record.PinName())

	req, err := record.UploadRequest()
	require.NoError(t, err)
	require.Equal(t, MetadataFileName, req.FileName)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(req.Payload, &decoded))
	require.Equal(t, image.URL, decoded["image"])
	require.Contains(t, string(req.Payload), "\n  \"name\": \"Bali Beach\"")
}

func TestNewMetadataRecordRejects(t *testing.T) {
	_, err := NewMetadataRecord(UploadResult{}, MetadataFields{Name: "x"}, time.Now())
	requireKind(t, err, KindInvalidMetadata)

	image := UploadResult{URL: "https://x"}
	_, err = NewMetadataRecord(image, MetadataFields{Name: "x", VerificationScore: 101}, time.Now())
	requireKind(t, err, KindInvalidMetadata)

	_, err = NewMetadataRecord(image, MetadataFields{VerificationScore: 50}, time.Now())
	requireKind(t, err, KindInvalidMetadata)
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ValidationError{Kind: KindTooLarge}, MessageTooLarge},
		{&ValidationError{Kind: KindContentType}, MessageContentType},
		{&ValidationError{Kind: KindEmptyPayload}, MessageEmptyPayload},
		{&ConfigurationError{Backend: BackendIPFS, Message: "keys missing"}, MessageNotConfigured},
		{&transport.TimeoutError{After: time.Second}, MessageTimeout},
		{fmt.Errorf("wrapped: %w", &transport.NetworkError{Err: errors.New("refused")}), MessageNetwork},
		{&transport.HTTPError{StatusCode: 502}, "Upload failed with status 502. Please try again."},
		{errors.New("mystery"), MessageUnknown},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, UserMessage(tc.err))
	}
	require.Empty(t, UserMessage(nil))
}

func requireKind(t *testing.T, err error, kind ValidationKind) {
	t.Helper()
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "expected validation error, got %v", err)
	require.Equal(t, kind, validationErr.Kind)
}
