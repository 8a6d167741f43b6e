// Package nft mints and trades travel-proof NFTs. Files go through the upload
// facade first; chain access goes through a Signer and a ChainReader supplied
// by the caller.
package nft

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	pkgerrors "github.com/pkg/errors"

	"github.com/terraproof/service/internal/storage"
)

const (
	moduleName = "terra_proof_nft"
	structName = "TerraProofNFT"

	// MistPerSui is the number of MIST in one SUI.
	MistPerSui = 1_000_000_000
)

// Uploader is the part of the upload facade minting needs.
type Uploader interface {
	UploadFile(ctx context.Context, req storage.UploadRequest) (storage.UploadResult, error)
	UploadMetadata(ctx context.Context, record storage.MetadataRecord) (storage.UploadResult, error)
}

// MintParams are the form values for a new NFT.
type MintParams struct {
	Image             storage.UploadRequest
	Name              string
	Description       string
	Location          string
	Date              string
	Category          string
	Price             float64 // SUI
	VerificationScore int
}

// MintResult reports every artifact a mint produced.
type MintResult struct {
	Digest   string
	Image    storage.UploadResult
	Metadata storage.UploadResult
}

// Service builds and submits terra_proof_nft transactions.
type Service struct {
	packageID string
	uploader  Uploader
	signer    Signer
	reader    ChainReader
	logger    *log.Logger
	now       func() time.Time
}

// NewService creates a Service for the package published at packageID.
// reader may be nil when only transactions are needed.
func NewService(packageID string, uploader Uploader, signer Signer, reader ChainReader, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		packageID: packageID,
		uploader:  uploader,
		signer:    signer,
		reader:    reader,
		logger:    logger.With("component", "nft"),
		now:       time.Now,
	}
}

// ToMist converts a SUI amount to MIST, rounding down.
func ToMist(sui float64) (uint64, error) {
	if sui < 0 || math.IsNaN(sui) || math.IsInf(sui, 0) {
		return 0, &storage.ValidationError{Kind: storage.KindInvalidMetadata, Message: fmt.Sprintf("invalid price %v", sui)}
	}
	mist := math.Floor(sui * MistPerSui)
	if mist >= math.MaxUint64 {
		return 0, &storage.ValidationError{Kind: storage.KindInvalidMetadata, Message: fmt.Sprintf("price %v out of range", sui)}
	}
	return uint64(mist), nil
}

func (s *Service) target(function string) string {
	return s.packageID + "::" + moduleName + "::" + function
}

// StructType is the fully qualified NFT type.
func (s *Service) StructType() string {
	return s.target(structName)
}

func (p MintParams) validate() error {
	required := []struct{ field, value string }{
		{"name", p.Name},
		{"description", p.Description},
		{"location", p.Location},
		{"date", p.Date},
		{"category", p.Category},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &storage.ValidationError{Kind: storage.KindInvalidMetadata, Message: r.field + " is required"}
		}
	}
	if p.VerificationScore < 0 || p.VerificationScore > 100 {
		return &storage.ValidationError{
			Kind:    storage.KindInvalidMetadata,
			Message: fmt.Sprintf("verification score must be between 0 and 100, got %d", p.VerificationScore),
		}
	}
	_, err := ToMist(p.Price)
	return err
}

// Mint uploads the image, then metadata pointing at it, then submits the mint
// call. Each step starts only after the previous one succeeded.
func (s *Service) Mint(ctx context.Context, p MintParams) (MintResult, error) {
	if err := p.validate(); err != nil {
		return MintResult{}, err
	}
	price, _ := ToMist(p.Price)

	s.logger.Info("uploading image", "name", p.Image.FileName)
	img, err := s.uploader.UploadFile(ctx, p.Image)
	if err != nil {
		return MintResult{}, pkgerrors.Wrap(err, "upload image")
	}

	record, err := storage.NewMetadataRecord(img, storage.MetadataFields{
		Name:              p.Name,
		Description:       p.Description,
		Location:          p.Location,
		Date:              p.Date,
		Category:          p.Category,
		VerificationScore: p.VerificationScore,
	}, s.now())
	if err != nil {
		return MintResult{}, err
	}

	s.logger.Info("uploading metadata", "image", img.URL)
	meta, err := s.uploader.UploadMetadata(ctx, record)
	if err != nil {
		return MintResult{}, pkgerrors.Wrap(err, "upload metadata")
	}

	tx := &Transaction{}
	tx.MoveCall(s.target("mint"),
		Bytes(p.Name),
		Bytes(p.Description),
		Bytes(meta.URL),
		Bytes(p.Location),
		Bytes(p.Date),
		Bytes(p.Category),
		U64(price),
		U8(uint8(p.VerificationScore)),
	)

	s.logger.Info("submitting mint", "metadata", meta.URL, "price_mist", price)
	res, err := s.signer.SignAndExecute(ctx, tx)
	if err != nil {
		return MintResult{}, pkgerrors.Wrap(err, "mint")
	}
	s.logger.Info("minted", "digest", res.Digest, "backend", img.Backend)

	return MintResult{Digest: res.Digest, Image: img, Metadata: meta}, nil
}

// Buy pays price SUI from the gas coin to seller for nftID.
func (s *Service) Buy(ctx context.Context, nftID string, price float64, seller string) (string, error) {
	if nftID == "" || seller == "" {
		return "", &storage.ValidationError{Kind: storage.KindInvalidMetadata, Message: "nft id and seller are required"}
	}
	mist, err := ToMist(price)
	if err != nil {
		return "", err
	}

	tx := &Transaction{}
	coin := tx.SplitCoins(GasCoin{}, U64(mist))
	tx.MoveCall(s.target("buy_nft"), Object{ID: nftID}, coin, Address(seller))

	s.logger.Info("buying", "nft", nftID, "price_mist", mist)
	return s.execute(ctx, tx, "buy")
}

// List puts nftID up for sale at price SUI.
func (s *Service) List(ctx context.Context, nftID string, price float64) (string, error) {
	if nftID == "" {
		return "", &storage.ValidationError{Kind: storage.KindInvalidMetadata, Message: "nft id is required"}
	}
	mist, err := ToMist(price)
	if err != nil {
		return "", err
	}

	tx := &Transaction{}
	tx.MoveCall(s.target("list_for_sale"), Object{ID: nftID}, U64(mist))

	s.logger.Info("listing", "nft", nftID, "price_mist", mist)
	return s.execute(ctx, tx, "list")
}

func (s *Service) execute(ctx context.Context, tx *Transaction, action string) (string, error) {
	res, err := s.signer.SignAndExecute(ctx, tx)
	if err != nil {
		return "", pkgerrors.Wrap(err, action)
	}
	s.logger.Info("transaction confirmed", "action", action, "digest", res.Digest)
	return res.Digest, nil
}

// Details returns the NFT with content, owner and display.
func (s *Service) Details(ctx context.Context, nftID string) (ObjectData, error) {
	if s.reader == nil {
		return ObjectData{}, pkgerrors.New("no chain reader configured")
	}
	obj, err := s.reader.GetObject(ctx, nftID, ObjectOptions{ShowContent: true, ShowOwner: true, ShowDisplay: true})
	return obj, pkgerrors.Wrapf(err, "get object %s", nftID)
}

// Owned lists the NFTs of this package held by owner.
func (s *Service) Owned(ctx context.Context, owner string) ([]ObjectData, error) {
	if s.reader == nil {
		return nil, pkgerrors.New("no chain reader configured")
	}
	objs, err := s.reader.GetOwnedObjects(ctx, owner, s.StructType(), ObjectOptions{ShowContent: true, ShowDisplay: true})
	return objs, pkgerrors.Wrapf(err, "get objects owned by %s", owner)
}
