package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/service/stages"
)

// LinkServiceConfig groups the signing parameters.
type LinkServiceConfig struct {
	SigningKey string
	BaseURL    string
	LinkTTL    time.Duration
}

// LinkServiceOptions groups dependencies for LinkService.
type LinkServiceOptions struct {
	Jobs   core.JobStore
	Blobs  core.BlobStore
	Config LinkServiceConfig

	Logger       *slog.Logger
	TimeProvider data.TimeProvider
}

// LinkService stores stage artifacts and mints signed, expiring links to
// them. Links carry no stored deadline; expiry is computed from issued_at
// plus the configured TTL at verification time.
type LinkService struct {
	jobs  core.JobStore
	blobs core.BlobStore
	cfg   LinkServiceConfig

	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewLinkService constructs a LinkService.
func NewLinkService(opts LinkServiceOptions) *LinkService {
	if opts.Jobs == nil {
		panic("JobStore is required")
	}
	if opts.Blobs == nil {
		panic("BlobStore is required")
	}
	if opts.Config.SigningKey == "" {
		panic("signing key is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	return &LinkService{
		jobs:         opts.Jobs,
		blobs:        opts.Blobs,
		cfg:          opts.Config,
		logger:       logger,
		timeProvider: tp,
	}
}

// PublishArtifacts stores each artifact under <jobID>/<stage>/<name> and
// returns the signed asset links keyed by logical name. Uploads run
// concurrently; the first failure cancels the rest.
func (s *LinkService) PublishArtifacts(
	ctx context.Context,
	jobID string,
	stage model.Stage,
	artifacts []stages.Artifact,
) (map[string]model.AssetLink, error) {
	if len(artifacts) == 0 {
		return nil, nil
	}

	issuedAt := s.timeProvider.Now().UTC()
	assets := make(map[string]model.AssetLink, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	for _, artifact := range artifacts {
		if artifact.Name == "" {
			return nil, apperrors.Validation("artifact name is required")
		}
		path := fmt.Sprintf("%s/%s/%s", jobID, stage, artifact.Name)
		assets[artifact.Name] = s.link(path, issuedAt)

		g.Go(func() error {
			return s.blobs.Put(gctx, &model.StoredObject{
				Path:        path,
				ContentType: artifact.ContentType,
				Data:        artifact.Data,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("store artifacts: %w", err)
	}

	return assets, nil
}

// refreshAttempts bounds the CAS loop against a pathological refresh storm.
const refreshAttempts = 3

// Refresh re-signs every known asset of the job with a fresh issued_at,
// keeping object paths stable. The swap is guarded by the refresh counter,
// so concurrent refreshes each bump the counter exactly once.
func (s *LinkService) Refresh(ctx context.Context, jobID string) (*model.Job, error) {
	for attempt := 0; attempt < refreshAttempts; attempt++ {
		job, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("get job: %w", err)
		}
		if len(job.Assets) == 0 {
			return job, nil
		}

		issuedAt := s.timeProvider.Now().UTC()
		refreshed := make(map[string]model.AssetLink, len(job.Assets))
		for name, asset := range job.Assets {
			refreshed[name] = s.link(asset.ObjectPath, issuedAt)
		}

		ok, err := s.jobs.ReplaceAssets(ctx, jobID, refreshed, job.AssetsRefreshCount)
		if err != nil {
			return nil, fmt.Errorf("replace assets: %w", err)
		}
		if ok {
			return s.jobs.GetByID(ctx, jobID)
		}

		s.logger.DebugContext(ctx, "asset refresh lost the swap, retrying",
			"job_id", jobID,
			"expected_count", job.AssetsRefreshCount,
		)
	}

	return nil, apperrors.Conflict("asset refresh contention")
}

// Link mints a signed link for an object path issued now.
func (s *LinkService) Link(path string) model.AssetLink {
	return s.link(path, s.timeProvider.Now().UTC())
}

// VerifyLink checks a signed object read. It validates the signature over
// path + issued + nonce and that issued + TTL has not passed.
func (s *LinkService) VerifyLink(path string, issuedUnix int64, nonce, sig string) error {
	if path == "" || sig == "" {
		return apperrors.Validation("path and signature are required")
	}

	expected := s.sign(path, issuedUnix, nonce)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return apperrors.ValidationField("sig", "invalid signature")
	}

	issuedAt := time.Unix(issuedUnix, 0)
	if s.timeProvider.Now().After(issuedAt.Add(s.cfg.LinkTTL)) {
		return apperrors.ValidationField("issued", "link expired")
	}
	return nil
}

// link builds the signed URL for an object path at the given issue time.
// Every mint carries a fresh nonce inside the signed payload, so repeated
// refreshes produce distinct link values even within one clock tick.
func (s *LinkService) link(path string, issuedAt time.Time) model.AssetLink {
	issued := issuedAt.Unix()
	nonce := newLinkNonce()
	u := fmt.Sprintf("%s/objects/%s?issued=%d&n=%s&sig=%s",
		s.cfg.BaseURL,
		escapePath(path),
		issued,
		nonce,
		s.sign(path, issued, nonce),
	)
	return model.AssetLink{
		ObjectPath: path,
		URL:        u,
		IssuedAt:   issuedAt,
	}
}

func (s *LinkService) sign(path string, issuedUnix int64, nonce string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.SigningKey))
	mac.Write([]byte(path))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(issuedUnix, 10)))
	mac.Write([]byte("\n"))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

func newLinkNonce() string {
	b := make([]byte, 8)
	rand.Read(b) //nolint:errcheck // crypto/rand.Read is documented to never fail
	return hex.EncodeToString(b)
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(path string) string {
	return (&url.URL{Path: path}).EscapedPath()
}
