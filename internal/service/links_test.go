package service

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/mocks"
	"github.com/townready/townready/internal/service/stages"
	"github.com/townready/townready/internal/testutil"
)

func newTestLinkService(jobs core.JobStore, blobs core.BlobStore, tp data.TimeProvider) *LinkService {
	return NewLinkService(LinkServiceOptions{
		Jobs:  jobs,
		Blobs: blobs,
		Config: LinkServiceConfig{
			SigningKey: "test-signing-key",
			BaseURL:    "http://localhost:8080",
			LinkTTL:    24 * time.Hour,
		},
		TimeProvider: tp,
	})
}

func TestLinkService_PublishArtifacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobStore(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	svc := newTestLinkService(jobs, blobs, tp)

	blobs.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	assets, err := svc.PublishArtifacts(context.Background(), "job-1", model.StagePlan, []stages.Artifact{
		{Name: "plan_md", ContentType: "text/markdown", Data: []byte("# Plan")},
		{Name: "plan_json", ContentType: "application/json", Data: []byte("{}")},
	})
	require.NoError(t, err)
	require.Len(t, assets, 2)

	link := assets["plan_md"]
	assert.Equal(t, "job-1/plan/plan_md", link.ObjectPath)
	assert.True(t, link.IssuedAt.Equal(testutil.TestTime()))

	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "/objects/job-1/plan/plan_md", parsed.Path)
	assert.NotEmpty(t, parsed.Query().Get("sig"))
	issued, err := strconv.ParseInt(parsed.Query().Get("issued"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestTime().Unix(), issued)

	// The minted link verifies against the same key.
	assert.NoError(t, svc.VerifyLink(link.ObjectPath, issued, parsed.Query().Get("n"), parsed.Query().Get("sig")))
}

func TestLinkService_PublishArtifacts_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := newTestLinkService(mocks.NewMockJobStore(ctrl), mocks.NewMockBlobStore(ctrl), nil)

	assets, err := svc.PublishArtifacts(context.Background(), "job-1", model.StagePlan, nil)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestLinkService_PublishArtifacts_PutFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobStore(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)
	svc := newTestLinkService(jobs, blobs, nil)

	blobs.EXPECT().Put(gomock.Any(), gomock.Any()).Return(apperrors.Unavailable("db down"))

	_, err := svc.PublishArtifacts(context.Background(), "job-1", model.StagePlan, []stages.Artifact{
		{Name: "plan_md", Data: []byte("x")},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestLinkService_VerifyLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tp := data.NewFixedTimeProvider(testutil.TestTime())
	svc := newTestLinkService(mocks.NewMockJobStore(ctrl), mocks.NewMockBlobStore(ctrl), tp)

	link := svc.link("job-1/plan/plan_md", tp.Now())
	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	sig := parsed.Query().Get("sig")
	nonce := parsed.Query().Get("n")
	issued := tp.Now().Unix()

	assert.NoError(t, svc.VerifyLink("job-1/plan/plan_md", issued, nonce, sig))

	// Wrong path, wrong signature, tampered timestamp, tampered nonce.
	assert.Error(t, svc.VerifyLink("job-1/plan/other", issued, nonce, sig))
	assert.Error(t, svc.VerifyLink("job-1/plan/plan_md", issued, nonce, "deadbeef"))
	assert.Error(t, svc.VerifyLink("job-1/plan/plan_md", issued+1, nonce, sig))
	assert.Error(t, svc.VerifyLink("job-1/plan/plan_md", issued, "ffffffffffffffff", sig))

	badSig := svc.VerifyLink("job-1/plan/plan_md", issued, nonce, "deadbeef")
	assert.Equal(t, "sig", apperrors.GetField(badSig))

	// Expired after the TTL window.
	tp.AddTime(24*time.Hour + time.Minute)
	err = svc.VerifyLink("job-1/plan/plan_md", issued, nonce, sig)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "issued", apperrors.GetField(err))
}

func TestLinkService_MintsDistinctURLs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// A frozen clock is the worst case: both mints share the issue second,
	// so only the nonce separates them.
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	svc := newTestLinkService(mocks.NewMockJobStore(ctrl), mocks.NewMockBlobStore(ctrl), tp)

	first := svc.Link("job-1/plan/plan_md")
	second := svc.Link("job-1/plan/plan_md")
	assert.NotEqual(t, first.URL, second.URL)

	for _, link := range []model.AssetLink{first, second} {
		parsed, err := url.Parse(link.URL)
		require.NoError(t, err)
		issued, err := strconv.ParseInt(parsed.Query().Get("issued"), 10, 64)
		require.NoError(t, err)
		assert.NoError(t, svc.VerifyLink(link.ObjectPath, issued, parsed.Query().Get("n"), parsed.Query().Get("sig")))
	}
}

func TestLinkService_Refresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobStore(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	svc := newTestLinkService(jobs, mocks.NewMockBlobStore(ctrl), tp)
	ctx := context.Background()

	staleIssued := testutil.TestTime().Add(-48 * time.Hour)
	before := &model.Job{
		ID: "job-1",
		Assets: map[string]model.AssetLink{
			"plan_md": {ObjectPath: "job-1/plan/plan_md", URL: "http://stale", IssuedAt: staleIssued},
		},
		AssetsRefreshCount: 2,
	}

	jobs.EXPECT().GetByID(ctx, "job-1").Return(before, nil)
	jobs.EXPECT().
		ReplaceAssets(ctx, "job-1", gomock.Any(), 2).
		DoAndReturn(func(_ context.Context, _ string, assets map[string]model.AssetLink, _ int) (bool, error) {
			link := assets["plan_md"]
			// Path stays stable; URL and issue time are new.
			assert.Equal(t, "job-1/plan/plan_md", link.ObjectPath)
			assert.NotEqual(t, "http://stale", link.URL)
			assert.True(t, link.IssuedAt.Equal(testutil.TestTime()))
			return true, nil
		})
	after := &model.Job{ID: "job-1", AssetsRefreshCount: 3}
	jobs.EXPECT().GetByID(ctx, "job-1").Return(after, nil)

	job, err := svc.Refresh(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 3, job.AssetsRefreshCount)
}

func TestLinkService_Refresh_RetriesOnContention(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobStore(ctrl)
	svc := newTestLinkService(jobs, mocks.NewMockBlobStore(ctrl), nil)
	ctx := context.Background()

	withAssets := func(count int) *model.Job {
		return &model.Job{
			ID: "job-1",
			Assets: map[string]model.AssetLink{
				"plan_md": {ObjectPath: "job-1/plan/plan_md"},
			},
			AssetsRefreshCount: count,
		}
	}

	// First swap loses to a concurrent refresh, second wins.
	jobs.EXPECT().GetByID(ctx, "job-1").Return(withAssets(0), nil)
	jobs.EXPECT().ReplaceAssets(ctx, "job-1", gomock.Any(), 0).Return(false, nil)
	jobs.EXPECT().GetByID(ctx, "job-1").Return(withAssets(1), nil)
	jobs.EXPECT().ReplaceAssets(ctx, "job-1", gomock.Any(), 1).Return(true, nil)
	jobs.EXPECT().GetByID(ctx, "job-1").Return(withAssets(2), nil)

	job, err := svc.Refresh(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 2, job.AssetsRefreshCount)
}

func TestLinkService_Refresh_NoAssets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobStore(ctrl)
	svc := newTestLinkService(jobs, mocks.NewMockBlobStore(ctrl), nil)
	ctx := context.Background()

	jobs.EXPECT().GetByID(ctx, "job-1").Return(&model.Job{ID: "job-1"}, nil)

	job, err := svc.Refresh(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 0, job.AssetsRefreshCount)
}

func TestLinkService_Refresh_Exhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobStore(ctrl)
	svc := newTestLinkService(jobs, mocks.NewMockBlobStore(ctrl), nil)
	ctx := context.Background()

	job := &model.Job{
		ID:     "job-1",
		Assets: map[string]model.AssetLink{"plan_md": {ObjectPath: "p"}},
	}
	jobs.EXPECT().GetByID(ctx, "job-1").Return(job, nil).Times(refreshAttempts)
	jobs.EXPECT().ReplaceAssets(ctx, "job-1", gomock.Any(), 0).Return(false, nil).Times(refreshAttempts)

	_, err := svc.Refresh(ctx, "job-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "a/b/c", escapePath("a/b/c"))
	assert.Equal(t, "a/b%20c", escapePath("a/b c"))
}
