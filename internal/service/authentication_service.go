package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v4"

	"github.com/anime-shed/note-inspector-go/internal/engine"
	apperrors "github.com/anime-shed/note-inspector-go/internal/errors"
	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/observer"
	"github.com/anime-shed/note-inspector-go/internal/repository"
	"github.com/anime-shed/note-inspector-go/internal/storage"
	"github.com/anime-shed/note-inspector-go/pkg/models"
	"github.com/anime-shed/note-inspector-go/pkg/validation"
)

// DefaultVerdictListLimit is used when a history request gives no limit
const DefaultVerdictListLimit = 50

// AuthenticationService authenticates candidate notes and exposes the
// reference set and verdict history
type AuthenticationService interface {
	// AuthenticateUpload checks an uploaded file and authenticates it
	AuthenticateUpload(ctx context.Context, filename string, data []byte) (*models.AuthenticationResponse, error)

	// AuthenticateURL fetches a remote image and authenticates it
	AuthenticateURL(ctx context.Context, imageURL string) (*models.AuthenticationResponse, error)

	// References describes the reference set, loading it if needed
	References(ctx context.Context) (*models.ReferencesResponse, error)

	// ReloadReferences rebuilds the reference set from the repository
	ReloadReferences(ctx context.Context) (*models.ReferencesResponse, error)

	GetVerdict(ctx context.Context, id string) (*models.VerdictResponse, error)
	ListVerdicts(ctx context.Context, limit int) (*models.VerdictListResponse, error)

	// ReferencesReady reports whether a reference set is loaded and its size
	ReferencesReady() (bool, int)
}

type authenticationService struct {
	engine       engine.Authenticator
	references   *ReferenceCache
	repo         repository.ReferenceRepository
	fetcher      storage.ImageFetcher
	verdicts     repository.VerdictRepository
	publisher    observer.Subject
	urlValidator *validation.URLValidator
	uploads      *validation.UploadValidator
	quality      *validation.QualityValidator
	timeout      time.Duration
}

// Option customises the authentication service
type Option func(*authenticationService)

// WithURLValidator replaces the default validator applied to candidate URLs
func WithURLValidator(v *validation.URLValidator) Option {
	return func(s *authenticationService) {
		s.urlValidator = v
	}
}

// NewAuthenticationService creates the authentication service. publisher
// may be nil.
func NewAuthenticationService(
	authenticator engine.Authenticator,
	references *ReferenceCache,
	repo repository.ReferenceRepository,
	fetcher storage.ImageFetcher,
	verdicts repository.VerdictRepository,
	publisher observer.Subject,
	timeout time.Duration,
	opts ...Option,
) AuthenticationService {
	s := &authenticationService{
		engine:       authenticator,
		references:   references,
		repo:         repo,
		fetcher:      fetcher,
		verdicts:     verdicts,
		publisher:    publisher,
		urlValidator: validation.NewURLValidator(),
		uploads:      validation.NewUploadValidator(),
		quality:      validation.NewQualityValidator(),
		timeout:      timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authenticationService) AuthenticateUpload(ctx context.Context, filename string, data []byte) (*models.AuthenticationResponse, error) {
	if err := s.uploads.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if _, err := s.uploads.ValidateContent(data); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, data, "upload:"+filename)
}

func (s *authenticationService) AuthenticateURL(ctx context.Context, imageURL string) (*models.AuthenticationResponse, error) {
	if err := s.urlValidator.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	data, err := s.fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrImageTooLarge):
			return nil, apperrors.NewValidationError("image exceeds size limit", err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewTimeoutError("timed out fetching image", err)
		case errors.Is(err, context.Canceled):
			return nil, apperrors.NewTimeoutError("image fetch cancelled", err)
		default:
			return nil, apperrors.NewNetworkError("failed to fetch image", err)
		}
	}
	return s.authenticate(ctx, data, imageURL)
}

func (s *authenticationService) authenticate(ctx context.Context, data []byte, source string) (*models.AuthenticationResponse, error) {
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.WithRequestID(ctx, requestID)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.publish(ctx, observer.AuthenticationEvent{
		EventType: observer.AuthenticationStarted,
		RequestID: requestID,
		Source:    source,
	})

	verdict, err := s.run(ctx, data)
	elapsed := time.Since(start)
	if err != nil {
		appErr := mapEngineError(err)
		s.publish(ctx, observer.AuthenticationEvent{
			EventType:      observer.AuthenticationFailed,
			RequestID:      requestID,
			Source:         source,
			ProcessingTime: elapsed,
			ErrorMessage:   appErr.Error(),
		})
		return nil, appErr
	}

	record := &repository.VerdictRecord{
		ID:                uuid.NewString(),
		RequestID:         requestID,
		CreatedAt:         start.UTC(),
		Source:            source,
		Genuine:           verdict.Genuine,
		Denomination:      null.NewString(verdict.Denomination, verdict.Denomination != ""),
		Score:             verdict.Score,
		GoodMatches:       verdict.GoodMatches,
		Reason:            string(verdict.Reason),
		ScoringMode:       string(verdict.ScoringMode),
		CandidateFeatures: verdict.CandidateFeatures,
		ProcessingTimeMs:  elapsed.Milliseconds(),
	}
	if s.verdicts != nil {
		if err := s.verdicts.SaveVerdict(context.WithoutCancel(ctx), record); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to store verdict")
		}
	}

	s.publish(ctx, observer.AuthenticationEvent{
		EventType:      observer.AuthenticationCompleted,
		RequestID:      requestID,
		Source:         source,
		ProcessingTime: elapsed,
		Success:        true,
		Genuine:        verdict.Genuine,
		Denomination:   verdict.Denomination,
		Score:          verdict.Score,
		Metadata: map[string]interface{}{
			"reason":       string(verdict.Reason),
			"good_matches": verdict.GoodMatches,
		},
	})

	resp := s.toResponse(requestID, start, elapsed, verdict)
	resp.VerdictID = record.ID
	return resp, nil
}

func (s *authenticationService) run(ctx context.Context, data []byte) (engine.Verdict, error) {
	refs, err := s.references.Get(ctx)
	if err != nil {
		return engine.Verdict{}, err
	}
	return s.engine.Authenticate(ctx, data, refs)
}

// mapEngineError keeps the decode / missing references / not a note
// distinction visible to callers
func mapEngineError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, engine.ErrDecode):
		return apperrors.NewDecodeError("image unreadable", err)
	case errors.Is(err, engine.ErrNoReferences):
		return apperrors.NewNoReferencesError("no reference data available", err)
	case errors.Is(err, repository.ErrRepositoryUnavailable):
		return apperrors.NewNoReferencesError("reference data unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("authentication timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError("authentication cancelled", err)
	default:
		return apperrors.NewInternalError("authentication failed", err)
	}
}

func (s *authenticationService) toResponse(requestID string, start time.Time, elapsed time.Duration, v engine.Verdict) *models.AuthenticationResponse {
	resp := &models.AuthenticationResponse{
		RequestID:           requestID,
		Genuine:             v.Genuine,
		Denomination:        null.NewString(v.Denomination, v.Denomination != ""),
		Score:               v.Score,
		GoodMatches:         v.GoodMatches,
		ClosestAttempt:      v.ClosestAttempt(),
		Reason:              string(v.Reason),
		Message:             ResultMessage(v),
		ScoringMode:         string(v.ScoringMode),
		AcceptanceThreshold: v.AcceptanceThreshold,
		CandidateKeypoints:  v.CandidateFeatures,
		Quality: models.Quality{
			Width:             v.Quality.Width,
			Height:            v.Quality.Height,
			LaplacianVariance: v.Quality.LaplacianVariance,
			Brightness:        v.Quality.Brightness,
			Contrast:          v.Quality.Contrast,
		},
		Timestamp:         start.UTC().Format(time.RFC3339),
		ProcessingTimeSec: elapsed.Seconds(),
	}
	for _, sc := range v.Scores {
		resp.References = append(resp.References, models.ReferenceScore{
			Denomination:   sc.Label,
			Source:         sc.Source,
			GoodMatches:    sc.GoodMatches,
			TotalMatches:   sc.TotalMatches,
			Score:          sc.Value,
			MeanDistance:   sc.MeanDistance,
			DistanceStdDev: sc.DistanceStdDev,
		})
	}
	resp.Warnings = s.quality.ConvertIssuesToMessages(s.quality.ValidateCandidate(v.Quality))
	return resp
}

// ResultMessage renders a verdict the way the note checker reports it
func ResultMessage(v engine.Verdict) string {
	score := strconv.FormatFloat(v.Score, 'f', -1, 64)
	if v.Genuine {
		return fmt.Sprintf("Likely Genuine Currency: ₹%s (Matches: %s)", v.Denomination, score)
	}
	msg := "Potential Fake or Cannot Verify"
	if v.ClosestAttempt() {
		msg += fmt.Sprintf(" (Closest Match Attempt: ₹%s, Matches: %s)", v.Denomination, score)
	}
	return msg
}

func (s *authenticationService) References(ctx context.Context) (*models.ReferencesResponse, error) {
	if _, err := s.references.Get(ctx); err != nil {
		return nil, mapEngineError(err)
	}
	return s.describe(s.references.Peek())
}

func (s *authenticationService) ReloadReferences(ctx context.Context) (*models.ReferencesResponse, error) {
	entry, err := s.references.Reload(ctx)
	if err != nil {
		return nil, mapEngineError(err)
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"references":  entry.Set.Len(),
		"fingerprint": entry.Fingerprint,
	}).Info("References reloaded on request")
	return s.describe(entry)
}

func (s *authenticationService) describe(entry *CachedReferences) (*models.ReferencesResponse, error) {
	if entry == nil {
		return nil, apperrors.NewNoReferencesError("no reference data available", engine.ErrNoReferences)
	}
	resp := &models.ReferencesResponse{
		Source:        s.repo.Source(),
		Fingerprint:   entry.Fingerprint,
		BuiltAt:       entry.Set.BuiltAt(),
		Denominations: entry.Set.Labels(),
		FromSnapshot:  entry.FromSnapshot,
	}
	for _, n := range entry.Set.Notes() {
		resp.References = append(resp.References, models.ReferenceSummary{
			Denomination: n.Label,
			Source:       n.Source,
			Features:     n.Features.Len(),
		})
	}
	for _, sk := range entry.Set.Skipped() {
		resp.Skipped = append(resp.Skipped, models.SkippedReference{
			Denomination: sk.Label,
			Source:       sk.Source,
			Reason:       sk.Reason,
		})
	}
	return resp, nil
}

func (s *authenticationService) GetVerdict(ctx context.Context, id string) (*models.VerdictResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewValidationError("invalid verdict id", err)
	}
	record, err := s.verdicts.GetVerdict(ctx, id)
	if errors.Is(err, repository.ErrVerdictNotFound) {
		return nil, apperrors.NewNotFoundError("verdict not found", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read verdict", err)
	}
	resp := toVerdictResponse(record)
	return &resp, nil
}

func (s *authenticationService) ListVerdicts(ctx context.Context, limit int) (*models.VerdictListResponse, error) {
	if limit <= 0 {
		limit = DefaultVerdictListLimit
	}
	records, err := s.verdicts.ListVerdicts(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list verdicts", err)
	}
	resp := &models.VerdictListResponse{Verdicts: make([]models.VerdictResponse, 0, len(records))}
	for _, r := range records {
		resp.Verdicts = append(resp.Verdicts, toVerdictResponse(r))
	}
	resp.Count = len(resp.Verdicts)
	return resp, nil
}

func (s *authenticationService) ReferencesReady() (bool, int) {
	entry := s.references.Peek()
	if entry == nil {
		return false, 0
	}
	return true, entry.Set.Len()
}

func (s *authenticationService) publish(ctx context.Context, event observer.AuthenticationEvent) {
	if s.publisher != nil {
		s.publisher.NotifyObservers(ctx, event)
	}
}

func toVerdictResponse(r *repository.VerdictRecord) models.VerdictResponse {
	return models.VerdictResponse{
		ID:                r.ID,
		RequestID:         r.RequestID,
		CreatedAt:         r.CreatedAt,
		Source:            r.Source,
		Genuine:           r.Genuine,
		Denomination:      r.Denomination,
		Score:             r.Score,
		GoodMatches:       r.GoodMatches,
		Reason:            r.Reason,
		ScoringMode:       r.ScoringMode,
		CandidateFeatures: r.CandidateFeatures,
		ProcessingTimeMs:  r.ProcessingTimeMs,
	}
}
