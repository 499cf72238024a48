package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"mock-assessment-service/models"
	"mock-assessment-service/store"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultAssessmentLimit = 100
	DefaultResourceLimit   = 20
)

var ErrStorageDisabled = errors.New("object storage is not configured")

// ObjectStore is the blob collaborator used for assessment logos.
type ObjectStore interface {
	Enabled() bool
	PresignUpload(ctx context.Context, key, contentType string) (uploadURL, publicURL string, err error)
	DeleteByURL(ctx context.Context, publicURL string) error
}

type AssessmentService struct {
	Store   store.Store
	Tables  store.Tables
	Objects ObjectStore
	Clock   clockwork.Clock
	Log     *zap.Logger
}

func NewAssessmentService(st store.Store, tables store.Tables, objects ObjectStore, clock clockwork.Clock, log *zap.Logger) *AssessmentService {
	return &AssessmentService{Store: st, Tables: tables, Objects: objects, Clock: clock, Log: log}
}

// AssessmentInput carries create/update fields. Nil fields are "not provided":
// defaults on create, keep existing on update.
type AssessmentInput struct {
	ID            string          `json:"id"`
	Title         *string         `json:"title"`
	Logo          *string         `json:"logo"`
	Time          *string         `json:"time"`
	Objective     *int            `json:"objective" validate:"omitempty,min=0"`
	Programming   *int            `json:"programming" validate:"omitempty,min=0"`
	Registrations *int            `json:"registrations" validate:"omitempty,min=0"`
	Category      *string         `json:"category"`
	Popular       *bool           `json:"popular"`
	Difficulty    *string         `json:"difficulty"`
	Difficulties  []string        `json:"difficulties"`
	Company       *string         `json:"company"`
	XPReward      *int64          `json:"xpReward" validate:"omitempty,min=0"`
	Status        *string         `json:"status" validate:"omitempty,oneof=draft published archived"`
	Questions     json.RawMessage `json:"questions"`
}

// AssessmentRef names an assessment by id; older clients send assessmentId.
type AssessmentRef struct {
	ID           string `json:"id"`
	AssessmentID string `json:"assessmentId"`
}

func (r AssessmentRef) Resolve() (string, error) {
	if r.AssessmentID != "" {
		return r.AssessmentID, nil
	}
	if r.ID != "" {
		return r.ID, nil
	}
	return "", invalid("assessmentId", "is required")
}

func newAssessmentID(title string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if s := slug.Make(title); s != "" {
		return s + "-" + suffix
	}
	return uuid.NewString()
}

func assessmentNotFound(id string) error {
	return notFound("ASSESSMENT_NOT_FOUND", fmt.Sprintf("Assessment with id '%s' not found", id))
}

func (s *AssessmentService) get(ctx context.Context, id string) (*models.Assessment, error) {
	var a models.Assessment
	err := s.Store.Get(ctx, s.Tables.Assessments, store.Key{Partition: id}, &a)
	if errors.Is(err, store.ErrNotFound) {
		return nil, assessmentNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load assessment %s: %w", id, err)
	}
	return &a, nil
}

// apply copies every provided field of in onto a.
func (in *AssessmentInput) apply(a *models.Assessment) {
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Logo != nil {
		a.Logo = *in.Logo
	}
	if in.Time != nil {
		a.Time = *in.Time
	}
	if in.Objective != nil {
		a.Objective = *in.Objective
	}
	if in.Programming != nil {
		a.Programming = *in.Programming
	}
	if in.Registrations != nil {
		a.Registrations = *in.Registrations
	}
	if in.Category != nil {
		a.Category = *in.Category
	}
	if in.Popular != nil {
		a.Popular = *in.Popular
	}
	if in.Difficulty != nil {
		a.Difficulty = *in.Difficulty
	}
	if in.Difficulties != nil {
		a.Difficulties = in.Difficulties
	}
	if in.Company != nil {
		a.Company = in.Company
	}
	if in.XPReward != nil {
		a.XPReward = *in.XPReward
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if len(in.Questions) > 0 && string(in.Questions) != "null" {
		a.Questions = in.Questions
	}
}

func (s *AssessmentService) Create(ctx context.Context, in AssessmentInput) (*models.Assessment, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("title", "is required")
	}

	id := in.ID
	if id == "" {
		id = newAssessmentID(*in.Title)
	}
	_, err := s.get(ctx, id)
	if err == nil {
		return nil, conflict("ASSESSMENT_EXISTS", fmt.Sprintf("Assessment with id '%s' already exists", id))
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := isoTimestamp(s.Clock.Now())
	a := &models.Assessment{
		ID:        id,
		Time:      "30 Minutes",
		Category:  "technical",
		XPReward:  100,
		Status:    "draft",
		CreatedAt: now,
		UpdatedAt: now,
		Questions: json.RawMessage("[]"),
	}
	if in.Difficulty == nil {
		a.Difficulty = "medium"
	}
	in.apply(a)
	if a.Difficulties == nil {
		a.Difficulties = []string{a.Difficulty}
	}

	if err := s.Store.Put(ctx, s.Tables.Assessments, store.Key{Partition: id}, a); err != nil {
		return nil, fmt.Errorf("save assessment %s: %w", id, err)
	}
	s.Log.Info("assessment created", zap.String("assessment_id", id), zap.String("title", a.Title))
	return a, nil
}

// Update merges the provided fields into an existing assessment.
func (s *AssessmentService) Update(ctx context.Context, in AssessmentInput) (*models.Assessment, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, invalid("id", "is required")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("title", "must not be empty")
	}

	a, err := s.get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	in.apply(a)
	a.UpdatedAt = isoTimestamp(s.Clock.Now())

	if err := s.Store.Put(ctx, s.Tables.Assessments, store.Key{Partition: a.ID}, a); err != nil {
		return nil, fmt.Errorf("save assessment %s: %w", a.ID, err)
	}
	return a, nil
}

// Delete removes the assessment and, best effort, its uploaded logo.
func (s *AssessmentService) Delete(ctx context.Context, ref AssessmentRef) error {
	id, err := ref.Resolve()
	if err != nil {
		return err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	err = s.Store.Delete(ctx, s.Tables.Assessments, store.Key{Partition: id})
	if errors.Is(err, store.ErrNotFound) {
		return assessmentNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("delete assessment %s: %w", id, err)
	}

	if a.Logo != "" && s.Objects != nil && s.Objects.Enabled() {
		if err := s.Objects.DeleteByURL(ctx, a.Logo); err != nil {
			s.Log.Warn("failed to delete assessment logo", zap.String("assessment_id", id), zap.Error(err))
		}
	}
	s.Log.Info("assessment deleted", zap.String("assessment_id", id))
	return nil
}

type AssessmentFilter struct {
	Category string `json:"category"`
	Status   string `json:"status"`
	Limit    int    `json:"limit" validate:"min=0"`
}

func (s *AssessmentService) List(ctx context.Context, f AssessmentFilter) ([]models.Assessment, error) {
	if err := validateStruct(f); err != nil {
		return nil, err
	}
	if f.Limit == 0 {
		f.Limit = DefaultAssessmentLimit
	}
	var all []models.Assessment
	if err := s.Store.Scan(ctx, s.Tables.Assessments, &all); err != nil {
		return nil, fmt.Errorf("scan assessments: %w", err)
	}
	out := make([]models.Assessment, 0, min(len(all), f.Limit))
	for _, a := range all {
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// GetQuestions returns the raw question list of an assessment.
func (s *AssessmentService) GetQuestions(ctx context.Context, ref AssessmentRef) (json.RawMessage, error) {
	id, err := ref.Resolve()
	if err != nil {
		return nil, err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(a.Questions) == 0 {
		return json.RawMessage("[]"), nil
	}
	return a.Questions, nil
}

type LogoUploadRequest struct {
	AssessmentID string `json:"assessmentId" validate:"required"`
	FileName     string `json:"fileName" validate:"required"`
	ContentType  string `json:"contentType" validate:"required,oneof=image/png image/jpeg image/webp image/svg+xml"`
}

type LogoUpload struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
}

// PresignLogoUpload issues an upload URL for a new logo of an existing
// assessment. The assessment itself is not modified; clients send the public
// URL back through update_assessment once the upload succeeds.
func (s *AssessmentService) PresignLogoUpload(ctx context.Context, req LogoUploadRequest) (*LogoUpload, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if s.Objects == nil || !s.Objects.Enabled() {
		return nil, ErrStorageDisabled
	}
	if _, err := s.get(ctx, req.AssessmentID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(req.FileName))
	key := fmt.Sprintf("assessments/%s/logo-%s%s", req.AssessmentID, uuid.NewString(), ext)
	uploadURL, publicURL, err := s.Objects.PresignUpload(ctx, key, req.ContentType)
	if err != nil {
		return nil, err
	}
	return &LogoUpload{Key: key, UploadURL: uploadURL, PublicURL: publicURL}, nil
}

type ResourceFilter struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Limit int    `json:"limit" validate:"min=0"`
}

type ResourceView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Duration string `json:"duration"`
	URL      string `json:"url"`
}

// GetStudyResources lists curated resources filtered by topic and type.
func (s *AssessmentService) GetStudyResources(ctx context.Context, f ResourceFilter) ([]ResourceView, error) {
	if err := validateStruct(f); err != nil {
		return nil, err
	}
	if f.Limit == 0 {
		f.Limit = DefaultResourceLimit
	}
	var all []models.StudyResource
	if err := s.Store.Scan(ctx, s.Tables.StudyResources, &all); err != nil {
		return nil, fmt.Errorf("scan study resources: %w", err)
	}
	out := make([]ResourceView, 0, min(len(all), f.Limit))
	for _, r := range all {
		if f.Topic != "" && r.Topic != f.Topic {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		out = append(out, ResourceView{
			ID:       r.ResourceID,
			Title:    r.Title,
			Type:     r.Type,
			Topic:    r.Topic,
			Duration: r.Duration,
			URL:      r.URL,
		})
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
