package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/store"
)

// MaxUploadSize is the largest image accepted by Upload.
const MaxUploadSize = 10 << 20

// RegionEditor applies admin changes to the catalog: field patches and image
// uploads. Every change is audited and invalidates the catalog cache.
type RegionEditor struct {
	repo     RegionRepository
	catalog  *Catalog
	images   ImageStore
	audit    AuditLog
	maxWidth uint
	log      logger.Logger
	now      func() time.Time
}

// NewRegionEditor builds an editor. images may be nil when object storage is
// not configured; uploads then fail with ErrUnavailable.
func NewRegionEditor(repo RegionRepository, catalog *Catalog, images ImageStore, audit AuditLog, maxWidth uint, log logger.Logger) *RegionEditor {
	if audit == nil {
		audit = NopAudit{}
	}
	return &RegionEditor{
		repo:     repo,
		catalog:  catalog,
		images:   images,
		audit:    audit,
		maxWidth: maxWidth,
		log:      log,
		now:      time.Now,
	}
}

func requireAdmin(sess *models.Session) error {
	if sess == nil {
		return ErrUnauthorized
	}
	if !sess.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// Update applies a partial patch to the region with the given code.
func (e *RegionEditor) Update(ctx context.Context, sess *models.Session, code string, patch models.RegionPatch) (models.Region, error) {
	if err := requireAdmin(sess); err != nil {
		return models.Region{}, err
	}
	if patch.Empty() {
		return models.Region{}, NewValidationError("body", "at least one field is required")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validateStruct(patch); err != nil {
		return models.Region{}, err
	}

	region, err := e.catalog.GetRegion(ctx, code)
	if err != nil {
		return models.Region{}, err
	}
	updated, err := e.repo.Update(ctx, region.Code, patch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.Region{}, fmt.Errorf("region %q: %w", code, ErrNotFound)
	case err != nil:
		e.log.Error("update region failed", logger.String("code", region.Code), logger.Error(err))
		return models.Region{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	e.record(ctx, models.RegionEdit{
		RegionCode: updated.Code,
		AdminID:    sess.UserID.String(),
		Action:     models.RegionEditUpdate,
		Fields:     patch.Fields(),
	})
	e.catalog.Invalidate(ctx)
	return updated, nil
}

// UploadInput is one image file destined for a region.
type UploadInput struct {
	RegionCode  string
	Filename    string
	ContentType string
	Data        []byte
	Attach      bool
}

// UploadResult is what Upload reports back to the caller.
type UploadResult struct {
	URL    string         `json:"image_url"`
	Key    string         `json:"key"`
	Region *models.Region `json:"region,omitempty"`
}

// Upload stores an image under regions/{code}/ and, when requested, appends
// its public URL to the region's images.
func (e *RegionEditor) Upload(ctx context.Context, sess *models.Session, in UploadInput) (UploadResult, error) {
	if err := requireAdmin(sess); err != nil {
		return UploadResult{}, err
	}
	if e.images == nil {
		return UploadResult{}, fmt.Errorf("image storage is not configured: %w", ErrUnavailable)
	}

	verr := &ValidationError{}
	if strings.TrimSpace(in.RegionCode) == "" {
		verr.add("region_code", "is required")
	}
	if len(in.Data) == 0 {
		verr.add("file", "is required")
	} else if len(in.Data) > MaxUploadSize {
		verr.add("file", "must be at most 10MB")
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		verr.add("file", "must be an image")
	}
	if err := verr.orNil(); err != nil {
		return UploadResult{}, err
	}

	region, err := e.catalog.GetRegion(ctx, in.RegionCode)
	if err != nil {
		return UploadResult{}, err
	}

	data, err := PrepareImage(in.Data, e.maxWidth)
	if err != nil {
		return UploadResult{}, NewValidationError("file", "could not be decoded")
	}

	key := RegionImageKey(region.Code, in.Filename, e.now())
	url, err := e.images.Put(ctx, data, key, in.ContentType)
	if err != nil {
		e.log.Error("image upload failed", logger.String("key", key), logger.Error(err))
		return UploadResult{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	result := UploadResult{URL: url, Key: key}

	action := models.RegionEditImageUpload
	if in.Attach {
		updated, err := e.repo.AppendImage(ctx, region.Code, url)
		if err != nil {
			e.log.Error("attach image failed", logger.String("code", region.Code), logger.Error(err))
			if derr := e.images.Delete(ctx, key); derr != nil {
				e.log.Warn("orphaned image not removed", logger.String("key", key), logger.Error(derr))
			}
			return UploadResult{}, fmt.Errorf("%w: %v", ErrStore, err)
		}
		result.Region = &updated
		action = models.RegionEditImageAdd
		e.catalog.Invalidate(ctx)
	}

	e.record(ctx, models.RegionEdit{
		RegionCode: region.Code,
		AdminID:    sess.UserID.String(),
		Action:     action,
		ImageURL:   url,
	})
	return result, nil
}

// DeleteImage removes an uploaded image from storage and detaches it from
// its region.
func (e *RegionEditor) DeleteImage(ctx context.Context, sess *models.Session, key string) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if e.images == nil {
		return fmt.Errorf("image storage is not configured: %w", ErrUnavailable)
	}
	code, ok := RegionCodeFromKey(key)
	if !ok {
		return NewValidationError("key", "must look like regions/{code}/{file}")
	}

	if err := e.images.Delete(ctx, key); err != nil {
		e.log.Error("image delete failed", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	region, err := e.catalog.GetRegion(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	id := PublicID(key)
	detached := false
	for _, url := range region.Images {
		if !imageURLMatches(url, id) {
			continue
		}
		if _, err := e.repo.RemoveImage(ctx, region.Code, url); err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
		detached = true
		e.record(ctx, models.RegionEdit{
			RegionCode: region.Code,
			AdminID:    sess.UserID.String(),
			Action:     models.RegionEditImageRemove,
			ImageURL:   url,
		})
	}
	if detached {
		e.catalog.Invalidate(ctx)
	}
	return nil
}

// imageURLMatches reports whether url serves the object with public id id:
// the path ends in "/"+id, optionally followed by a single extension.
// "regions/mk-01/1700-a" does not match ".../regions/mk-01/1700-ab.jpg".
func imageURLMatches(url, id string) bool {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	i := strings.LastIndex(url, "/"+id)
	if i < 0 {
		return false
	}
	rest := url[i+1+len(id):]
	return rest == "" || (rest[0] == '.' && !strings.ContainsAny(rest[1:], "./"))
}

// History returns the most recent admin edits of a region.
func (e *RegionEditor) History(ctx context.Context, sess *models.Session, code string, limit int64) ([]models.RegionEdit, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	region, err := e.catalog.GetRegion(ctx, code)
	if err != nil {
		return nil, err
	}
	edits, err := e.audit.History(ctx, region.Code, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return edits, nil
}

func (e *RegionEditor) record(ctx context.Context, edit models.RegionEdit) {
	edit.CreatedAt = e.now().UTC()
	if err := e.audit.Record(ctx, edit); err != nil {
		e.log.Warn("audit record failed", logger.String("code", edit.RegionCode), logger.Error(err))
	}
}
