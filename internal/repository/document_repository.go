package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ragapi/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert creates the registry row for a filename or resets an existing
// one; re-uploading a document restarts its pipeline from scratch.
func (r *DocumentRepository) Upsert(doc *model.Document) error {
	existing, err := r.GetByFilename(doc.Filename)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := r.db.Create(doc).Error; err != nil {
			return fmt.Errorf("create document failed: %w", err)
		}
		return nil
	}

	existing.DocType = doc.DocType
	existing.UploadedBy = doc.UploadedBy
	existing.Status = doc.Status
	existing.ChunkCount = 0
	existing.Error = ""
	if err := r.db.Save(existing).Error; err != nil {
		return fmt.Errorf("reset document failed: %w", err)
	}
	*doc = *existing
	return nil
}

func (r *DocumentRepository) GetByFilename(filename string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("filename = ?", filename).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(filename, status string) error {
	if err := r.db.Model(&model.Document{}).
		Where("filename = ?", filename).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) MarkIndexed(filename string, chunkCount int) error {
	if err := r.db.Model(&model.Document{}).
		Where("filename = ?", filename).
		Updates(map[string]interface{}{
			"status":      model.StatusIndexed,
			"chunk_count": chunkCount,
			"error":       "",
		}).Error; err != nil {
		return fmt.Errorf("mark document indexed failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) MarkFailed(filename, reason string) error {
	if err := r.db.Model(&model.Document{}).
		Where("filename = ?", filename).
		Updates(map[string]interface{}{
			"status": model.StatusFailed,
			"error":  reason,
		}).Error; err != nil {
		return fmt.Errorf("mark document failed failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteByFilename(filename string) error {
	if err := r.db.Where("filename = ?", filename).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
