package repository

import (
	"context"
	"errors"

	"github.com/hemfix-se/billing-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NumberSequenceRepository struct {
	db *gorm.DB
}

func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// GetNextNumber atomically increments and returns the next sequence
// number for the document series and year. Uses SELECT FOR UPDATE so
// concurrent callers never receive the same number.
func (r *NumberSequenceRepository) GetNextNumber(ctx context.Context, docType domain.DocumentType, year int) (int, error) {
	var nextNumber int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sequence domain.NumberSequence

		// sqlite has no row locks; its writes serialize on the database
		query := tx
		if tx.Dialector.Name() != "sqlite" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		err := query.
			Where("doc_type = ? AND year = ?", docType, year).
			First(&sequence).Error

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				sequence = domain.NumberSequence{
					DocType:      docType,
					Year:         year,
					LastSequence: 1,
				}
				if err := tx.Create(&sequence).Error; err != nil {
					return err
				}
				nextNumber = 1
				return nil
			}
			return err
		}

		nextNumber = sequence.LastSequence + 1
		return tx.Model(&sequence).Update("last_sequence", nextNumber).Error
	})

	if err != nil {
		return 0, err
	}
	return nextNumber, nil
}
