package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

// FirestoreCommentWriter persists teacher comments.
type FirestoreCommentWriter struct {
	client *firestore.Client
}

// NewFirestoreCommentWriter constructs the writer.
func NewFirestoreCommentWriter(client *firestore.Client) *FirestoreCommentWriter {
	return &FirestoreCommentWriter{client: client}
}

// Create adds a comment and returns its id.
func (w *FirestoreCommentWriter) Create(ctx context.Context, comment models.TeacherComment) (string, error) {
	ref, _, err := w.client.Collection(models.CollectionComments).Add(ctx, comment)
	if err != nil {
		return "", fmt.Errorf("create teacher comment: %w", err)
	}
	return ref.ID, nil
}

// BatchCreate adds every comment in one transaction: all or nothing.
func (w *FirestoreCommentWriter) BatchCreate(ctx context.Context, comments []models.TeacherComment) error {
	if len(comments) == 0 {
		return nil
	}
	col := w.client.Collection(models.CollectionComments)
	err := w.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, c := range comments {
			if err := tx.Create(col.NewDoc(), c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch create %d teacher comments: %w", len(comments), err)
	}
	return nil
}

// UpdateText replaces the comment text and clears its validation.
func (w *FirestoreCommentWriter) UpdateText(ctx context.Context, id, text, updatedAt string) error {
	_, err := w.client.Collection(models.CollectionComments).Doc(id).Update(ctx, []firestore.Update{
		{Path: "comment", Value: text},
		{Path: "isValidated", Value: false},
		{Path: "updatedAt", Value: updatedAt},
	})
	if err != nil {
		return fmt.Errorf("update teacher comment %s: %w", id, err)
	}
	return nil
}

// Validate marks the comment validated, keeping its text.
func (w *FirestoreCommentWriter) Validate(ctx context.Context, id, validatedAt string) error {
	_, err := w.client.Collection(models.CollectionComments).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isValidated", Value: true},
		{Path: "validationDate", Value: validatedAt},
		{Path: "updatedAt", Value: validatedAt},
	})
	if err != nil {
		return fmt.Errorf("validate teacher comment %s: %w", id, err)
	}
	return nil
}

// FirestorePeriodWriter updates academic periods.
type FirestorePeriodWriter struct {
	client *firestore.Client
}

// NewFirestorePeriodWriter constructs the writer.
func NewFirestorePeriodWriter(client *firestore.Client) *FirestorePeriodWriter {
	return &FirestorePeriodWriter{client: client}
}

// SetPublished toggles bulletin publication. An empty publishDate deletes the field.
func (w *FirestorePeriodWriter) SetPublished(ctx context.Context, id string, published bool, publishDate string) error {
	var date interface{} = publishDate
	if publishDate == "" {
		date = firestore.Delete
	}
	_, err := w.client.Collection(models.CollectionPeriods).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isPublished", Value: published},
		{Path: "bulletinPublishDate", Value: date},
	})
	if err != nil {
		return fmt.Errorf("set period %s published=%t: %w", id, published, err)
	}
	return nil
}

// FirestoreGradeWriter persists grades.
type FirestoreGradeWriter struct {
	client *firestore.Client
}

// NewFirestoreGradeWriter constructs the writer.
func NewFirestoreGradeWriter(client *firestore.Client) *FirestoreGradeWriter {
	return &FirestoreGradeWriter{client: client}
}

// Create adds a grade and returns its id.
func (w *FirestoreGradeWriter) Create(ctx context.Context, grade models.Grade) (string, error) {
	ref, _, err := w.client.Collection(models.CollectionGrades).Add(ctx, grade)
	if err != nil {
		return "", fmt.Errorf("create grade: %w", err)
	}
	return ref.ID, nil
}

// Update applies the non-nil fields of the update.
func (w *FirestoreGradeWriter) Update(ctx context.Context, id string, update models.GradeUpdate) error {
	updates := gradeUpdates(update)
	if len(updates) == 0 {
		return nil
	}
	if _, err := w.client.Collection(models.CollectionGrades).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("update grade %s: %w", id, err)
	}
	return nil
}

func gradeUpdates(update models.GradeUpdate) []firestore.Update {
	var updates []firestore.Update
	if update.Score != nil {
		updates = append(updates, firestore.Update{Path: "score", Value: *update.Score})
	}
	if update.MaxScore != nil {
		updates = append(updates, firestore.Update{Path: "maxScore", Value: *update.MaxScore})
	}
	if update.Feedback != nil {
		updates = append(updates, firestore.Update{Path: "feedback", Value: *update.Feedback})
	}
	if update.Subject != nil {
		updates = append(updates, firestore.Update{Path: "subject", Value: *update.Subject})
	}
	return updates
}
