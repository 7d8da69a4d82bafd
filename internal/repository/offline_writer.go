package repository

import (
	"context"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

// OfflineWriter stands in for every writer when no backend is configured:
// each write returns immediately without effect.
type OfflineWriter struct{}

func (OfflineWriter) Create(context.Context, models.TeacherComment) (string, error) { return "", nil }

func (OfflineWriter) BatchCreate(context.Context, []models.TeacherComment) error { return nil }

func (OfflineWriter) UpdateText(context.Context, string, string, string) error { return nil }

func (OfflineWriter) Validate(context.Context, string, string) error { return nil }

func (OfflineWriter) SetPublished(context.Context, string, bool, string) error { return nil }

// OfflineGradeWriter is the grade counterpart of OfflineWriter.
type OfflineGradeWriter struct{}

func (OfflineGradeWriter) Create(context.Context, models.Grade) (string, error) { return "", nil }

func (OfflineGradeWriter) Update(context.Context, string, models.GradeUpdate) error { return nil }
