package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// TimetableInputRepository reads the collections a timetable solve consumes.
type TimetableInputRepository struct {
	db *sqlx.DB
}

// NewTimetableInputRepository constructs the repository.
func NewTimetableInputRepository(db *sqlx.DB) *TimetableInputRepository {
	return &TimetableInputRepository{db: db}
}

// ListTeachers returns every teacher ordered by id.
func (r *TimetableInputRepository) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, name, COALESCE(specialty, '') AS specialty FROM teachers ORDER BY id`
	var rows []models.Teacher
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return rows, nil
}

// ListClassSections returns the term's class sections in scheduling order.
func (r *TimetableInputRepository) ListClassSections(ctx context.Context, termID string) ([]models.ClassSection, error) {
	const query = `SELECT id, term_id, subject, grade, teacher_id FROM class_sections WHERE term_id = $1 ORDER BY position, id`
	var rows []models.ClassSection
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list class sections: %w", err)
	}
	return rows, nil
}

// ListRooms returns every room ordered by id.
func (r *TimetableInputRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, COALESCE(room_type, '') AS room_type, capacity FROM rooms ORDER BY id`
	var rows []models.Room
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rows, nil
}

// ListTimeBlocks returns the daily grid ordered by position.
func (r *TimetableInputRepository) ListTimeBlocks(ctx context.Context) ([]models.TimeBlock, error) {
	const query = `SELECT id, position, start_time, end_time, COALESCE(label, '') AS label, is_break FROM time_blocks ORDER BY position`
	var rows []models.TimeBlock
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list time blocks: %w", err)
	}
	return rows, nil
}

// ListHardConstraints returns the term's blocking rules.
func (r *TimetableInputRepository) ListHardConstraints(ctx context.Context, termID string) ([]models.HardConstraint, error) {
	const query = `SELECT id, term_id, kind, target_id, day_of_week, COALESCE(start_time, '') AS start_time, COALESCE(end_time, '') AS end_time
FROM hard_constraints WHERE term_id = $1 ORDER BY id`
	var rows []models.HardConstraint
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list hard constraints: %w", err)
	}
	return rows, nil
}

// ListSoftConstraints returns the term's weighted preferences.
func (r *TimetableInputRepository) ListSoftConstraints(ctx context.Context, termID string) ([]models.SoftConstraint, error) {
	const query = `SELECT id, term_id, kind, teacher_id, day_of_week, COALESCE(start_time, '') AS start_time, COALESCE(end_time, '') AS end_time, polarity, weight
FROM soft_constraints WHERE term_id = $1 ORDER BY id`
	var rows []models.SoftConstraint
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list soft constraints: %w", err)
	}
	return rows, nil
}

// ListCapabilities returns teacher-subject qualifications in declaration order.
func (r *TimetableInputRepository) ListCapabilities(ctx context.Context) ([]models.TeacherCapability, error) {
	const query = `SELECT teacher_id, subject, priority FROM teacher_capabilities ORDER BY position, teacher_id`
	var rows []models.TeacherCapability
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teacher capabilities: %w", err)
	}
	return rows, nil
}

// ListRoomRequirements returns room pins for the term's class sections.
func (r *TimetableInputRepository) ListRoomRequirements(ctx context.Context, termID string) ([]models.RoomRequirement, error) {
	const query = `SELECT rr.class_id, COALESCE(rr.room_id, '') AS room_id, COALESCE(rr.room_type, '') AS room_type
FROM room_requirements rr JOIN class_sections cs ON cs.id = rr.class_id
WHERE cs.term_id = $1 ORDER BY rr.class_id`
	var rows []models.RoomRequirement
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list room requirements: %w", err)
	}
	return rows, nil
}
